package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds application configuration loaded from environment variables and .env file.
type AppConfig struct {
	// Catalog database config
	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	// Logging config
	LogLevel      string
	LogFile       string
	LogMaxSize    int // MB
	LogMaxBackups int
	LogMaxAge     int // days
	LogCompress   bool

	// Scanning config
	ScanConcurrency int // Max concurrent column scans (0 = auto based on CPU, kept small for source connection limits)
	SampleSize      int // Max cached sample values fed to the content analyzer
	LiveSampleSize  int // Rows sampled from the live source per protection validation

	// Protection validator config
	SourceConnectTimeout time.Duration // Timeout for opening a connection to a governed source
	SourceQueryTimeout   time.Duration // Timeout for the live sampling query
	EntropyThreshold     float64       // Shannon entropy (bits/char) above which a value looks encrypted
	ProtectedFraction    float64       // Fraction of sampled values that must look protected

	// Classification config
	ContentMatchThreshold float64 // Match fraction at which a content category is confirmed
	ImpactSampleLimit     int     // Max column identities returned by an impact preview

	// System schemas excluded from scanning
	SystemSchemas []string
}

// Cfg is the global application configuration instance.
var Cfg AppConfig

// LoadConfig loads and validates application configuration from .env file and environment variables.
func LoadConfig() error {
	err := godotenv.Load()
	if err != nil {
		// Use standard log here since logger is not initialized yet
		log.Printf("[WARN] .env file not found or cannot be loaded: %v", err)
	} else {
		log.Printf("[INFO] .env file loaded successfully")
	}

	Cfg.DBHost = getEnv("DB_HOST", "127.0.0.1")
	Cfg.DBUser = getEnv("DB_USER", "root")
	Cfg.DBPass = getEnv("DB_PASS", "")
	Cfg.DBName = getEnv("DB_NAME", "datagov")
	Cfg.DBPort = getEnvInt("DB_PORT", 3306)

	// Load logging config
	Cfg.LogLevel = getEnv("LOG_LEVEL", "INFO")
	Cfg.LogFile = getEnv("LOG_FILE", "/var/log/datagov/datagovapi.log")
	Cfg.LogMaxSize = getEnvInt("LOG_MAX_SIZE", 10)
	Cfg.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", 3)
	Cfg.LogMaxAge = getEnvInt("LOG_MAX_AGE", 28)
	Cfg.LogCompress = getEnvBool("LOG_COMPRESS", true)

	// Load scanning config
	Cfg.ScanConcurrency = getEnvInt("SCAN_CONCURRENCY", 0)
	Cfg.SampleSize = getEnvInt("SAMPLE_SIZE", 100)
	Cfg.LiveSampleSize = getEnvInt("LIVE_SAMPLE_SIZE", 10)

	// Load protection validator config
	Cfg.SourceConnectTimeout = time.Duration(getEnvInt("SOURCE_CONNECT_TIMEOUT", 5)) * time.Second
	Cfg.SourceQueryTimeout = time.Duration(getEnvInt("SOURCE_QUERY_TIMEOUT", 10)) * time.Second
	Cfg.EntropyThreshold = getEnvFloat("ENTROPY_THRESHOLD", 4.5)
	Cfg.ProtectedFraction = getEnvFloat("PROTECTED_FRACTION", 0.9)

	// Load classification config
	Cfg.ContentMatchThreshold = getEnvFloat("CONTENT_MATCH_THRESHOLD", 0.70)
	Cfg.ImpactSampleLimit = getEnvInt("IMPACT_SAMPLE_LIMIT", 20)

	Cfg.SystemSchemas = getEnvStringSlice("SYSTEM_SCHEMAS", []string{
		"information_schema",
		"mysql",
		"performance_schema",
		"sys",
	})

	log.Printf("[INFO] Config loaded - DB: %s@%s:%d/%s, LogLevel: %s",
		Cfg.DBUser, Cfg.DBHost, Cfg.DBPort, Cfg.DBName, Cfg.LogLevel)
	log.Printf("[INFO] Scan config - Concurrency: %d, SampleSize: %d, LiveSampleSize: %d, ConnectTimeout: %v",
		Cfg.ScanConcurrency, Cfg.SampleSize, Cfg.LiveSampleSize, Cfg.SourceConnectTimeout)

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

// getEnvStringSlice parses comma-separated environment variable into string slice
func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		items := strings.Split(val, ",")
		result := make([]string, 0, len(items))
		for _, item := range items {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultVal
}

// IsSystemSchema checks if a schema name is in the system exclusion list
func IsSystemSchema(name string) bool {
	for _, s := range Cfg.SystemSchemas {
		if name == s {
			return true
		}
	}
	return false
}

// GetScanConcurrency returns the worker pool size for column scanning.
// Auto-detects from CPU cores when unset but stays small: each worker may hold
// one connection to a governed source system, and source connection limits are
// the binding constraint, not CPU.
func GetScanConcurrency() int {
	if Cfg.ScanConcurrency > 0 {
		return Cfg.ScanConcurrency
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 2 {
		n = 2
	}
	return n
}
