package config

import (
	"fmt"

	"datagovapi/models"
	"datagovapi/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DB is the global GORM database instance used throughout the application.
var DB *gorm.DB

// ConnectDB establishes the catalog store connection using GORM with configured MySQL credentials.
func ConnectDB() error {
	logger.Infof("Connecting to catalog store %s@%s:%d/%s", Cfg.DBUser, Cfg.DBHost, Cfg.DBPort, Cfg.DBName)

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		Cfg.DBUser,
		Cfg.DBPass,
		Cfg.DBHost,
		Cfg.DBPort,
		Cfg.DBName,
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Errorf("GORM connection failed: %v", err)
		return err
	}
	logger.Infof("GORM connected successfully to database %s", Cfg.DBName)

	DB = db
	return nil
}

// MigrateDB creates or updates the engine-owned tables. The catalog tables are
// shared with the crawler, so migration is additive only.
func MigrateDB() error {
	return DB.AutoMigrate(
		&models.RuleDefinition{},
		&models.DataSource{},
		&models.CatalogAsset{},
		&models.CatalogColumn{},
		&models.ManualOverride{},
		&models.Issue{},
	)
}
