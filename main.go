package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"datagovapi/bootstrap"
	"datagovapi/config"
	"datagovapi/controllers"
	_ "datagovapi/docs"
	"datagovapi/pkg/logger"
	"datagovapi/repository"
	"datagovapi/services"
	"datagovapi/services/issue"
	"datagovapi/services/protection"
	"datagovapi/services/scan"
	"datagovapi/utils"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           datagovapi
// @version         1.0
// @description     Data Governance Classification API

// @BasePath  /api

func main() {
	// 1) Load config
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("LoadConfig error: %v", err)
	}

	// 2) Connect DB (GORM)
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("ConnectDB error: %v", err)
	}
	if config.DB == nil {
		log.Fatal("Database is nil after ConnectDB")
	}
	if err := config.MigrateDB(); err != nil {
		log.Fatalf("MigrateDB error: %v", err)
	}

	if err := bootstrap.LoadData(); err != nil {
		log.Fatalf("Load data error: %v", err)
	}

	// 3) Init structured logger with config
	logLevel := logger.ParseLogLevel(config.Cfg.LogLevel)
	logger.InitWithConfig(
		config.Cfg.LogFile,
		logLevel,
		config.Cfg.LogMaxSize,
		config.Cfg.LogMaxBackups,
		config.Cfg.LogMaxAge,
		config.Cfg.LogCompress,
	)
	logger.Infof("Starting Data Governance Classification API with log level: %s", config.Cfg.LogLevel)

	// 4) Wire repositories and services
	baseRepo := repository.NewBaseRepository()
	ruleRepo := repository.NewRuleRepository()
	columnRepo := repository.NewColumnRepository()
	dsRepo := repository.NewDataSourceRepository()
	assetRepo := repository.NewAssetRepository()
	overrideRepo := repository.NewOverrideRepository()
	issueRepo := repository.NewIssueRepository()

	syncer := issue.NewSyncService(issueRepo)
	validator := protection.NewValidator()
	orchestrator := scan.NewOrchestrator(ruleRepo, columnRepo, dsRepo, assetRepo, overrideRepo, validator, syncer)

	controllers.SetRuleService(services.NewRuleService(baseRepo, ruleRepo, columnRepo, overrideRepo, syncer, orchestrator))
	controllers.SetCatalogService(services.NewCatalogService(columnRepo, dsRepo, overrideRepo, orchestrator))
	controllers.SetIssueService(issue.NewLedgerService(issueRepo))
	controllers.SetScanOrchestrator(orchestrator)

	// 5) Setup Gin
	router := gin.Default()
	router.Use(utils.LoggerMiddleware())

	v1 := router.Group("/api")
	{
		controllers.RegisterRuleRoutes(v1)
		controllers.RegisterCatalogRoutes(v1)
		controllers.RegisterIssueRoutes(v1)
		controllers.RegisterScanJobRoutes(v1)
	}

	// 6) Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 7) Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Infof("Received shutdown signal, stopping job monitor service...")

		jobMonitor := scan.GetJobMonitorService()
		jobMonitor.Stop()

		logger.Infof("Application shutdown complete")
		os.Exit(0)
	}()

	// 8) Run
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}
	logger.Infof("Starting server at port %s", port)
	router.Run("0.0.0.0:" + port)
}
