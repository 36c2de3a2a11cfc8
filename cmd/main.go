package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"packloop/internal/caching"
	"packloop/internal/config"
	"packloop/internal/handlers"
	"packloop/internal/jobs/background"
	"packloop/internal/messaging"
	"packloop/internal/repositories"
	"packloop/internal/services"
	"packloop/pkg/database"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = cfg.Database.URL
	}
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable or database.url config is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	clock := clockwork.NewRealClock()

	// Cache service
	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// Object storage for inspection photos
	mediaSvc, err := services.NewMediaService(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	if err := mediaSvc.EnsureBucket(context.Background()); err != nil {
		log.Printf("WARNING: photo bucket not available: %v", err)
	}

	// Repositories
	locationRepo := repositories.NewLocationRepository(pool)
	retailerRepo := repositories.NewRetailerRepository(pool)
	hubRepo := repositories.NewHubRepository(pool)
	customerRepo := repositories.NewCustomerRepository(pool)
	catalogRepo := repositories.NewCatalogRepository(pool)
	instanceRepo := repositories.NewInstanceRepository(pool)
	accountRepo := repositories.NewAccountRepository(pool)
	checkoutRepo := repositories.NewCheckoutRepository(pool)
	returnRepo := repositories.NewReturnRepository(pool)
	washRepo := repositories.NewWashRepository(pool)
	inspectionRepo := repositories.NewInspectionRepository(pool)
	contaminationRepo := repositories.NewContaminationRepository(pool)
	movementRepo := repositories.NewMovementRepository(pool)
	sensorRepo := repositories.NewSensorRepository(pool)
	auditLogsRepo := repositories.NewAuditLogsRepository(pool)

	// Services
	auditSvc := services.NewAuditLogsService(auditLogsRepo, clock)
	ledgerSvc := services.NewLedgerService(pool, accountRepo, cacheSvc, clock)
	instanceSvc := services.NewInstanceService(pool, instanceRepo, catalogRepo, auditSvc, clock)
	loanSvc := services.NewLoanService(pool, checkoutRepo, returnRepo, locationRepo, auditSvc, cacheSvc, clock)
	qualitySvc := services.NewQualityService(pool, washRepo, inspectionRepo, contaminationRepo, hubRepo, auditSvc, cfg.Quality, clock)
	telemetrySvc := services.NewTelemetryService(movementRepo, sensorRepo, instanceRepo, locationRepo, instanceSvc, cacheSvc, clock)

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(pool)
	locationHandlers := handlers.NewLocationHandlers(locationRepo, retailerRepo, hubRepo, clock)
	customerHandlers := handlers.NewCustomerHandlers(customerRepo, ledgerSvc, clock)
	catalogHandlers := handlers.NewCatalogHandlers(catalogRepo, cacheSvc, clock)
	instanceHandlers := handlers.NewInstanceHandlers(instanceSvc)
	loanHandlers := handlers.NewLoanHandlers(loanSvc)
	qualityHandlers := handlers.NewQualityHandlers(qualitySvc, mediaSvc)
	telemetryHandlers := handlers.NewTelemetryHandlers(telemetrySvc)
	auditHandlers := handlers.NewAuditLogsHandlers(auditSvc)

	// Echo instance
	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health and metrics endpoints
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")

	// Reference data
	v1.POST("/locations", locationHandlers.CreateLocation)
	v1.GET("/locations", locationHandlers.ListLocations)
	v1.GET("/locations/:id", locationHandlers.GetLocation)
	v1.PUT("/locations/:id", locationHandlers.UpdateLocation)
	v1.POST("/retailers", locationHandlers.CreateRetailer)
	v1.GET("/retailers", locationHandlers.ListRetailers)
	v1.GET("/retailers/:id", locationHandlers.GetRetailer)
	v1.POST("/hubs", locationHandlers.CreateHub)
	v1.GET("/hubs", locationHandlers.ListHubs)
	v1.GET("/hubs/:id", locationHandlers.GetHub)
	v1.GET("/hubs/:id/cycles", qualityHandlers.ListHubCycles)

	// Customers and deposit accounts
	v1.POST("/customers", customerHandlers.CreateCustomer)
	v1.GET("/customers", customerHandlers.ListCustomers)
	v1.GET("/customers/:id", customerHandlers.GetCustomer)
	v1.PUT("/customers/:id", customerHandlers.UpdateCustomer)
	v1.GET("/customers/:id/account", customerHandlers.GetAccount)
	v1.GET("/customers/:id/balance", customerHandlers.GetBalance)
	v1.GET("/customers/:id/statement", customerHandlers.GetStatement)
	v1.POST("/customers/:id/credit", customerHandlers.CreditAccount)
	v1.POST("/customers/:id/debit", customerHandlers.DebitAccount)
	v1.POST("/customers/:id/reconcile", customerHandlers.ReconcileAccount)
	v1.GET("/customers/:id/checkouts", loanHandlers.ListCustomerCheckouts)
	v1.GET("/balances", customerHandlers.ListBalances)

	// Packaging catalog
	v1.POST("/catalog", catalogHandlers.CreateEntry)
	v1.GET("/catalog", catalogHandlers.ListEntries)
	v1.GET("/catalog/:id", catalogHandlers.GetEntry)
	v1.GET("/catalog/sku/:sku", catalogHandlers.GetEntryBySKU)

	// Packaging instances
	v1.POST("/instances", instanceHandlers.RegisterInstance)
	v1.GET("/instances", instanceHandlers.ListInstances)
	v1.GET("/instances/counts", instanceHandlers.StateCounts)
	v1.GET("/instances/uid/:uid", instanceHandlers.GetInstanceByUID)
	v1.GET("/instances/:id", instanceHandlers.GetInstance)
	v1.POST("/instances/:id/transition", instanceHandlers.TransitionInstance)
	v1.POST("/instances/:id/damaged", instanceHandlers.MarkDamaged)
	v1.POST("/instances/:id/lost", instanceHandlers.MarkLost)
	v1.POST("/instances/:id/retire", instanceHandlers.RetireInstance)
	v1.GET("/instances/:id/checkout", loanHandlers.GetInstanceOpenCheckout)
	v1.GET("/instances/:id/returns", loanHandlers.ListInstanceReturns)
	v1.GET("/instances/:id/inspections", qualityHandlers.ListInstanceInspections)
	v1.GET("/instances/:id/contamination", qualityHandlers.ListInstanceContamination)
	v1.GET("/instances/:id/movements", telemetryHandlers.MovementHistory)
	v1.GET("/instances/:id/location", telemetryHandlers.LastLocation)
	v1.GET("/instances/:id/dwell", telemetryHandlers.DwellTime)

	// Loans
	v1.POST("/checkouts", loanHandlers.OpenCheckout)
	v1.GET("/checkouts/overdue", loanHandlers.ListOverdue)
	v1.GET("/checkouts/:id", loanHandlers.GetCheckout)
	v1.POST("/returns", loanHandlers.RecordReturn)
	v1.GET("/returns/:id", loanHandlers.GetReturn)

	// Quality control
	v1.POST("/wash-cycles", qualityHandlers.StartCycle)
	v1.GET("/wash-cycles/:id", qualityHandlers.GetCycle)
	v1.POST("/wash-cycles/:id/complete", qualityHandlers.CompleteCycle)
	v1.POST("/inspections", qualityHandlers.RecordInspection)
	v1.GET("/inspections/:id", qualityHandlers.GetInspection)
	v1.POST("/inspections/:id/photo", qualityHandlers.UploadInspectionPhoto)
	v1.GET("/inspections/:id/photo", qualityHandlers.GetInspectionPhotoURL)
	v1.POST("/contamination", qualityHandlers.RecordContamination)

	// Telemetry
	v1.POST("/movements", telemetryHandlers.RecordMovement)
	v1.POST("/readings", telemetryHandlers.RecordReading)
	v1.GET("/readings", telemetryHandlers.SearchReadings)

	// Audit log
	v1.GET("/audit-logs", auditHandlers.ListAuditLogs)
	v1.GET("/audit-logs/:id", auditHandlers.GetAuditLog)
	v1.GET("/audit-logs/:entity_type/:entity_id", auditHandlers.GetEntityHistory)

	// Background jobs
	scheduler, err := background.NewJobScheduler(loanSvc, ledgerSvc, auditSvc, accountRepo, movementRepo, cacheSvc, cfg.Jobs)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	// MQTT sensor ingestion
	if cfg.MQTT.Enabled {
		ingestor := messaging.NewMQTTIngestor(cfg.MQTT, telemetrySvc)
		if err := ingestor.Start(context.Background()); err != nil {
			log.Printf("WARNING: MQTT ingestion unavailable: %v", err)
		} else {
			defer ingestor.Stop()
		}
	}

	// Shut the server down on SIGINT/SIGTERM so the deferred cleanups run.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Printf("Shutting down")
		if err := e.Shutdown(context.Background()); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	log.Printf("Server starting on port %d", cfg.Server.Port)
	if err := e.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
