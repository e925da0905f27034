package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/config"
	"github.com/fakturnik/invoice-intake-service/internal/database"
	"github.com/fakturnik/invoice-intake-service/internal/drive"
	"github.com/fakturnik/invoice-intake-service/internal/gemini"
	"github.com/fakturnik/invoice-intake-service/internal/googleapi"
	"github.com/fakturnik/invoice-intake-service/internal/handler"
	"github.com/fakturnik/invoice-intake-service/internal/logger"
	"github.com/fakturnik/invoice-intake-service/internal/mailbox"
	"github.com/fakturnik/invoice-intake-service/internal/payers"
	"github.com/fakturnik/invoice-intake-service/internal/poller"
	"github.com/fakturnik/invoice-intake-service/internal/reconcile"
	"github.com/fakturnik/invoice-intake-service/internal/report"
	"github.com/fakturnik/invoice-intake-service/internal/repository"
	"github.com/fakturnik/invoice-intake-service/internal/server"
	"github.com/fakturnik/invoice-intake-service/internal/service"
	"github.com/fakturnik/invoice-intake-service/internal/sheets"
	"github.com/fakturnik/invoice-intake-service/internal/storage"
	"github.com/fakturnik/invoice-intake-service/internal/trello"
)

// @title Invoice Intake Service API
// @version 1.0
// @description Admin API over the mailbox-driven accounting document intake pipeline.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		panic(err)
	}
	log := logger.Get()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewPostgresDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.InitSchema(ctx); err != nil {
		log.Fatal("schema initialization failed", zap.Error(err))
	}

	invoiceRepo := repository.NewPostgresInvoiceRepository(db.GetPool())
	documentRepo := repository.NewPostgresDocumentRepository(db.GetPool())

	// Google API clients share one file-backed token source
	tokenSource, err := googleapi.NewFileTokenSource(ctx, cfg.GoogleCredFile, cfg.GoogleToken)
	if err != nil {
		log.Fatal("google token source unavailable", zap.Error(err))
	}
	gmailSvc, err := googleapi.NewGmailService(ctx, tokenSource)
	if err != nil {
		log.Fatal("gmail client creation failed", zap.Error(err))
	}
	sheetsSvc, err := googleapi.NewSheetsService(ctx, tokenSource)
	if err != nil {
		log.Fatal("sheets client creation failed", zap.Error(err))
	}

	// File store backend
	var fileStore service.FileStore
	switch cfg.FileStoreBackend {
	case "s3":
		s3Store, err := storage.NewS3Store(&storage.Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			AccessKeySecret: cfg.S3AccessSecret,
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
		}, log)
		if err != nil {
			log.Fatal("s3 store creation failed", zap.Error(err))
		}
		fileStore = s3Store
	default:
		driveSvc, err := googleapi.NewDriveService(ctx, tokenSource)
		if err != nil {
			log.Fatal("drive client creation failed", zap.Error(err))
		}
		fileStore = drive.NewStore(driveSvc, cfg.DriveRootFolder, cfg.DriveLeafFolder, log)
	}

	// Task board is optional; without credentials no payment cards are made
	var board service.TaskBoard
	var cardRemover reconcile.CardRemover
	if cfg.TrelloAPIKey != "" && cfg.TrelloToken != "" && cfg.TrelloListID != "" {
		trelloClient, err := trello.NewClient(&trello.Config{
			APIKey:   cfg.TrelloAPIKey,
			APIToken: cfg.TrelloToken,
			ListID:   cfg.TrelloListID,
			Timeout:  cfg.TrelloTimeout,
		}, log)
		if err != nil {
			log.Fatal("trello client creation failed", zap.Error(err))
		}
		board = trelloClient
		cardRemover = trelloClient
	} else {
		log.Warn("trello not configured; payment cards disabled")
	}

	sheetClient := sheets.NewClient(sheetsSvc, cfg.SpreadsheetID, cfg.SummarySheetName, log)

	// Extraction
	payerDir := payers.NewDirectory(cfg.PayerDirectory)
	extractor := gemini.NewClient(&gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		ModelID: cfg.GeminiModelID,
		Timeout: cfg.GeminiTimeout,
		Payers:  payerDir,
	})

	// Reconciliation and ingestion
	resolver := reconcile.NewResolver(invoiceRepo, log)
	retirer := reconcile.NewCoordinator(fileStore, cardRemover, sheetClient, invoiceRepo, log)
	ingest := service.NewIngestService(
		extractor,
		fileStore,
		board,
		sheetClient,
		invoiceRepo,
		resolver,
		retirer,
		cfg.MaxWorkers,
		log,
	)

	// Monthly VAT report
	reporter := report.NewVATReporter(invoiceRepo, sheetClient, log)

	// Mailbox polling
	inbox := mailbox.NewGmail(gmailSvc, documentRepo, cfg.GmailQuery, cfg.MailAfterDate, cfg.DownloadDir, log)
	mailPoller := poller.New(inbox, ingest, documentRepo, reporter, poller.Config{
		Interval:         cfg.PollInterval,
		ReportDayOfMonth: cfg.ReportDayOfMonth,
		ReportHour:       cfg.ReportHour,
	}, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mailPoller.Run(ctx)
	}()

	// Admin API
	authService := service.NewAuthService(cfg.AdminAPIKey, cfg.JWTSecret, cfg.JWTExpiry)
	appServer := server.NewServer(cfg, authService, server.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Invoices:  handler.NewInvoiceHandler(invoiceRepo, retirer, log),
		Documents: handler.NewDocumentHandler(documentRepo, log),
		Reports:   handler.NewReportHandler(reporter, log),
	}, log)

	if err := appServer.Run(ctx); err != nil {
		log.Error("server error", zap.Error(err))
		stop()
	}

	// Let in-flight document processing finish before exiting
	wg.Wait()
	log.Info("shutdown complete")
}
