package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/pwalczyk/invoiceflow/internal/categorize"
	"github.com/pwalczyk/invoiceflow/internal/config"
	"github.com/pwalczyk/invoiceflow/internal/export"
	"github.com/pwalczyk/invoiceflow/internal/extract"
	"github.com/pwalczyk/invoiceflow/internal/ledger"
	"github.com/pwalczyk/invoiceflow/internal/repository"
	"github.com/pwalczyk/invoiceflow/internal/server"
	"github.com/pwalczyk/invoiceflow/internal/worker"
	"github.com/pwalczyk/invoiceflow/migrations"
	"github.com/pwalczyk/invoiceflow/pkg/database"
	"github.com/pwalczyk/invoiceflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Load .env before viper reads the environment
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice intake pipeline",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	contractorRepo := repository.NewContractorRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	ruleRepo := repository.NewRuleRepository(db.DB, logger)

	// Categorization engine
	engine := categorize.NewEngine(historyRepo, ruleRepo, contractorRepo, logger)

	// Ledger service, with the engine as the approval learner
	ledgerSvc := ledger.NewService(invoiceRepo, contractorRepo, engine, logger)

	// Extraction: PDF text layer first, vision fallback when configured
	recognizers := []extract.Recognizer{extract.NewPDFTextRecognizer(logger)}
	if cfg.OpenAI.APIKey != "" {
		recognizers = append(recognizers,
			extract.NewVisionRecognizer(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger))
	}
	extractor := extract.NewExtractor(logger, recognizers...)

	// Export
	exportSvc := export.NewService(export.NewRegistry())

	// Background workers
	manager := worker.NewManager(logger)
	manager.Register(worker.NewExtractionWorker(cfg.Pipeline, ledgerSvc, extractor, engine, logger))
	if cfg.Sources.Folder.Enabled {
		manager.Register(worker.NewFolderWatcher(cfg.Sources.Folder, ledgerSvc, logger))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	srv := server.NewServer(cfg.Server, ledgerSvc, exportSvc, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	cancel()
	if err := manager.StopAll(); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}
	if err := srv.Stop(); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server exited")
}
