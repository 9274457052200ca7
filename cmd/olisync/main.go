package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/evanrobinson2/olisync/internal/config"
	"github.com/evanrobinson2/olisync/internal/logging"
	"github.com/evanrobinson2/olisync/internal/salesforce"
	"github.com/evanrobinson2/olisync/internal/sheet"
	"github.com/evanrobinson2/olisync/internal/sync"
	"github.com/evanrobinson2/olisync/internal/web"
)

func main() {
	once := flag.Bool("once", false, "run a single synchronization and exit")
	flag.Parse()

	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"workbook", cfg.Workbook.Path,
		"object_type", cfg.Salesforce.ObjectType,
	)

	workbook := sheet.NewWorkbook(cfg.Workbook.Path, cfg.Workbook.ParameterSheet, cfg.Workbook.LogSheet)

	client := salesforce.NewClient(salesforce.Config{
		InstanceURL:   cfg.Salesforce.InstanceURL,
		ClientID:      cfg.Salesforce.ClientID,
		ClientSecret:  cfg.Salesforce.ClientSecret,
		APIVersion:    cfg.Salesforce.APIVersion,
		ObjectType:    cfg.Salesforce.ObjectType,
		ParentField:   cfg.Salesforce.ParentField,
		ActiveField:   cfg.Salesforce.ActiveField,
		RevisionField: cfg.Salesforce.RevisionField,
		DiscountField: cfg.Salesforce.DiscountField,
	})

	runner := &sync.Runner{
		Params:        workbook,
		Tables:        workbook,
		Store:         client,
		RunLog:        logging.NewRunLog(workbook),
		LineItemGroup: cfg.Sync.LineItemGroup,
		ParentField:   cfg.Salesforce.ParentField,
		ActiveField:   cfg.Salesforce.ActiveField,
		RevisionField: cfg.Salesforce.RevisionField,
	}

	if *once {
		runOnce(runner)
		return
	}

	server := web.NewServer(runner, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// runOnce executes a single synchronization and prints the summary to
// stdout as JSON.
func runOnce(runner *sync.Runner) {
	summary, err := runner.Run(context.Background())
	if err != nil {
		slog.Error("synchronization failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		slog.Error("failed to encode summary", "error", err)
		os.Exit(1)
	}
}
