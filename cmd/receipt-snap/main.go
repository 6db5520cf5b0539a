package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/moriyama/receipt-snap/internal/config"
	"github.com/moriyama/receipt-snap/internal/receipt"
	"github.com/moriyama/receipt-snap/internal/scanning"
	"github.com/moriyama/receipt-snap/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("receipt-snap")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "receipt-snap.db", "Database file path")
		imageDir    = fs.StringLong("images", "./images", "Receipt image directory")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_SNAP"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg := config.Load()

	// Initialize database
	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitializeCategories(); err != nil {
		slog.Error("Failed to seed categories", "error", err)
		os.Exit(1)
	}

	// Initialize the vision extractor. Without a key the endpoint stays up
	// but analysis requests fail with a clear message.
	var extractor scanning.Extractor = scanning.Disabled{}
	if cfg.GeminiAPIKey != "" {
		slog.Info("Initializing Gemini extractor...", "model", cfg.GeminiModel)
		extractor, err = scanning.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, receipt.CategoryNames())
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("GEMINI_API_KEY not set, receipt analysis is disabled")
	}
	defer extractor.Close()

	// Initialize image storage
	slog.Info("Initializing image storage...")
	images, err := receipt.NewDirImageStore(*imageDir)
	if err != nil {
		slog.Error("Failed to initialize image storage", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(db, extractor, images)

	notionCfg := cfg.NotionConfig()
	if !notionCfg.Enabled() {
		slog.Info("Notion mirror not configured, sync is disabled")
	}

	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.NewServer(receiptService, notionCfg, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
