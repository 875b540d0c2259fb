package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg-warden/internal/bot"
	"tg-warden/internal/config"
	"tg-warden/internal/crash"
	"tg-warden/internal/handler"
	"tg-warden/internal/logger"
	"tg-warden/internal/scheduler"
	"tg-warden/internal/service"
	"tg-warden/internal/storage"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")

	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Initialize database
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize bot with configuration
	botService, server, err := bot.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	// Initialize handler with configuration; content classification is
	// pluggable and disabled by default
	handler.Initialize(cfg, nil)

	// Start HTTP server in a goroutine
	crash.SafeGoroutine("webhook-server", func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	})

	// Give server time to start
	time.Sleep(500 * time.Millisecond)
	logger.Infof("HTTP server is ready, starting bot handler...")

	// Setup and start message handlers
	handler.SetupMessageHandlers(botService.Handler, botService.Bot)

	// Start the ledger maintenance scheduler
	sched := scheduler.New(service.Users())
	if err := sched.Start(cfg.Moderation.ExpirySweepSpec); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	botService.Start()

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)

	sched.Stop()

	// Gracefully shutdown server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warningf("HTTP server shutdown error: %v", err)
	}

	logger.Infof("Server gracefully stopped")
}
