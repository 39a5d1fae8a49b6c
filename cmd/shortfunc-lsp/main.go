package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mamaar/shortfunc/internal/cli"
	"github.com/mamaar/shortfunc/internal/lsp"
	"github.com/mamaar/shortfunc/pkg/config"
)

func main() {
	var (
		portFlag    = flag.Int("port", 0, "Port to listen on (0 for stdio)")
		configFlag  = flag.String("config", "", "Config file (default: ./"+config.FileName+")")
		logFileFlag = flag.String("logfile", "", "Log file path (default: stderr)")
		versionFlag = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("shortfunc-lsp %s\n", cli.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag, nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// stdout carries the protocol
	out := os.Stderr
	if *logFileFlag != "" {
		if err := os.MkdirAll(filepath.Dir(*logFileFlag), 0o755); err != nil {
			log.Fatalf("Failed to create log directory: %v", err)
		}
		file, err := os.OpenFile(*logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file %s: %v", *logFileFlag, err)
		}
		defer file.Close()
		out = file
	}
	logger, err := cfg.NewLogger(out)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting shortfunc-lsp", "version", cli.Version, "pid", os.Getpid(), "port", *portFlag)
	server := lsp.NewServer(cfg, cli.Version, logger)
	if err := server.Start(ctx, *portFlag); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("LSP server failed", "error", err)
		os.Exit(1)
	}
}
