package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/shortfunc/internal/cli"
	"github.com/mamaar/shortfunc/internal/mcp"
	"github.com/mamaar/shortfunc/pkg/config"
)

func main() {
	var (
		workspaceFlag = flag.String("workspace", "", "Root workspace directory (defaults to current directory)")
		configFlag    = flag.String("config", "", "Config file (default: ./"+config.FileName+")")
		versionFlag   = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("shortfunc-mcp %s\n", cli.Version)
		os.Exit(0)
	}

	workspace := *workspaceFlag
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("Failed to get current directory: %v", err)
		}
		workspace = wd
	}
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		log.Fatalf("Failed to resolve workspace path: %v", err)
	}

	cfg, err := config.Load(*configFlag, nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// stdout carries the protocol
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("starting MCP server", "workspace", workspace)
	s := mcp.NewServer(workspace, cfg, logger).MCPServer("shortfunc-mcp", cli.Version)
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
