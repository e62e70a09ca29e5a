// Package main provides the standalone entry point for the OncoGuide MCP
// server. It requires no external databases: embedded guideline data and a
// SQLite history store under the data directory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/oncoguide-server/internal/config"
	"github.com/oncoguide-server/internal/mcp"
	"github.com/oncoguide-server/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI()
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	cfg := config.LoadLiteConfig()

	log.Printf("Starting OncoGuide MCP Server with transport: %s", cfg.Transport)
	log.Printf("Data directory: %s", cfg.DataDir)

	server, err := mcp.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("OncoGuide MCP Server stopped")
}
