package main

import (
	"os"

	"github.com/mark3labs/mcp-go/server"

	"screencast-insights-go/internal/config"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/mcpserver"
	"screencast-insights-go/internal/processor"
	"screencast-insights-go/internal/provider"
)

func main() {
	// MCP speaks JSON-RPC on stdout.
	os.Setenv("LOG_OUTPUT", "stderr")
	log := logger.Component("mcp")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	prov, err := provider.New(cfg)
	if err != nil {
		log.WithError(err).Warn("AI provider unavailable, using local OCR only")
	}
	proc, err := processor.New(cfg, prov)
	if err != nil {
		log.WithError(err).Fatal("failed to build pipeline")
	}

	log.WithField("server", mcpserver.Name).Info("serving MCP over stdio")
	if err := server.ServeStdio(mcpserver.New(proc)); err != nil {
		log.WithError(err).Fatal("mcp server stopped")
	}
}
