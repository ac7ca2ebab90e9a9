// MCP server - exposes transcript loading, search and correction as tools
// over stdio. Logs go to stderr so stdout carries only protocol messages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"transcript-search-service/internal/app"
	"transcript-search-service/internal/config"
	"transcript-search-service/internal/mcpserver"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.Observability.LogOutput = "stderr"

	application := app.New(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Wire(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to wire collaborators")
	}
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	srv := mcpserver.NewServer(mcpserver.Config{
		ServerName:    cfg.Service.Name,
		ServerVersion: version,
	}, application.Store, application.Pipeline)

	log.Info().Str("version", version).Msg("MCP server listening on stdio")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Shutdown(shutdownCtx)
}
