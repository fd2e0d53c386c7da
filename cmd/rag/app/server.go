// Package app provides the RAG server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"github.com/spf13/viper"

	"github.com/kart-io/sentinel-rag/cmd/rag/app/options"
	ragsvc "github.com/kart-io/sentinel-rag/internal/rag"
	"github.com/kart-io/sentinel-rag/pkg/infra/app"
)

const (
	// commandDesc is the description of the command.
	commandDesc = `Sentinel RAG Service

A retrieval-augmented question answering service over a private document set.

This server provides:
  - Document upload with PDF extraction and text encoding detection
  - Chunking and embedding into a Qdrant or Milvus collection
  - Similarity search with a relevance threshold
  - Answers grounded in retrieved context, with general and fallback modes
  - A live event log over WebSocket and an optional audit trail`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		app.WithName(ragsvc.Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
		app.WithConfigChange(reloadLogLevel),
	)

	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		// Load the configuration options
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		// Build the server using the configuration
		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		// Run the server with signal context for graceful shutdown
		return server.Run(ctx)
	}
}

// reloadLogLevel 配置文件变化时只热更新日志级别，其余配置需重启生效。
func reloadLogLevel(v *viper.Viper) error {
	text := v.GetString("log.level")
	level, ok := parseLevel(text)
	if !ok {
		return fmt.Errorf("unknown log level %q", text)
	}
	logger.Global().SetLevel(level)
	logger.Infow("log level reloaded", "level", text)
	return nil
}

func parseLevel(text string) (core.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "DEBUG":
		return core.DebugLevel, true
	case "INFO":
		return core.InfoLevel, true
	case "WARN", "WARNING":
		return core.WarnLevel, true
	case "ERROR":
		return core.ErrorLevel, true
	case "FATAL":
		return core.FatalLevel, true
	default:
		return core.InfoLevel, false
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
