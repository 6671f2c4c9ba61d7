package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tokenkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/cli"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/google/uuid"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel).With("cli_session", uuid.NewString())

	app, closeFn, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Error(ctx, "close failed", "error", err)
		}
	}()

	app.Run(ctx)

}
