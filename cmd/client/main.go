package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/clouddrive/internal/client/cli"
	"github.com/dmitrijs2005/clouddrive/internal/client/config"
	"github.com/dmitrijs2005/clouddrive/internal/flagx"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)
	if err != nil {
		return err
	}

	return app.Run(ctx, flagx.StripArgs(os.Args[1:], config.Flags))
}
