package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ralt/pyrene/internal/cli"
	"github.com/ralt/pyrene/internal/staging"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logging format
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// An interrupt cancels the running command instead of killing the
	// process, so the staging directory is still removed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stage, err := staging.Create()
	if err != nil {
		logrus.Error(err)
		return 1
	}
	defer func() {
		if err := stage.Remove(); err != nil {
			logrus.Warnf("Failed to remove staging directory %s: %v", stage.Path(), err)
		}
	}()

	rootCmd := cli.NewRootCmd(stage)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Error(err)
		return 1
	}
	return 0
}
