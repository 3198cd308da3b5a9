package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/app"
	"github.com/noah-isme/academy-scheduler/pkg/config"
	"github.com/noah-isme/academy-scheduler/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	var container *app.Container
	defer func() {
		if container != nil {
			container.Close()
		}
	}()

	cli := NewApp(func(ctx context.Context) (*services, error) {
		c, err := app.New(ctx, cfg, logr.With(zap.String("component", "schedulerctl")))
		if err != nil {
			return nil, err
		}
		container = c
		svc := &services{generator: c.Generator, lessons: c.Lessons, sharedLock: c.Redis != nil}
		if c.AvailabilityCache != nil {
			svc.availability = c.AvailabilityCache
		}
		return svc, nil
	})
	return cli.Execute(context.Background(), os.Args[1:], os.Stdout)
}
