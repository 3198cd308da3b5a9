package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/academy-scheduler/api/swagger"
	"github.com/noah-isme/academy-scheduler/internal/app"
	"github.com/noah-isme/academy-scheduler/pkg/config"
	"github.com/noah-isme/academy-scheduler/pkg/logger"
)

// @title Academy Scheduler API
// @version 1.0.0
// @description Automatic and manual lesson scheduling for academy class groups
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise dependencies", "error", err)
	}
	defer container.Close()

	if cfg.Scheduler.Enabled {
		container.Queue.Start(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		container.Queue.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		logr.Sugar().Errorw("server stopped with error", "error", err)
		return
	}
	logr.Info("server stopped")
}
