package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitrina/catalogd/config"
	"github.com/vitrina/catalogd/internal/adminapi"
	"github.com/vitrina/catalogd/internal/app"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("c", "catalogd.yml", "config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	defer application.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.LoadInitial(ctx); err != nil {
		// Generic failure notice; details are already in the log.
		zap.L().Error("error cargando el catálogo", zap.Error(err))
		application.Release()
		os.Exit(1)
	}

	application.StartBackgroundJobs(ctx)

	server := adminapi.NewServer(cfg, application.Store(), application.LocalState())
	go func() {
		if err := server.Start(); err != nil {
			zap.L().Error("web server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zap.L().Info("catalogd shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("web server shutdown", zap.Error(err))
	}
}
