package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tubefetch/api"
	"github.com/yourusername/tubefetch/api/handlers"
	"github.com/yourusername/tubefetch/internal/app"
	"github.com/yourusername/tubefetch/pkg/logger"
)

var (
	configPath = flag.String("config", "", "Path to config file (default: ./configs, ~/.tubefetch, /etc/tubefetch)")
	version    = "dev"
)

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	handlers.Version = version
	log.Info("Starting tubefetch server",
		zap.String("version", version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("downloads", config.Download.BaseDir),
		zap.String("storage", config.Storage.Backend))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.NewServices(ctx, config, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	manager := services.Manager
	if err := manager.Recover(); err != nil {
		log.Error("Failed to recover interrupted downloads", zap.Error(err))
	}

	janitor := app.NewJanitor(manager, &config.Download, services.Events)
	if err := janitor.Start(ctx); err != nil {
		log.Fatal("Failed to start janitor", zap.Error(err))
	}

	router, err := api.SetupRouter(manager, api.RouterConfig{
		Logger:  log,
		Events:  services.Events,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		log.Fatal("Failed to set up router", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := janitor.Stop(); err != nil {
		log.Error("Error stopping janitor", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// running jobs are cancelled and clean up their temp files
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Error("Downloads did not stop in time", zap.Error(err))
	}

	log.Info("Server exited")
}
