package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bmharper/pdfdeskew"
	"github.com/bmharper/pdfdeskew/config"
	"github.com/bmharper/pdfdeskew/internal/otel"
	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("PDFDESKEW_CONFIG"), "Path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Parse(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := otel.Setup(ctx, "pdf-orientation-correction", cfg.Level())
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	orientation, err := orient.New(cfg.Orientation.Engine, cfg.Orientation.Language)
	if err != nil {
		return err
	}
	defer orientation.Close()

	straightener := pdfdeskew.NewStraightener(orientation, cfg.SkewParams())
	straightener.Workers = cfg.ImageWorkers

	queue := service.NewQueue(straightener, service.QueueOptions{
		MaxTasks:  cfg.MaxTasks,
		Workers:   cfg.Workers,
		Retention: cfg.TaskRetention,
	})
	queueCtx, stopQueue := context.WithCancel(context.Background())
	queue.Start(queueCtx)

	descriptor := service.NewDescriptor(cfg.ServiceURL)
	handler := service.New(queue, descriptor)
	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           otel.Handler(handler.Router(), "pdfdeskew"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	announcer := &service.Announcer{
		Engines:    cfg.EngineURLs,
		Retries:    cfg.EngineAnnounceRetries,
		Delay:      cfg.EngineAnnounceRetryDelay,
		Descriptor: descriptor,
	}
	go announcer.Announce(ctx)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "address", cfg.Address, "max_tasks", cfg.MaxTasks, "workers", cfg.Workers)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	announcer.Withdraw(shutdownCtx)
	shutdownErr := server.Shutdown(shutdownCtx)
	stopQueue()
	queue.Wait()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return shutdownErr
}
