package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"screencast-insights-go/internal/capture"
	"screencast-insights-go/internal/config"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/processor"
	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/server"
	"screencast-insights-go/internal/session"
)

func main() {
	log := logger.New()
	log.WithField("service", "screencast-insights-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	// A missing API key is not fatal: local OCR and the export path still work.
	prov, err := provider.New(cfg)
	if err != nil {
		log.WithError(err).WithField("provider", cfg.Provider).Warn("AI provider unavailable")
	}

	proc, err := processor.New(cfg, prov)
	if err != nil {
		log.WithError(err).Fatal("failed to build pipeline")
	}

	acq := capture.NewFFmpegAcquirer(cfg.FFmpegPath, cfg.Capture)
	sessions := session.NewManager(capture.NewNegotiator(acq), nil, proc, cfg.CancelPolicy)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.Port),
		Handler: server.New(server.Deps{
			Pipeline:     proc,
			Sessions:     sessions,
			Provider:     prov,
			ManifestPath: cfg.ManifestPath,
		}).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	log.WithField("addr", srv.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}
