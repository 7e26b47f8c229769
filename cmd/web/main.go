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

	"github.com/Bahjat/auth-insight-tool/internal/detectclient"
	"github.com/Bahjat/auth-insight-tool/internal/platform/config"
	"github.com/Bahjat/auth-insight-tool/internal/platform/logger"
	"github.com/Bahjat/auth-insight-tool/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	client, err := detectclient.New(cfg.ServiceURL, cfg.RequestTimeout)
	if err != nil {
		log.Error("detection client", "error", err)
		os.Exit(1)
	}

	srv, err := web.NewServer(client, web.Options{
		Threshold:      cfg.ContentThreshold,
		RequestTimeout: cfg.RequestTimeout,
		ViewTTL:        cfg.ViewTTL,
	}, log)
	if err != nil {
		log.Error("web server", "error", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Detection requests wait on the service, which may drive a browser.
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Info("web ui listening", "addr", httpSrv.Addr, "detector_url", cfg.ServiceURL)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
