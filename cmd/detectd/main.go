package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bahjat/auth-insight-tool/internal/analyzer"
	"github.com/Bahjat/auth-insight-tool/internal/detector"
	"github.com/Bahjat/auth-insight-tool/internal/platform/config"
	"github.com/Bahjat/auth-insight-tool/internal/platform/logger"
	"github.com/Bahjat/auth-insight-tool/internal/platform/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	predefined, err := cfg.PredefinedURLs()
	if err != nil {
		log.Error("predefined urls", "error", err)
		os.Exit(1)
	}

	static := detector.NewHTTPFetcher(detector.HTTPFetcherOptions{
		RateLimit:    cfg.FetchRateLimit,
		AllowPrivate: cfg.AllowPrivateTargets,
	})

	rendered, closeBrowser := newRenderedFetcher(cfg, log)
	defer closeBrowser()

	engine := detector.NewEngine(static, rendered, log)
	svc := analyzer.NewService(engine, predefined, cfg.FetchConcurrency, log)
	transport := analyzer.NewTransport(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	transport.RegisterRoutes(r)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.DetectorPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Info("detection service listening",
		"addr", httpSrv.Addr,
		"browser_fetch", rendered != nil,
		"predefined", len(predefined),
	)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			closeBrowser()
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

// newRenderedFetcher starts the headless browser when BROWSER_FETCH is set.
// A browser that fails to start only disables the fallback.
func newRenderedFetcher(cfg config.Config, log *slog.Logger) (detector.Fetcher, func()) {
	if !cfg.BrowserFetch {
		return nil, func() {}
	}

	f, err := detector.NewRenderedFetcher(detector.BrowserOptions{
		RemoteURL:    cfg.BrowserURL,
		AllowPrivate: cfg.AllowPrivateTargets,
		Logger:       log,
	})
	if err != nil {
		log.Warn("headless browser unavailable, static fetch only", "error", err)
		return nil, func() {}
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.Warn("browser close", "error", err)
		}
	}
}
