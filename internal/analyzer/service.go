package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Bahjat/auth-insight-tool/internal/model"
	"github.com/Bahjat/auth-insight-tool/internal/platform/requestid"
)

const msgTimedOut = "Request timeout"

// Service orchestrates a Detector and logs results.
type Service struct {
	detector    Detector
	predefined  []string
	concurrency int
	logger      *slog.Logger
}

// NewService creates a Service backed by the given detector. predefined is
// the list served by Predefined; concurrency bounds batch detections.
func NewService(detector Detector, predefined []string, concurrency int, logger *slog.Logger) *Service {
	return &Service{
		detector:    detector,
		predefined:  append([]string(nil), predefined...),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Scrape detects the login form of a single URL.
func (s *Service) Scrape(ctx context.Context, targetURL string) model.ResultRecord {
	logger := s.logger.With("url", targetURL, "request_id", requestid.FromContext(ctx))

	start := time.Now()
	rec := s.detector.Detect(ctx, targetURL)
	rec = timeoutAware(ctx, rec)
	s.logRecord(logger, rec, time.Since(start))
	return rec
}

// ScrapeBatch detects the login forms of several URLs. Results keep the
// order of targetURLs.
func (s *Service) ScrapeBatch(ctx context.Context, targetURLs []string) []model.ResultRecord {
	logger := s.logger.With("request_id", requestid.FromContext(ctx), "count", len(targetURLs))

	start := time.Now()
	results := s.detector.DetectAll(ctx, targetURLs, s.concurrency)
	for i := range results {
		results[i] = timeoutAware(ctx, results[i])
	}

	var ok int
	for _, rec := range results {
		if rec.Success {
			ok++
		}
	}
	logger.Info("batch detection complete",
		"succeeded", ok,
		"failed", len(results)-ok,
		"duration", time.Since(start),
	)
	return results
}

// Predefined runs ScrapeBatch over the configured URL list.
func (s *Service) Predefined(ctx context.Context) []model.ResultRecord {
	return s.ScrapeBatch(ctx, s.predefined)
}

func (s *Service) logRecord(logger *slog.Logger, rec model.ResultRecord, elapsed time.Duration) {
	if !rec.Success {
		logger.Warn("detection failed", "error", rec.Error, "duration", elapsed)
		return
	}
	found := rec.AuthComponent != nil && rec.AuthComponent.Found
	attrs := []any{"found", found, "duration", elapsed}
	if found {
		attrs = append(attrs, "method", rec.AuthComponent.Method, "action", rec.AuthComponent.Action)
	}
	logger.Info("detection complete", attrs...)
}

// timeoutAware rewrites a failure caused by the request deadline so callers
// see a consistent message.
func timeoutAware(ctx context.Context, rec model.ResultRecord) model.ResultRecord {
	if !rec.Success && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		rec.Error = msgTimedOut
	}
	return rec
}
