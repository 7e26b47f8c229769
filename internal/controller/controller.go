// Package controller drives the single-URL and batch detection flows.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Bahjat/auth-insight-tool/internal/model"
	"github.com/Bahjat/auth-insight-tool/internal/platform/errs"
	"github.com/Bahjat/auth-insight-tool/internal/platform/requestid"
)

// ErrEmptyURL is returned by SubmitSingle when the input is blank.
var ErrEmptyURL = errors.New("please enter a URL")

const (
	singleFallback = "Request failed"
	batchFallback  = "Unknown error"
	batchNotice    = "Failed to scrape predefined websites: "
)

// Detector is the remote detection service.
type Detector interface {
	Scrape(ctx context.Context, targetURL string) (*model.ResultRecord, error)
	Predefined(ctx context.Context) ([]model.ResultRecord, error)
}

// State is a snapshot of both flows.
type State struct {
	Single        *model.ResultRecord
	SingleLoading bool

	Batch        []model.ResultRecord
	BatchLoading bool
	// BatchNotice is the user-facing message of the last failed batch run.
	BatchNotice string
}

// Controller owns the results of one view. The two flows have independent
// loading flags and may run at the same time. Neither flow guards against
// re-entry: a second submission while one is in flight is issued, and
// whichever response arrives last is kept.
type Controller struct {
	detector Detector
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// New returns a Controller backed by detector.
func New(detector Detector, logger *slog.Logger) *Controller {
	return &Controller{detector: detector, logger: logger}
}

// SubmitSingle trims rawURL and runs single-URL detection. Blank input
// returns ErrEmptyURL without touching state or the network. Service
// failures are not returned: they are stored as a failed ResultRecord.
func (c *Controller) SubmitSingle(ctx context.Context, rawURL string) error {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return ErrEmptyURL
	}

	c.mu.Lock()
	c.state.SingleLoading = true
	c.state.Single = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.SingleLoading = false
		c.mu.Unlock()
	}()

	rec, err := c.detector.Scrape(ctx, target)
	if err != nil || rec == nil {
		msg := failureMessage(err, singleFallback)
		c.logger.Warn("single detection failed",
			"url", target,
			"error", err,
			"request_id", requestid.FromContext(ctx),
		)
		failed := model.Failed(target, msg)
		rec = &failed
	}

	c.mu.Lock()
	c.state.Single = rec
	c.mu.Unlock()
	return nil
}

// SubmitBatch runs detection over the service's predefined URLs. On failure
// the list stays empty, BatchNotice is set, and the error is returned.
func (c *Controller) SubmitBatch(ctx context.Context) error {
	c.mu.Lock()
	c.state.BatchLoading = true
	c.state.Batch = nil
	c.state.BatchNotice = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.BatchLoading = false
		c.mu.Unlock()
	}()

	results, err := c.detector.Predefined(ctx)
	if err != nil {
		notice := batchNotice + failureMessage(err, batchFallback)
		c.logger.Error("batch detection failed",
			"error", err,
			"request_id", requestid.FromContext(ctx),
		)

		c.mu.Lock()
		c.state.BatchNotice = notice
		c.mu.Unlock()
		return &errs.AppError{Kind: kindOf(err), Message: notice, Cause: err}
	}

	if results == nil {
		results = []model.ResultRecord{}
	}

	c.mu.Lock()
	c.state.Batch = results
	c.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if s.Single != nil {
		rec := *s.Single
		s.Single = &rec
	}
	s.Batch = append([]model.ResultRecord(nil), s.Batch...)
	return s
}

// failureMessage picks the user-facing text for err: the service's detail
// or error field when it sent one, else fallback.
func failureMessage(err error, fallback string) string {
	var appErr *errs.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

func kindOf(err error) errs.Kind {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return errs.Unknown
}
