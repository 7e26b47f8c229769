package analyzer

import (
	"context"

	"github.com/Bahjat/auth-insight-tool/internal/model"
)

// Detector defines the contract for any login-form detection engine.
// Per-URL failures are reported inside the returned records, never as errors.
type Detector interface {
	Detect(ctx context.Context, targetURL string) model.ResultRecord
	DetectAll(ctx context.Context, targetURLs []string, concurrency int) []model.ResultRecord
}
