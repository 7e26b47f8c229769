package detector

import (
	"context"
	"sync"

	"github.com/Bahjat/auth-insight-tool/internal/model"
)

const maxBatchURLs = 50

// DefaultConcurrency is the worker pool size used when none is configured.
const DefaultConcurrency = 5

type batchJob struct {
	index int
	url   string
}

// DetectAll runs Detect for every URL using a pool of workers sized by
// concurrency. Results come back in the order of urls. At most 50 URLs are
// processed; the rest are dropped.
func (e *Engine) DetectAll(ctx context.Context, urls []string, concurrency int) []model.ResultRecord {
	limit := min(len(urls), maxBatchURLs)
	urls = urls[:limit]

	results := make([]model.ResultRecord, limit)
	if limit == 0 {
		return results
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	jobs := make(chan batchJob, limit)

	var wg sync.WaitGroup
	for range min(limit, concurrency) {
		wg.Go(func() {
			for job := range jobs {
				// Each slot is written by exactly one worker.
				results[job.index] = e.Detect(ctx, job.url)
			}
		})
	}

	for i, u := range urls {
		jobs <- batchJob{index: i, url: u}
	}
	close(jobs)

	wg.Wait()
	return results
}
