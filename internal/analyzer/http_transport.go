package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bahjat/auth-insight-tool/internal/model"
)

const (
	scrapeTimeout = 60 * time.Second
	batchTimeout  = 5 * time.Minute

	apiBanner = "Website Authentication Component Detector API"
)

const (
	msgURLRequired  = "Please provide url parameter"
	msgURLsRequired = "Please provide urls parameter"
	msgInvalidBody  = "Invalid request body. Please send a JSON object with a \"url\" or \"urls\" field."
)

// Transport handles HTTP requests for login-form detection.
type Transport struct {
	service *Service
	logger  *slog.Logger
}

// NewTransport creates an HTTP transport backed by the given service.
func NewTransport(service *Service, logger *slog.Logger) *Transport {
	return &Transport{service: service, logger: logger}
}

// RegisterRoutes attaches the transport's handlers to the given router.
func (t *Transport) RegisterRoutes(r chi.Router) {
	r.Get("/", t.handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape", t.handleScrape)
		r.Get("/scrape", t.handleScrapeQuery)
		r.Post("/scrape/batch", t.handleScrapeBatch)
		r.Get("/predefined", t.handlePredefined)
	})
}

func (t *Transport) handleRoot(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"message": apiBanner})
}

func (t *Transport) handleScrape(w http.ResponseWriter, r *http.Request) {
	req, ok := t.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.URL == "" {
		t.renderError(w, http.StatusBadRequest, msgURLRequired)
		return
	}
	t.scrape(w, r, req.URL)
}

func (t *Transport) handleScrapeQuery(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		t.renderError(w, http.StatusBadRequest, msgURLRequired)
		return
	}
	t.scrape(w, r, target)
}

func (t *Transport) scrape(w http.ResponseWriter, r *http.Request, target string) {
	ctx, cancel := context.WithTimeout(r.Context(), scrapeTimeout)
	defer cancel()

	t.renderJSON(w, http.StatusOK, t.service.Scrape(ctx, target))
}

func (t *Transport) handleScrapeBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := t.decodeRequest(w, r)
	if !ok {
		return
	}
	if len(req.URLs) == 0 {
		t.renderError(w, http.StatusBadRequest, msgURLsRequired)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), batchTimeout)
	defer cancel()

	t.renderJSON(w, http.StatusOK, model.BatchResponse{Results: t.service.ScrapeBatch(ctx, req.URLs)})
}

func (t *Transport) handlePredefined(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), batchTimeout)
	defer cancel()

	t.renderJSON(w, http.StatusOK, model.BatchResponse{Results: t.service.Predefined(ctx)})
}

func (t *Transport) decodeRequest(w http.ResponseWriter, r *http.Request) (model.ScrapeRequest, bool) {
	const maxRequestBody = 1 << 20 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req model.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, msgInvalidBody)
		return req, false
	}
	return req, true
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, detail string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Detail:     detail,
		Error:      http.StatusText(status),
		StatusCode: status,
	})
}
