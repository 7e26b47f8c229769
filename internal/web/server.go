// Package web serves the browser UI: a single page with the single-URL form,
// the predefined batch button and the rendered results.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bahjat/auth-insight-tool/internal/controller"
	"github.com/Bahjat/auth-insight-tool/internal/expand"
	"github.com/Bahjat/auth-insight-tool/internal/platform/middleware"
	"github.com/Bahjat/auth-insight-tool/internal/present"
	"github.com/Bahjat/auth-insight-tool/internal/render"
)

//go:embed templates/page.html
var templateFS embed.FS

const msgEnterURL = "Please enter a URL"

// Options configures a Server.
type Options struct {
	// Threshold is the character count above which a block gets a toggle.
	Threshold int
	// RequestTimeout bounds each call to the detection service.
	RequestTimeout time.Duration
	// ViewTTL is how long an idle view is kept.
	ViewTTL time.Duration
}

// Server is the UI's HTTP front end.
type Server struct {
	opts   Options
	logger *slog.Logger
	views  *viewStore
	page   *template.Template
}

// NewServer returns a Server whose views talk to detector.
func NewServer(detector controller.Detector, opts Options, logger *slog.Logger) (*Server, error) {
	page, err := template.New("page.html").Funcs(template.FuncMap{
		"bannerClass": bannerClass,
	}).ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}

	return &Server{
		opts:   opts,
		logger: logger,
		views: newViewStore(opts.ViewTTL, func() *controller.Controller {
			return controller.New(detector, logger)
		}),
		page: page,
	}, nil
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(s.logger))

	r.Get("/", s.handlePage)
	r.Post("/detect", s.handleDetect)
	r.Post("/predefined", s.handlePredefined)
	r.Post("/toggle", s.handleToggle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v, ok := s.views.get(r.URL.Query().Get("v"))
	if !ok {
		v = s.views.create()
		redirectToView(w, r, v.id, "")
		return
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, s.pageData(v)); err != nil {
		s.logger.Error("failed to render page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	v, ok := s.formView(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := v.controller.SubmitSingle(ctx, r.PostFormValue("url")); errors.Is(err, controller.ErrEmptyURL) {
		v.setNotice(msgEnterURL)
	}
	redirectToView(w, r, v.id, "")
}

func (s *Server) handlePredefined(w http.ResponseWriter, r *http.Request) {
	v, ok := s.formView(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	// The notice is kept in the controller state and shown on the next render.
	_ = v.controller.SubmitBatch(ctx)
	redirectToView(w, r, v.id, "")
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	v, ok := s.formView(w, r)
	if !ok {
		return
	}

	key := expand.Key(r.PostFormValue("key"))
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	v.registry.Toggle(key)
	redirectToView(w, r, v.id, key.Anchor())
}

// formView resolves the view named by the posted "v" field. Unknown or
// expired views send the browser back to a fresh page.
func (s *Server) formView(w http.ResponseWriter, r *http.Request) (*view, bool) {
	v, ok := s.views.get(r.PostFormValue("v"))
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return v, true
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}

func redirectToView(w http.ResponseWriter, r *http.Request, id, anchor string) {
	target := "/?v=" + url.QueryEscape(id)
	if anchor != "" {
		target += "#" + anchor
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// resultView pairs a presented result with the id of the view it belongs to,
// which its toggle forms must post back.
type resultView struct {
	ViewID string
	present.View
}

type pageData struct {
	ViewID string
	Notice string

	SingleLoading bool
	Single        *resultView

	BatchLoading bool
	BatchNotice  string
	Batch        []resultView

	// Refresh asks the browser to reload while a flow is still running.
	Refresh bool
}

func (s *Server) pageData(v *view) pageData {
	state := v.controller.Snapshot()
	presenter := present.New(render.New(s.opts.Threshold, v.registry))

	data := pageData{
		ViewID:        v.id,
		Notice:        v.takeNotice(),
		SingleLoading: state.SingleLoading,
		BatchLoading:  state.BatchLoading,
		BatchNotice:   state.BatchNotice,
		Refresh:       state.SingleLoading || state.BatchLoading,
	}
	if state.Single != nil {
		data.Single = &resultView{ViewID: v.id, View: presenter.Present(*state.Single, expand.Single())}
	}
	for _, pv := range presenter.PresentBatch(state.Batch) {
		data.Batch = append(data.Batch, resultView{ViewID: v.id, View: pv})
	}
	return data
}

func bannerClass(k present.BannerKind) string {
	switch k {
	case present.BannerFound:
		return "found"
	case present.BannerNotFound:
		return "not-found"
	default:
		return "error"
	}
}
