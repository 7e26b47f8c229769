package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bahjat/auth-insight-tool/internal/controller"
	"github.com/Bahjat/auth-insight-tool/internal/expand"
)

// view is one browser session of the UI: its results and its expand state.
// Opening the root URL without a view id starts a fresh one, which is how a
// full reload clears everything.
type view struct {
	id         string
	controller *controller.Controller
	registry   *expand.Registry

	mu       sync.Mutex
	notice   string
	lastSeen time.Time
}

// setNotice records a one-shot message shown on the next render.
func (v *view) setNotice(msg string) {
	v.mu.Lock()
	v.notice = msg
	v.mu.Unlock()
}

// takeNotice returns and clears the pending notice.
func (v *view) takeNotice() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	msg := v.notice
	v.notice = ""
	return msg
}

// viewStore holds live views and drops those idle for longer than ttl.
type viewStore struct {
	mu    sync.Mutex
	views map[string]*view
	ttl   time.Duration
	now   func() time.Time
	build func() *controller.Controller
}

func newViewStore(ttl time.Duration, build func() *controller.Controller) *viewStore {
	return &viewStore{
		views: make(map[string]*view),
		ttl:   ttl,
		now:   time.Now,
		build: build,
	}
}

func (s *viewStore) create() *view {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	v := &view{
		id:         uuid.NewString(),
		controller: s.build(),
		registry:   expand.NewRegistry(),
		lastSeen:   s.now(),
	}
	s.views[v.id] = v
	return v
}

// get returns the live view with id and marks it as seen.
func (s *viewStore) get(id string) (*view, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	v, ok := s.views[id]
	if !ok {
		return nil, false
	}
	v.mu.Lock()
	v.lastSeen = s.now()
	v.mu.Unlock()
	return v, true
}

func (s *viewStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *viewStore) evictLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, v := range s.views {
		v.mu.Lock()
		idle := v.lastSeen.Before(cutoff)
		v.mu.Unlock()
		if idle {
			delete(s.views, id)
		}
	}
}
