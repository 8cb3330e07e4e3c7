// Package webcheckout bridges a hosted checkout page to the orchestrator
// over HTTP. The page fetches its configuration and posts its terminal
// event back; the server forwards that event to the session's callbacks.
package webcheckout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/vitwit/checkout/clients"
	"github.com/vitwit/checkout/logger"
)

var (
	ErrNotFound      = errors.New("checkout session not found")
	ErrAlreadyActive = errors.New("checkout session already active for reference")
)

var _ clients.EmbeddedCheckout = (*Server)(nil)

type session struct {
	cfg clients.EmbeddedConfig
	cb  clients.Callbacks
}

// Server implements clients.EmbeddedCheckout. It does not deduplicate
// events; the page may post more than once and the orchestrator's latch
// decides which one counts.
type Server struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   logger.Logger
}

func NewServer(log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Server{
		sessions: make(map[string]*session),
		logger:   log,
	}
}

// Handler returns a router with the checkout routes mounted at the root.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.AppendRoutes(r)
	return r
}

func (s *Server) AppendRoutes(r chi.Router) {
	r.Route("/checkout/{reference}", func(r chi.Router) {
		r.Get("/", s.getConfig)
		r.Post("/complete", s.complete)
		r.Post("/error", s.fail)
		r.Post("/cancel", s.cancel)
	})
}

// Open registers a session. It is released by Close or when ctx ends.
func (s *Server) Open(ctx context.Context, cfg clients.EmbeddedConfig, cb clients.Callbacks) error {
	ref := cfg.MerchantReference
	if ref == "" {
		return fmt.Errorf("open checkout session: merchant reference is required")
	}

	s.mu.Lock()
	if _, ok := s.sessions[ref]; ok {
		s.mu.Unlock()
		return fmt.Errorf("open checkout session %s: %w", ref, ErrAlreadyActive)
	}
	sess := &session{cfg: cfg, cb: cb}
	s.sessions[ref] = sess
	s.mu.Unlock()

	s.logger.Info("checkout session opened", map[string]any{"merchantReference": ref})

	go func() {
		<-ctx.Done()
		s.release(ref, sess)
	}()
	return nil
}

func (s *Server) Close(reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[reference]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, reference)
	s.logger.Debug("checkout session closed", map[string]any{"merchantReference": reference})
	return nil
}

// Active reports the number of open sessions.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// release drops ref only if it still points at sess, so a newer session
// under the same reference survives.
func (s *Server) release(ref string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[ref]; ok && cur == sess {
		delete(s.sessions, ref)
	}
}

func (s *Server) lookup(r *http.Request) (*session, string) {
	ref := chi.URLParam(r, "reference")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[ref], ref
}

type configResponse struct {
	Script string            `json:"script"`
	Config map[string]string `json:"config"`
	// Literal is the configuration as a JavaScript object literal.
	Literal string `json:"literal"`
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	sess, ref := s.lookup(r)
	if sess == nil {
		http.Error(w, fmt.Sprintf("%s: %s", ErrNotFound, ref), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(configResponse{
		Script:  sess.cfg.Endpoint,
		Config:  sess.cfg.Fields(),
		Literal: sess.cfg.Script(),
	})
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	s.deliver(w, r, "complete", func(sess *session, body map[string]any) {
		sess.cb.OnComplete(body)
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request) {
	s.deliver(w, r, "error", func(sess *session, body map[string]any) {
		sess.cb.OnError(body)
	})
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	sess, ref := s.lookup(r)
	if sess == nil {
		http.Error(w, fmt.Sprintf("%s: %s", ErrNotFound, ref), http.StatusNotFound)
		return
	}
	s.logger.Info("checkout cancelled by user", map[string]any{"merchantReference": ref})
	sess.cb.OnCancel()
	w.WriteHeader(http.StatusAccepted)
}

// deliver decodes the posted JSON payload. A body that is not a JSON object
// is rejected with 400 and not forwarded, so the page can post again.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, event string, fn func(*session, map[string]any)) {
	sess, ref := s.lookup(r)
	if sess == nil {
		http.Error(w, fmt.Sprintf("%s: %s", ErrNotFound, ref), http.StatusNotFound)
		return
	}

	body := map[string]any{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		s.logger.Warn("rejected checkout callback", map[string]any{
			"merchantReference": ref,
			"event":             event,
			"error":             err.Error(),
		})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Info("checkout callback received", map[string]any{"merchantReference": ref, "event": event})
	fn(sess, body)
	w.WriteHeader(http.StatusAccepted)
}
