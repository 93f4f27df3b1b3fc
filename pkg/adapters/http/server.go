// Package http exposes wizard sessions as a JSON API.
//
// Every state-changing call answers with the session View, including a
// delta of the values changed since the previous response. Failures map to
// 422 (step validation), 409 (submission in flight, locked step, closed
// session), 502 (submission rejected) and 404 (unknown session or wizard).
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/internal/presentation/view"
	"github.com/aretw0/rentdesk/internal/runtime"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/runner"
	"github.com/aretw0/rentdesk/pkg/session"
	"github.com/aretw0/rentdesk/pkg/wizard"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine opens sessions of registered wizards.
type Engine interface {
	Wizards() []string
	Definition(name string) (*wizard.Definition, error)
	Open(ctx context.Context, name, entityID string, opts ...runtime.Option) (*runtime.Session, error)
}

// Server serves the wizard API.
type Server struct {
	engine   Engine
	sessions *session.Manager
	doc      *openapi3.T
	streams  *StreamManager
	logger   *slog.Logger
	router   chi.Router

	mu   sync.Mutex
	sent map[string]domain.FieldSet // session ID -> values of the last view
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSessionManager shares a session registry with other shells.
func WithSessionManager(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// New builds the API server. The embedded OpenAPI document is loaded and
// validated here, so a broken document fails at start.
func New(ctx context.Context, engine Engine, opts ...Option) (*Server, error) {
	doc, err := LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	s := &Server{
		engine:  engine,
		doc:     doc,
		streams: NewStreamManager(),
		logger:  logging.NewNop(),
		sent:    make(map[string]domain.FieldSet),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(session.WithLogger(s.logger))
	}
	s.router = s.routes()
	return s, nil
}

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Manager { return s.sessions }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/wizards", s.listWizards)
	r.With(s.validateBody).Post("/wizards/{wizard}/sessions", s.openSession)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Delete("/", s.closeSession)
		r.Get("/events", s.subscribeEvents)
		r.Get("/search/{field}", s.search)
		r.With(s.validateBody).Put("/fields/{field}", s.setField)
		r.With(s.validateBody).Post("/select/{field}", s.selectEntity)
		r.Post("/next", s.step(func(ctx context.Context, sess *runtime.Session, _ *http.Request) error {
			return sess.Next(ctx)
		}))
		r.Post("/back", s.step(func(_ context.Context, sess *runtime.Session, _ *http.Request) error {
			return sess.Back()
		}))
		r.Post("/submit", s.step(func(ctx context.Context, sess *runtime.Session, _ *http.Request) error {
			return sess.Submit(ctx)
		}))
		r.Post("/jump/{index}", s.step(func(_ context.Context, sess *runtime.Session, r *http.Request) error {
			idx, err := strconv.Atoi(chi.URLParam(r, "index"))
			if err != nil {
				return &badRequest{fmt.Errorf("invalid step index %q", chi.URLParam(r, "index"))}
			}
			return sess.JumpTo(idx)
		}))
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": len(s.sessions.List())})
}

type stepInfo struct {
	Index       int           `json:"index"`
	ID          domain.StepID `json:"id"`
	DisplayName string        `json:"display_name"`
	Fields      []string      `json:"fields"`
}

type wizardInfo struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Resource    string     `json:"resource"`
	Steps       []stepInfo `json:"steps"`
}

func (s *Server) listWizards(w http.ResponseWriter, _ *http.Request) {
	var out []wizardInfo
	for _, name := range s.engine.Wizards() {
		def, err := s.engine.Definition(name)
		if err != nil {
			continue
		}
		info := wizardInfo{Name: def.Name, DisplayName: def.DisplayName, Resource: def.Resource}
		for i, st := range def.Steps {
			info.Steps = append(info.Steps, stepInfo{Index: i, ID: st.ID, DisplayName: st.DisplayName, Fields: st.Fields})
		}
		out = append(out, info)
	}
	s.writeJSON(w, http.StatusOK, out)
}

type openRequest struct {
	Mode     domain.Mode `json:"mode"`
	EntityID string      `json:"entity_id"`
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, err, nil)
		return
	}
	switch {
	case req.Mode == domain.ModeEdit && req.EntityID == "":
		s.writeError(w, http.StatusBadRequest, errors.New("edit mode requires entity_id"), nil)
		return
	case req.Mode == domain.ModeCreate:
		req.EntityID = ""
	}

	sess, err := s.engine.Open(r.Context(), chi.URLParam(r, "wizard"), req.EntityID)
	if err != nil {
		s.fail(w, err, nil)
		return
	}
	s.sessions.Add(sess)

	v := s.render(sess)
	w.Header().Set("Location", "/sessions/"+sess.ID())
	s.writeJSON(w, http.StatusCreated, v)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.step(func(context.Context, *runtime.Session, *http.Request) error { return nil })(w, r)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Remove(id); err != nil {
		s.fail(w, err, nil)
		return
	}
	s.forget(id)
	w.WriteHeader(http.StatusNoContent)
}

type setFieldRequest struct {
	Value any `json:"value"`
}

func (s *Server) setField(w http.ResponseWriter, r *http.Request) {
	s.step(func(ctx context.Context, sess *runtime.Session, r *http.Request) error {
		var req setFieldRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return &badRequest{err}
		}
		value, err := runner.SanitizeValue(req.Value)
		if err != nil {
			return &badRequest{err}
		}
		return sess.SetField(ctx, chi.URLParam(r, "field"), value)
	})(w, r)
}

type selectRequest struct {
	EntityID string `json:"entity_id"`
}

func (s *Server) selectEntity(w http.ResponseWriter, r *http.Request) {
	s.step(func(ctx context.Context, sess *runtime.Session, r *http.Request) error {
		var req selectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return &badRequest{err}
		}
		return sess.Select(ctx, chi.URLParam(r, "field"), req.EntityID)
	})(w, r)
}

type searchHit struct {
	ID     string        `json:"id"`
	Label  string        `json:"label"`
	Entity domain.Entity `json:"entity"`
}

type searchResponse struct {
	Field   string      `json:"field"`
	Query   string      `json:"query"`
	Results []searchHit `json:"results"`
}

// search does not take the session lock: the session itself discards
// superseded searches.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err, nil)
		return
	}
	query, err := runner.SanitizeInput(r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err, nil)
		return
	}
	field := chi.URLParam(r, "field")
	found, err := sess.Search(r.Context(), field, query)
	if err != nil {
		s.fail(w, err, nil)
		return
	}
	resp := searchResponse{Field: field, Query: query, Results: make([]searchHit, 0, len(found))}
	for _, e := range found {
		resp.Results = append(resp.Results, searchHit{ID: e.EntityID(), Label: e.Label(), Entity: e})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// step runs op under the session lock and answers with the resulting view.
func (s *Server) step(op func(context.Context, *runtime.Session, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := s.sessions.WithLock(r.Context(), id, func(ctx context.Context, sess *runtime.Session) error {
			opErr := op(ctx, sess, r)
			v := s.render(sess)
			if opErr != nil {
				s.fail(w, opErr, &v)
				return nil
			}
			s.writeJSON(w, http.StatusOK, v)
			if v.Status == domain.StatusClosed {
				_ = s.sessions.Remove(id)
				s.forget(id)
			}
			return nil
		})
		if err != nil {
			s.fail(w, err, nil)
		}
	}
}

// render builds the view, records it as sent and publishes its delta.
func (s *Server) render(sess *runtime.Session) view.View {
	s.mu.Lock()
	prev := s.sent[sess.ID()]
	v := view.Build(sess, prev)
	s.sent[sess.ID()] = v.Values()
	s.mu.Unlock()

	if len(v.Delta) > 0 {
		if data, err := json.Marshal(v.Delta); err == nil {
			s.streams.Broadcast(sess.ID(), string(data))
		}
	}
	return v
}

func (s *Server) forget(id string) {
	s.mu.Lock()
	delete(s.sent, id)
	s.mu.Unlock()
	s.streams.CloseSession(id)
}

// Close closes every live session.
func (s *Server) Close() {
	for _, id := range s.sessions.List() {
		s.forget(id)
	}
	s.sessions.Shutdown()
}
