// Package mcp exposes wizard sessions as MCP tools, so an agent can fill a
// rental contract or vehicle record step by step.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/internal/presentation/view"
	"github.com/aretw0/rentdesk/internal/runtime"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/aretw0/rentdesk/pkg/session"
	"github.com/aretw0/rentdesk/pkg/wizard"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Engine opens sessions of registered wizards.
type Engine interface {
	Wizards() []string
	Definition(name string) (*wizard.Definition, error)
	Open(ctx context.Context, name, entityID string, opts ...runtime.Option) (*runtime.Session, error)
}

// Server wraps the engine as an MCP server.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	mcpServer *server.MCPServer
	handlers  map[string]server.ToolHandlerFunc
	logger    *slog.Logger
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

// NewServer creates the MCP server and registers its tools.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		handlers: make(map[string]server.ToolHandlerFunc),
		logger:   logging.NewNop(),
		mcpServer: server.NewMCPServer("rentdesk", version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(session.WithLogger(s.logger))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on Stdin/Stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	defer s.sessions.Shutdown()
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP serves the streamable HTTP transport on addr until ctx ends.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(s.mcpServer))
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening", "address", addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.sessions.Shutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by open_wizard"))
}

func fieldArg(desc string) mcp.ToolOption {
	return mcp.WithString("field", mcp.Required(), mcp.Description(desc))
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.handlers[tool.Name] = handler
	s.mcpServer.AddTool(tool, handler)
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("open_wizard",
		mcp.WithDescription("Open a wizard session. Omit entity_id to create a new record; pass it to edit an existing one."),
		mcp.WithString("wizard", mcp.Required(), mcp.Description("Wizard name, e.g. contract or vehicle")),
		mcp.WithString("entity_id", mcp.Description("Record to edit (optional)")),
	), s.handleOpen)

	s.addTool(mcp.NewTool("view",
		mcp.WithDescription("Show the active step, its fields, errors and the step indicator."),
		sessionArg(),
	), s.handleView)

	s.addTool(mcp.NewTool("set_field",
		mcp.WithDescription("Write one field. Derived fields and option lists update before the call returns."),
		sessionArg(),
		fieldArg("Field key"),
		mcp.WithString("value", mcp.Description("New value; numbers may be passed as text")),
	), s.handleSetField)

	s.addTool(mcp.NewTool("search",
		mcp.WithDescription("Search the entities offered by a picker field (customer, vehicle, inspector)."),
		sessionArg(),
		fieldArg("Picker field key"),
		mcp.WithString("query", mcp.Description("Free text; empty lists the first page")),
	), s.handleSearch)

	s.addTool(mcp.NewTool("select",
		mcp.WithDescription("Select an entity from the latest search results; fills its related read-only fields."),
		sessionArg(),
		fieldArg("Picker field key"),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("ID from the search results")),
	), s.handleSelect)

	s.addTool(mcp.NewTool("next",
		mcp.WithDescription("Validate the active step and advance. On the last step this submits."),
		sessionArg(),
	), s.stepTool(func(ctx context.Context, sess *runtime.Session, _ mcp.CallToolRequest) error {
		return sess.Next(ctx)
	}))

	s.addTool(mcp.NewTool("back",
		mcp.WithDescription("Go to the previous step without validating."),
		sessionArg(),
	), s.stepTool(func(_ context.Context, sess *runtime.Session, _ mcp.CallToolRequest) error {
		return sess.Back()
	}))

	s.addTool(mcp.NewTool("jump",
		mcp.WithDescription("Jump to a completed step or any earlier step."),
		sessionArg(),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based step index")),
	), s.stepTool(func(_ context.Context, sess *runtime.Session, req mcp.CallToolRequest) error {
		idx, err := req.RequireInt("index")
		if err != nil {
			return err
		}
		return sess.JumpTo(idx)
	}))

	s.addTool(mcp.NewTool("submit",
		mcp.WithDescription("Submit from the last step."),
		sessionArg(),
	), s.stepTool(func(ctx context.Context, sess *runtime.Session, _ mcp.CallToolRequest) error {
		return sess.Submit(ctx)
	}))

	s.addTool(mcp.NewTool("close",
		mcp.WithDescription("Abandon the session."),
		sessionArg(),
	), s.handleClose)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("rentdesk://wizards", "Registered wizards",
		mcp.WithMIMEType("application/json"),
	), func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type step struct {
			ID     domain.StepID `json:"id"`
			Fields []string      `json:"fields"`
		}
		out := map[string][]step{}
		for _, name := range s.engine.Wizards() {
			def, err := s.engine.Definition(name)
			if err != nil {
				continue
			}
			for _, st := range def.Steps {
				out[name] = append(out[name], step{ID: st.ID, Fields: st.Fields})
			}
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: "rentdesk://wizards", MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func (s *Server) handleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("wizard")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.engine.Open(ctx, name, req.GetString("entity_id", ""))
	if err != nil {
		return failure(err, nil), nil
	}
	s.sessions.Add(sess)
	return success(view.Build(sess, nil)), nil
}

func (s *Server) handleView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.stepTool(func(context.Context, *runtime.Session, mcp.CallToolRequest) error { return nil })(ctx, req)
}

func (s *Server) handleSetField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.stepTool(func(ctx context.Context, sess *runtime.Session, req mcp.CallToolRequest) error {
		field, err := req.RequireString("field")
		if err != nil {
			return err
		}
		value, err := sanitize(req.GetArguments()["value"])
		if err != nil {
			return err
		}
		return sess.SetField(ctx, field, value)
	})(ctx, req)
}

func (s *Server) handleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.stepTool(func(ctx context.Context, sess *runtime.Session, req mcp.CallToolRequest) error {
		field, err := req.RequireString("field")
		if err != nil {
			return err
		}
		id, err := req.RequireString("entity_id")
		if err != nil {
			return err
		}
		return sess.Select(ctx, field, id)
	})(ctx, req)
}

type hit struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return failure(err, nil), nil
	}
	query, err := sanitize(req.GetString("query", ""))
	if err != nil {
		return failure(err, nil), nil
	}
	found, err := sess.Search(ctx, field, query.(string))
	if err != nil {
		return failure(err, nil), nil
	}
	hits := make([]hit, 0, len(found))
	for _, e := range found {
		hits = append(hits, hit{ID: e.EntityID(), Label: e.Label()})
	}
	return jsonResult(map[string]any{"field": field, "results": hits}, false), nil
}

func (s *Server) handleClose(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Remove(id); err != nil {
		return failure(err, nil), nil
	}
	return mcp.NewToolResultText("closed"), nil
}

type toolOp func(context.Context, *runtime.Session, mcp.CallToolRequest) error

// stepTool runs op under the session lock and answers with the view.
func (s *Server) stepTool(op toolOp) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var result *mcp.CallToolResult
		err = s.sessions.WithLock(ctx, id, func(ctx context.Context, sess *runtime.Session) error {
			opErr := op(ctx, sess, req)
			v := view.Build(sess, nil)
			if opErr != nil {
				result = failure(opErr, &v)
				return nil
			}
			result = success(v)
			if v.Status == domain.StatusClosed {
				_ = s.sessions.Remove(id)
			}
			return nil
		})
		if err != nil {
			return failure(err, nil), nil
		}
		return result, nil
	}
}

type errorBody struct {
	Error  string             `json:"error"`
	Fields domain.FieldErrors `json:"fields,omitempty"`
	View   *view.View         `json:"view,omitempty"`
}

func failure(err error, v *view.View) *mcp.CallToolResult {
	body := errorBody{Error: err.Error(), View: v}
	var stepErr *domain.StepValidationError
	var submitErr *domain.SubmissionError
	switch {
	case errors.As(err, &stepErr):
		body.Fields = stepErr.Fields
	case errors.As(err, &submitErr):
		body.Error = submitErr.Message
	}
	return jsonResult(body, true)
}

func success(v view.View) *mcp.CallToolResult {
	return jsonResult(v, false)
}

func jsonResult(v any, isError bool) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	if isError {
		return mcp.NewToolResultError(string(data))
	}
	return mcp.NewToolResultText(string(data))
}
