package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/cartography"
	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/projector"
	"github.com/aretw0/cartography/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionsURI is the resource listing live sessions.
const SessionsURI = "cartography://sessions"

// SessionResponse is returned by tools that act on a whole session.
type SessionResponse struct {
	Session session.Info     `json:"session" jsonschema_description:"Summary of the session"`
	Result  domain.RunResult `json:"result" jsonschema_description:"Outcome of the latest run"`
}

// SessionArgs addresses a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// StartArgs are the arguments of start_reasoning.
type StartArgs struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Steps     int    `json:"steps"`
	DelayMS   int    `json:"delay_ms"`
	Chaining  string `json:"chaining"`
	Wait      bool   `json:"wait"`
}

// LogArgs are the arguments of get_log.
type LogArgs struct {
	SessionID string `json:"session_id"`
	Last      int    `json:"last"`
}

// LogResponse wraps log entries so the structured output is an object.
type LogResponse struct {
	Entries []domain.LogEntry `json:"entries" jsonschema_description:"Step log, oldest first"`
}

// Server exposes sessions as MCP tools.
type Server struct {
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("cartography-mcp", strings.TrimSpace(cartography.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on the given port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create an empty reasoning graph session."),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleCreateSession))

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List live sessions."),
	), s.handleListSessions)

	s.mcpServer.AddTool(mcp.NewTool("start_reasoning",
		mcp.WithDescription("Animate a reasoning run for a query. Creates a session when session_id is omitted."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The question to reason about")),
		mcp.WithString("session_id", mcp.Description("Existing session to reuse (optional)")),
		mcp.WithNumber("steps", mcp.Description("Number of reasoning steps (default 5)")),
		mcp.WithNumber("delay_ms", mcp.Description("Pause between steps in milliseconds")),
		mcp.WithString("chaining", mcp.Description("Edge policy: linear or branch"), mcp.Enum("linear", "branch")),
		mcp.WithBoolean("wait", mcp.Description("Block until the run finishes")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("get_snapshot",
		mcp.WithDescription("Get the projected graph (nodes with colors and sizes, links) of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[projector.Visual](),
	), mcp.NewStructuredToolHandler(s.handleSnapshot))

	s.mcpServer.AddTool(mcp.NewTool("get_log",
		mcp.WithDescription("Get the latest entries of the step log."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("last", mcp.Description("Number of entries, 0 for all (default 10)")),
		mcp.WithOutputSchema[LogResponse](),
	), mcp.NewStructuredToolHandler(s.handleLog))

	s.mcpServer.AddTool(mcp.NewTool("get_mermaid",
		mcp.WithDescription("Render the session graph as a Mermaid flowchart."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleMermaid)

	s.mcpServer.AddTool(mcp.NewTool("cancel_run",
		mcp.WithDescription("Cancel the running animation of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleCancel))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Clear the graph of an idle session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))
}

func (s *Server) handleCreateSession(ctx context.Context, _ mcp.CallToolRequest, _ SessionArgs) (SessionResponse, error) {
	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return SessionResponse{}, err
	}
	return describe(sess), nil
}

func (s *Server) handleListSessions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(s.sessions.List())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (SessionResponse, error) {
	if args.DelayMS < 0 {
		return SessionResponse{}, fmt.Errorf("%w: delay_ms must not be negative", domain.ErrInvalidRequest)
	}

	var (
		sess *session.Session
		err  error
	)
	if args.SessionID == "" {
		sess, err = s.sessions.Create(ctx)
	} else {
		sess, err = s.sessions.Get(args.SessionID)
	}
	if err != nil {
		return SessionResponse{}, err
	}

	req := domain.RunRequest{
		Query:    args.Query,
		Steps:    args.Steps,
		Delay:    time.Duration(args.DelayMS) * time.Millisecond,
		Chaining: domain.ChainPolicy(args.Chaining),
	}
	if err := s.sessions.Start(ctx, sess.ID, req); err != nil {
		return SessionResponse{}, err
	}
	s.logger.Info("MCP run started", "session_id", sess.ID, "steps", req.Steps)

	if args.Wait {
		if _, err := sess.Driver.Wait(ctx); err != nil {
			return SessionResponse{}, err
		}
	}
	return describe(sess), nil
}

func (s *Server) handleSnapshot(_ context.Context, _ mcp.CallToolRequest, args SessionArgs) (projector.Visual, error) {
	sess, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return projector.Visual{}, err
	}
	return projector.Project(sess.Graph.Snapshot()), nil
}

func (s *Server) handleLog(_ context.Context, _ mcp.CallToolRequest, args LogArgs) (LogResponse, error) {
	sess, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return LogResponse{}, err
	}
	if args.Last < 0 {
		return LogResponse{}, fmt.Errorf("%w: last must not be negative", domain.ErrInvalidRequest)
	}
	entries := sess.Graph.LogEntries()
	if args.Last > 0 {
		entries = domain.TailLog(entries, args.Last)
	}
	return LogResponse{Entries: entries}, nil
}

func (s *Server) handleMermaid(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var overlay *projector.MermaidOverlay
	if sess.Driver.Status() == domain.StatusRunning {
		overlay = &projector.MermaidOverlay{CurrentNode: sess.Graph.LastID()}
	}
	return mcp.NewToolResultText(projector.Mermaid(sess.Graph.Snapshot(), overlay)), nil
}

func (s *Server) handleCancel(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionResponse, error) {
	sess, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return SessionResponse{}, err
	}
	if err := s.sessions.Cancel(args.SessionID); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		return SessionResponse{}, err
	}
	if _, err := sess.Driver.Wait(ctx); err != nil {
		return SessionResponse{}, err
	}
	return describe(sess), nil
}

func (s *Server) handleReset(_ context.Context, _ mcp.CallToolRequest, args SessionArgs) (SessionResponse, error) {
	if err := s.sessions.Reset(args.SessionID); err != nil {
		return SessionResponse{}, err
	}
	sess, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return SessionResponse{}, err
	}
	return describe(sess), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Live Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.sessions.List())
		if err != nil {
			return nil, fmt.Errorf("failed to encode sessions: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SessionsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func describe(sess *session.Session) SessionResponse {
	return SessionResponse{Session: sess.Info(), Result: sess.Driver.Result()}
}
