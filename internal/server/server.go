// Package server exposes snapshots, diffs and the live RUM context as Model
// Context Protocol tools.
package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/mj1618/rum-replay/internal/observability"
	"github.com/mj1618/rum-replay/internal/platform"
	"github.com/mj1618/rum-replay/internal/recorder"
	"github.com/mj1618/rum-replay/internal/recorder/mapper"
	"github.com/mj1618/rum-replay/internal/rum"
	"github.com/mj1618/rum-replay/internal/uithread"
	"github.com/mj1618/rum-replay/internal/version"
)

// Options configures a Server. Traversal, Loop and Monitor are required.
type Options struct {
	Traversal *recorder.Traversal
	Loop      *uithread.Loop
	Monitor   *rum.Monitor

	// Open resolves a UI source to a reader. Defaults to the registered
	// platform backend.
	Open func(source string) (platform.Reader, error)

	Privacy   mapper.Privacy
	CacheTTL  time.Duration
	ImageWait time.Duration
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
}

// Server wraps the MCP server with the capture pipeline and window cache.
type Server struct {
	traversal *recorder.Traversal
	loop      *uithread.Loop
	monitor   *rum.Monitor
	open      func(source string) (platform.Reader, error)
	privacy   mapper.Privacy
	imageWait time.Duration
	logger    zerolog.Logger
	metrics   *observability.Metrics

	cache *WindowCache
	mcp   *mcpserver.MCPServer
}

func New(opts Options) (*Server, error) {
	if opts.Traversal == nil || opts.Loop == nil || opts.Monitor == nil {
		return nil, errors.New("server: traversal, loop and monitor are required")
	}
	if opts.Open == nil {
		opts.Open = openProvider
	}
	if opts.Privacy == "" {
		opts.Privacy = mapper.PrivacyMask
	}
	if opts.ImageWait <= 0 {
		opts.ImageWait = 2 * time.Second
	}
	s := &Server{
		traversal: opts.Traversal,
		loop:      opts.Loop,
		monitor:   opts.Monitor,
		open:      opts.Open,
		privacy:   opts.Privacy,
		imageWait: opts.ImageWait,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		cache:     NewWindowCache(opts.CacheTTL),
	}
	s.mcp = mcpserver.NewMCPServer("rum-replay", version.Version)
	s.registerTools()
	return s, nil
}

func openProvider(source string) (platform.Reader, error) {
	p, err := platform.NewProvider(source)
	if err != nil {
		return nil, err
	}
	return p.Reader, nil
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcpserver.MCPServer { return s.mcp }

// Serve starts the MCP server with the given transport. addr is only used
// by streamable-http.
func (s *Server) Serve(transport, addr string) error {
	switch transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(addr)
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}
}

func (s *Server) registerTools() {
	// snapshot
	s.mcp.AddTool(
		mcp.NewTool("snapshot",
			mcp.WithDescription("Walk a UI tree and return the flattened replay wireframes a full snapshot would record"),
			mcp.WithString("source", mcp.Description("UI tree fixture (YAML or JSON file)"), mcp.Required()),
			mcp.WithString("privacy", mcp.Description("Masking level: allow or mask")),
			mcp.WithBoolean("fresh", mcp.Description("Bypass the window cache")),
		),
		s.handleSnapshot,
	)

	// diff
	s.mcp.AddTool(
		mcp.NewTool("diff",
			mcp.WithDescription("Compute the incremental mutation that turns one UI tree snapshot into another"),
			mcp.WithString("before", mcp.Description("UI tree fixture of the previous capture"), mcp.Required()),
			mcp.WithString("after", mcp.Description("UI tree fixture of the current capture"), mcp.Required()),
			mcp.WithString("privacy", mcp.Description("Masking level: allow or mask")),
		),
		s.handleDiff,
	)

	// session_context
	s.mcp.AddTool(
		mcp.NewTool("session_context",
			mcp.WithDescription("Return the active RUM context (application, session, view and action ids), optionally after starting a view or resetting the session"),
			mcp.WithString("view", mcp.Description("Start this view (key) before reading the context")),
			mcp.WithString("name", mcp.Description("Display name of the started view")),
			mcp.WithBoolean("reset", mcp.Description("Reset the session before reading the context")),
		),
		s.handleSessionContext,
	)
}
