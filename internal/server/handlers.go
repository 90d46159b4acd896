package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/recorder"
	"github.com/mj1618/rum-replay/internal/recorder/mapper"
)

// SnapshotResult is the snapshot tool output.
type SnapshotResult struct {
	Source     string             `yaml:"source"     json:"source"`
	Screen     model.ScreenBounds `yaml:"screen"     json:"screen"`
	Elements   int                `yaml:"elements"   json:"elements"`
	Wireframes []model.Wireframe  `yaml:"wireframes" json:"wireframes"`
}

// DiffResult is the diff tool output. Mutation is nil when nothing changed.
type DiffResult struct {
	Before   int                 `yaml:"before_wireframes" json:"before_wireframes"`
	After    int                 `yaml:"after_wireframes"  json:"after_wireframes"`
	Mutation *model.MutationData `yaml:"mutation"          json:"mutation"`
}

func toText(v interface{}) (*mcp.CallToolResult, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) producer(params map[string]interface{}) (*recorder.SnapshotProducer, error) {
	privacy := s.privacy
	if v := stringParam(params, "privacy", ""); v != "" {
		p, err := mapper.ParsePrivacy(v)
		if err != nil {
			return nil, err
		}
		privacy = p
	}
	return recorder.NewSnapshotProducer(s.traversal, privacy, s.logger, s.metrics), nil
}

func (s *Server) readWindow(source string, fresh bool) (*model.Window, error) {
	if source == "" {
		return nil, fmt.Errorf("source is required")
	}
	reader, err := s.open(source)
	if err != nil {
		return nil, err
	}
	if fresh {
		s.cache.Invalidate(source)
	}
	return s.cache.ReadWindow(source, reader)
}

func (s *Server) handleSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	source := stringParam(params, "source", "")

	p, err := s.producer(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	win, err := s.readWindow(source, boolParam(params, "fresh", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	wfs, err := p.Wireframes(ctx, s.loop, win, s.imageWait)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toText(SnapshotResult{
		Source:     source,
		Screen:     win.System.Screen,
		Elements:   model.CountElements(win.Root),
		Wireframes: wfs,
	})
}

func (s *Server) handleDiff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	p, err := s.producer(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var snapshots [2][]model.Wireframe
	for i, key := range []string{"before", "after"} {
		win, err := s.readWindow(stringParam(params, key, ""), false)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", key, err)), nil
		}
		snapshots[i], err = p.Wireframes(ctx, s.loop, win, s.imageWait)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", key, err)), nil
		}
	}
	return toText(DiffResult{
		Before:   len(snapshots[0]),
		After:    len(snapshots[1]),
		Mutation: model.ResolveMutations(snapshots[0], snapshots[1]),
	})
}

func (s *Server) handleSessionContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	if boolParam(params, "reset", false) {
		if !s.monitor.ResetSession() {
			return mcp.NewToolResultError("rum event queue full"), nil
		}
	}
	if key := stringParam(params, "view", ""); key != "" {
		if !s.monitor.StartView(key, stringParam(params, "name", "")) {
			return mcp.NewToolResultError("rum event queue full"), nil
		}
	}
	if err := s.monitor.Sync(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toText(s.monitor.Context())
}

// Parameter extraction helpers for tool arguments

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func boolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
