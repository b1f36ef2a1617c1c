// Package mcpserver exposes recording processing as MCP tools so a coding
// agent can pull frames and metadata directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/types"
)

const (
	Name    = "screencast-insights"
	Version = "0.1.0"

	dataURLPrefix = "data:image/jpeg;base64,"
)

// Pipeline is satisfied by *processor.Processor.
type Pipeline interface {
	Process(ctx context.Context, raw []byte, onProgress func(float64)) (types.ProcessedMetadata, error)
	ExportForExternalAgent(ctx context.Context, raw []byte, onProgress func(float64)) (types.AgentExport, error)
}

type Tools struct {
	pipeline Pipeline
	log      *logger.Logger
}

func NewTools(p Pipeline) *Tools {
	return &Tools{pipeline: p, log: logger.Component("mcp")}
}

// New builds an MCP server with the recording tools registered.
func New(p Pipeline) *server.MCPServer {
	t := NewTools(p)
	s := server.NewMCPServer(Name, Version, server.WithToolCapabilities(false))

	path := mcp.WithString("path", mcp.Required(), mcp.Description("Path to a screen recording (webm or mp4)"))
	s.AddTool(mcp.NewTool("export_recording",
		mcp.WithDescription("Sample key frames and transcribe a screen recording. Returns the frames as images plus the transcript and instructions."),
		path,
	), t.ExportRecording)
	s.AddTool(mcp.NewTool("process_recording",
		mcp.WithDescription("Run the full analysis on a screen recording and return its metadata as JSON."),
		path,
	), t.ProcessRecording)
	return s
}

func (t *Tools) read(req mcp.CallToolRequest) ([]byte, string, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return nil, "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read recording: %w", err)
	}
	return raw, path, nil
}

func (t *Tools) ExportRecording(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, path, err := t.read(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := t.pipeline.ExportForExternalAgent(ctx, raw, nil)
	if err != nil {
		t.log.WithError(err).WithField("path", path).Warn("export failed")
		return mcp.NewToolResultError(err.Error()), nil
	}

	content := []mcp.Content{mcp.NewTextContent(out.Instructions)}
	for _, f := range out.Frames {
		content = append(content, mcp.NewImageContent(strings.TrimPrefix(f, dataURLPrefix), "image/jpeg"))
	}
	t.log.WithField("path", path).WithField("frames", len(out.Frames)).Info("recording exported")
	return &mcp.CallToolResult{Content: content}, nil
}

func (t *Tools) ProcessRecording(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, path, err := t.read(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := t.pipeline.Process(ctx, raw, nil)
	if err != nil {
		t.log.WithError(err).WithField("path", path).Warn("process failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return nil, err
	}
	t.log.WithField("path", path).WithField("session_id", md.SessionID).Info("recording processed")
	return mcp.NewToolResultText(string(b)), nil
}
