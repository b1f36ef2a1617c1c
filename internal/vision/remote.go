package vision

import (
	"context"

	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/types"
)

// FramePrompt is sent with every frame in remote mode.
const FramePrompt = "Extract all text visible in this screenshot. Pay special attention to any " +
	"mathematical expressions, numbers, and operators, and reproduce them exactly. " +
	"Also include error messages, code, and UI labels. Return only the extracted text."

// RemoteStrategy asks a vision-capable provider to read the frame and takes
// the reply verbatim.
type RemoteStrategy struct {
	p provider.Provider
}

func NewRemoteStrategy(p provider.Provider) *RemoteStrategy {
	return &RemoteStrategy{p: p}
}

func (s *RemoteStrategy) Name() string { return "remote:" + string(s.p.Name()) }

func (s *RemoteStrategy) Describe(ctx context.Context, f types.Frame) (string, error) {
	return s.p.DescribeFrame(ctx, f.Image, FramePrompt)
}
