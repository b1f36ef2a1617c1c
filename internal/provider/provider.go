// Package provider is the closed set of AI backends the pipeline can talk to.
// Every backend satisfies the same contract so callers never branch on vendor.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"screencast-insights-go/internal/config"
)

type Name string

const (
	OpenAI Name = "openai"
	Gemini Name = "gemini"
	Claude Name = "claude"
)

var (
	// ErrUnsupported marks a capability the backend does not offer, such as
	// speech-to-text on Claude.
	ErrUnsupported   = errors.New("capability not supported by provider")
	ErrNotConfigured = errors.New("provider api key not configured")
	ErrUnknown       = errors.New("unknown provider")
	ErrEmptyResponse = errors.New("provider returned no text")
)

type Provider interface {
	Name() Name
	// DescribeFrame sends one JPEG with an instruction and returns the text.
	DescribeFrame(ctx context.Context, image []byte, prompt string) (string, error)
	// Transcribe converts a WAV buffer to text.
	Transcribe(ctx context.Context, audio []byte) (string, error)
	// Complete runs a plain text prompt with a system instruction.
	Complete(ctx context.Context, system, prompt string) (string, error)
	TestConnection(ctx context.Context) error
}

// New builds the provider selected in cfg.
func New(cfg config.Config) (Provider, error) {
	return NewNamed(Name(cfg.Provider), cfg)
}

// NewNamed builds a specific provider with cfg's credentials and timeouts.
func NewNamed(name Name, cfg config.Config) (Provider, error) {
	settings := cfg.ProviderSettings(string(name))
	c := newClient(
		time.Duration(cfg.HTTPTimeoutSec)*time.Second,
		time.Duration(cfg.MaxRetrySec)*time.Second,
		string(name),
	)
	switch name {
	case OpenAI, Gemini, Claude:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	switch name {
	case OpenAI:
		return &openAI{settings: settings, c: c}, nil
	case Gemini:
		return &gemini{settings: settings, c: c}, nil
	default:
		return &claude{settings: settings, c: c}, nil
	}
}
