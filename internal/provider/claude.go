package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"screencast-insights-go/internal/config"
)

const anthropicVersion = "2023-06-01"

type claude struct {
	settings config.ProviderConfig
	c        *client
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *claude) Name() Name { return Claude }

func (p *claude) DescribeFrame(ctx context.Context, image []byte, prompt string) (string, error) {
	return p.messages(ctx, map[string]any{
		"model":      p.settings.Model,
		"max_tokens": 1000,
		"messages": []map[string]any{{
			"role": "user",
			"content": []map[string]any{
				{"type": "image", "source": map[string]string{
					"type":       "base64",
					"media_type": "image/jpeg",
					"data":       base64.StdEncoding.EncodeToString(image),
				}},
				{"type": "text", "text": prompt},
			},
		}},
	})
}

// Transcribe is not offered by the Messages API.
func (p *claude) Transcribe(context.Context, []byte) (string, error) {
	return "", fmt.Errorf("claude transcription: %w", ErrUnsupported)
}

func (p *claude) Complete(ctx context.Context, system, prompt string) (string, error) {
	return p.messages(ctx, map[string]any{
		"model":      p.settings.Model,
		"max_tokens": 2000,
		"system":     system,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
	})
}

func (p *claude) messages(ctx context.Context, body map[string]any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	var out claudeResponse
	err = p.c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url("/messages"), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		p.headers(req)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &out)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *claude) TestConnection(ctx context.Context) error {
	var out struct {
		Data []json.RawMessage `json:"data"`
	}
	return p.c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url("/models"), nil)
		if err != nil {
			return nil, err
		}
		p.headers(req)
		return req, nil
	}, &out)
}

func (p *claude) headers(req *http.Request) {
	req.Header.Set("x-api-key", p.settings.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

func (p *claude) url(path string) string {
	return strings.TrimRight(p.settings.BaseURL, "/") + path
}
