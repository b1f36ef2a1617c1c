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

type gemini struct {
	settings config.ProviderConfig
	c        *client
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inline_data,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *gemini) Name() Name { return Gemini }

func (p *gemini) DescribeFrame(ctx context.Context, image []byte, prompt string) (string, error) {
	return p.generate(ctx, geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{
		{Text: prompt},
		{InlineData: &geminiInline{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString(image)}},
	}}}})
}

func (p *gemini) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return p.generate(ctx, geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{
		{Text: "Transcribe this audio verbatim. Return only the spoken words. " + transcriptionHint},
		{InlineData: &geminiInline{MimeType: "audio/wav", Data: base64.StdEncoding.EncodeToString(audio)}},
	}}}})
}

func (p *gemini) Complete(ctx context.Context, system, prompt string) (string, error) {
	return p.generate(ctx, geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
}

func (p *gemini) generate(ctx context.Context, body geminiRequest) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	endpoint := p.url("/models/" + p.settings.Model + ":generateContent")
	var out geminiResponse
	err = p.c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", p.settings.APIKey)
		return req, nil
	}, &out)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	var sb strings.Builder
	if len(out.Candidates) > 0 {
		for _, part := range out.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *gemini) TestConnection(ctx context.Context) error {
	var out struct {
		Models []json.RawMessage `json:"models"`
	}
	return p.c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url("/models"), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-goog-api-key", p.settings.APIKey)
		return req, nil
	}, &out)
}

// url never carries the key; transport errors quote the full URL.
func (p *gemini) url(path string) string {
	return strings.TrimRight(p.settings.BaseURL, "/") + path
}
