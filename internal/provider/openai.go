package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"screencast-insights-go/internal/config"
)

// transcriptionHint primes speech-to-text with the recording's usual subject.
const transcriptionHint = "The user is explaining a development issue, bug, or feature request for their application."

type openAI struct {
	settings config.ProviderConfig
	c        *client
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *openAI) Name() Name { return OpenAI }

func (p *openAI) DescribeFrame(ctx context.Context, image []byte, prompt string) (string, error) {
	body := map[string]any{
		"model": p.settings.Model,
		"messages": []map[string]any{{
			"role": "user",
			"content": []map[string]any{
				{"type": "text", "text": prompt},
				{"type": "image_url", "image_url": map[string]string{
					"url": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		"max_tokens":  1000,
		"temperature": 0.0,
	}
	return p.chat(ctx, body)
}

func (p *openAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	body := map[string]any{
		"model": p.settings.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  2000,
		"temperature": 0.7,
	}
	return p.chat(ctx, body)
}

func (p *openAI) chat(ctx context.Context, body map[string]any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	var out chatResponse
	err = p.c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url("/chat/completions"), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.settings.APIKey)
		return req, nil
	}, &out)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (p *openAI) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	for _, f := range [][2]string{
		{"model", p.settings.TranscribeModel},
		{"language", "en"},
		{"prompt", transcriptionHint},
	} {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	form := b.Bytes()

	var out struct {
		Text string `json:"text"`
	}
	err = p.c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url("/audio/transcriptions"), bytes.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+p.settings.APIKey)
		return req, nil
	}, &out)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

func (p *openAI) TestConnection(ctx context.Context) error {
	var out struct {
		Data []json.RawMessage `json:"data"`
	}
	return p.c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url("/models"), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+p.settings.APIKey)
		return req, nil
	}, &out)
}

func (p *openAI) url(path string) string {
	return strings.TrimRight(p.settings.BaseURL, "/") + path
}
