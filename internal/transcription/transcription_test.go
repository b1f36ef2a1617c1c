package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screencast-insights-go/internal/media"
	"screencast-insights-go/internal/provider"
)

type fakeExtractor struct {
	audio []byte
	err   error
	path  string
}

func (f *fakeExtractor) ExtractAudio(_ context.Context, path string) ([]byte, error) {
	f.path = path
	return f.audio, f.err
}

type fakeProvider struct {
	name provider.Name
	text string
	err  error
	got  []byte
}

func (f *fakeProvider) Name() provider.Name { return f.name }
func (f *fakeProvider) DescribeFrame(context.Context, []byte, string) (string, error) {
	return "", nil
}
func (f *fakeProvider) Transcribe(_ context.Context, audio []byte) (string, error) {
	f.got = audio
	return f.text, f.err
}
func (f *fakeProvider) Complete(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeProvider) TestConnection(context.Context) error                     { return nil }

func captured(t *testing.T) *media.Captured {
	t.Helper()
	m, err := media.New([]byte("webm"), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Release() })
	return m
}

func TestTranscribeOK(t *testing.T) {
	ex := &fakeExtractor{audio: []byte("RIFF....")}
	p := &fakeProvider{name: provider.OpenAI, text: "  the button is broken \n"}
	m := captured(t)

	res := New(p, ex).Transcribe(context.Background(), m)

	assert.Equal(t, Result{Text: "the button is broken", Status: StatusOK}, res)
	assert.True(t, res.Usable())
	assert.Equal(t, []byte("RIFF...."), p.got)
	_, err := os.Stat(ex.path)
	assert.NoError(t, err, "extractor receives the materialized recording")
}

func TestTranscribeDegrades(t *testing.T) {
	cases := []struct {
		name   string
		p      provider.Provider
		ex     *fakeExtractor
		status Status
		text   string
	}{
		{"no provider", nil, &fakeExtractor{audio: []byte("a")}, StatusUnavailable, NotAvailableText},
		{"unsupported", &fakeProvider{name: provider.Claude, err: fmt.Errorf("claude: %w", provider.ErrUnsupported)},
			&fakeExtractor{audio: []byte("a")}, StatusUnavailable, NotAvailableText},
		{"extract fails", &fakeProvider{name: provider.OpenAI}, &fakeExtractor{err: errors.New("ffmpeg missing")},
			StatusFailed, PlaceholderText},
		{"no audio", &fakeProvider{name: provider.OpenAI}, &fakeExtractor{}, StatusFailed, PlaceholderText},
		{"provider fails", &fakeProvider{name: provider.OpenAI, err: errors.New("status=500")},
			&fakeExtractor{audio: []byte("a")}, StatusFailed, PlaceholderText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := New(tc.p, tc.ex).Transcribe(context.Background(), captured(t))
			assert.Equal(t, tc.status, res.Status)
			assert.Equal(t, tc.text, res.Text)
			assert.False(t, res.Usable())
		})
	}
}

func TestTranscribeReleasedMedia(t *testing.T) {
	m := captured(t)
	require.NoError(t, m.Release())

	res := New(&fakeProvider{name: provider.OpenAI}, &fakeExtractor{}).Transcribe(context.Background(), m)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestFFmpegExtractorArgs(t *testing.T) {
	e := NewFFmpegExtractor("")
	assert.Equal(t, "ffmpeg", e.Bin)
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error", "-i", "/tmp/x.webm",
		"-vn", "-ac", "1", "-ar", "16000", "-f", "wav", "pipe:1"}, e.Args("/tmp/x.webm"))
}
