package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"screencast-insights-go/internal/dataset"
	"screencast-insights-go/internal/frames"
	"screencast-insights-go/internal/processor"
	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/session"
	"screencast-insights-go/internal/solution"
	"screencast-insights-go/internal/types"
)

type fakePipeline struct {
	err error
	got []byte
}

func (p *fakePipeline) Process(_ context.Context, raw []byte, _ func(float64)) (types.ProcessedMetadata, error) {
	p.got = raw
	if p.err != nil {
		return types.ProcessedMetadata{}, p.err
	}
	return types.ProcessedMetadata{SessionID: "md-" + string(raw), UserContext: types.UserContext{RequestType: "bug_fix"}}, nil
}

func (p *fakePipeline) ExportForExternalAgent(_ context.Context, raw []byte, _ func(float64)) (types.AgentExport, error) {
	if p.err != nil {
		return types.AgentExport{}, p.err
	}
	return types.AgentExport{Frames: []string{"data:image/jpeg;base64,AA=="}, Transcript: "hi"}, nil
}

type fakeSessions struct {
	startErr error
	cancel   *types.ProcessedMetadata
}

func (f *fakeSessions) Start(context.Context) (types.RecordingSession, error) {
	if f.startErr != nil {
		return types.RecordingSession{}, f.startErr
	}
	return types.RecordingSession{ID: "s-1", Status: types.StatusRecording()}, nil
}

func (f *fakeSessions) Stop(context.Context, func(float64)) (types.ProcessedMetadata, error) {
	return types.ProcessedMetadata{}, session.ErrNotRecording
}

func (f *fakeSessions) Cancel(context.Context, func(float64)) (*types.ProcessedMetadata, error) {
	return f.cancel, nil
}

func (f *fakeSessions) Current() types.RecordingSession {
	return types.RecordingSession{ID: "s-1", Status: types.StatusCompleted()}
}

type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) Name() provider.Name { return provider.Gemini }
func (f *fakeProvider) DescribeFrame(context.Context, []byte, string) (string, error) {
	return "", nil
}
func (f *fakeProvider) Transcribe(context.Context, []byte) (string, error) { return "", nil }
func (f *fakeProvider) Complete(context.Context, string, string) (string, error) {
	return f.reply, f.err
}
func (f *fakeProvider) TestConnection(context.Context) error { return f.err }

func serve(t *testing.T, s *Service, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	rec := serve(t, New(Deps{Pipeline: &fakePipeline{}}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestProcess(t *testing.T) {
	p := &fakePipeline{}
	s := New(Deps{Pipeline: p})

	rec := serve(t, s, http.MethodPost, "/process", []byte("webm"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "md-webm", decode[types.ProcessedMetadata](t, rec).SessionID)
	assert.Equal(t, []byte("webm"), p.got)

	rec = serve(t, s, http.MethodPost, "/process", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, s, http.MethodGet, "/process", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProcessBodyTooLarge(t *testing.T) {
	s := New(Deps{Pipeline: &fakePipeline{}, MaxBodyBytes: 4})
	rec := serve(t, s, http.MethodPost, "/process", []byte("too large"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&processor.StageError{Stage: processor.StageSampling, Err: frames.ErrNoFrames}, http.StatusUnprocessableEntity},
		{session.ErrBusy, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := serve(t, New(Deps{Pipeline: &fakePipeline{err: tc.err}}), http.MethodPost, "/process", []byte("x"))
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
		assert.Equal(t, tc.err.Error(), decode[errorBody](t, rec).Error)
	}
}

func TestExport(t *testing.T) {
	rec := serve(t, New(Deps{Pipeline: &fakePipeline{}}), http.MethodPost, "/export", []byte("x"))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[types.AgentExport](t, rec)
	assert.Len(t, out.Frames, 1)
	assert.Equal(t, "hi", out.Transcript)
}

func TestSolution(t *testing.T) {
	body, err := json.Marshal(types.ProcessedMetadata{SessionID: "s-1"})
	require.NoError(t, err)

	rec := serve(t, New(Deps{Pipeline: &fakePipeline{}}), http.MethodPost, "/solution", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s := New(Deps{Pipeline: &fakePipeline{}, Provider: &fakeProvider{reply: `{"analysis":"a","solution":"do x"}`}})
	rec = serve(t, s, http.MethodPost, "/solution", body)
	require.Equal(t, http.StatusOK, rec.Code)
	sol := decode[solution.Solution](t, rec)
	assert.Equal(t, "do x", sol.Solution)
	assert.Equal(t, "gemini", sol.Provider)

	rec = serve(t, s, http.MethodPost, "/solution", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s = New(Deps{Pipeline: &fakePipeline{}, Provider: &fakeProvider{err: errors.New("status=500")}})
	rec = serve(t, s, http.MethodPost, "/solution", body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestProviderTest(t *testing.T) {
	rec := serve(t, New(Deps{Pipeline: &fakePipeline{}}), http.MethodGet, "/providers/test", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, decode[providerStatus](t, rec).OK)

	rec = serve(t, New(Deps{Pipeline: &fakePipeline{}, Provider: &fakeProvider{}}), http.MethodGet, "/providers/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, providerStatus{OK: true, Provider: "gemini"}, decode[providerStatus](t, rec))

	rec = serve(t, New(Deps{Pipeline: &fakePipeline{}, Provider: &fakeProvider{err: errors.New("status=401")}}),
		http.MethodGet, "/providers/test", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "status=401", decode[providerStatus](t, rec).Error)
}

func TestSessions(t *testing.T) {
	rec := serve(t, New(Deps{Pipeline: &fakePipeline{}}), http.MethodPost, "/sessions/start", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	fs := &fakeSessions{}
	s := New(Deps{Pipeline: &fakePipeline{}, Sessions: fs})

	rec = serve(t, s, http.MethodPost, "/sessions/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s-1", decode[types.RecordingSession](t, rec).ID)

	fs.startErr = session.ErrBusy
	rec = serve(t, s, http.MethodPost, "/sessions/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, s, http.MethodPost, "/sessions/stop", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, s, http.MethodPost, "/sessions/cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	fs.cancel = &types.ProcessedMetadata{SessionID: "partial"}
	rec = serve(t, s, http.MethodPost, "/sessions/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", decode[types.ProcessedMetadata](t, rec).SessionID)

	rec = serve(t, s, http.MethodGet, "/sessions/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StateCompleted, decode[types.RecordingSession](t, rec).Status.State)
}

func TestDemo(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	rows := [][]any{{"path"}, {"a.webm"}, {"b.webm"}, {"c.webm"}}
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow("Sheet1", "A"+string(rune('1'+i)), &row))
	}
	manifest := filepath.Join(dir, "manifest.xlsx")
	require.NoError(t, f.SaveAs(manifest))
	require.NoError(t, f.Close())
	for _, name := range []string{"a.webm", "b.webm", "c.webm"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.TrimSuffix(name, ".webm")), 0o600))
	}

	s := New(Deps{Pipeline: &fakePipeline{}, ManifestPath: manifest})
	rec := serve(t, s, http.MethodGet, "/demo?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decode[dataset.Report](t, rec)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, "md-a", rep.Results[0].Metadata.SessionID)
	assert.Equal(t, 2, rep.Insight.RequestTypeCounts["bug_fix"])
	assert.NotEmpty(t, rep.Card.Action)

	rec = serve(t, s, http.MethodGet, "/demo?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s = New(Deps{Pipeline: &fakePipeline{}, ManifestPath: filepath.Join(dir, "missing.xlsx")})
	rec = serve(t, s, http.MethodGet, "/demo", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
