package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"screencast-insights-go/internal/types"
)

func writeManifest(t *testing.T, dir string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow("Sheet1", cell(1, i+1), &row))
	}
	path := filepath.Join(dir, "manifest.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, [][]any{
		{"Recording ID", "Video File", "Expected Type", "Notes"},
		{"r1", "a.webm", "bug_fix", "login page"},
		{"", "/abs/b.webm"},
		{"r3", ""},
	})

	recs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Recording{ID: "r1", Path: filepath.Join(dir, "a.webm"), Label: "bug_fix", Notes: "login page"}, recs[0])
	assert.Equal(t, Recording{ID: "row-3", Path: "/abs/b.webm"}, recs[1])
}

func TestLoadWithoutPathHeaderUsesFirstColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, [][]any{{"clip"}, {"/x.mp4"}})
	recs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/x.mp4", recs[0].Path)
}

func TestLoadEmpty(t *testing.T) {
	path := writeManifest(t, t.TempDir(), [][]any{{"path"}})
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = Load(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorContains(t, err, "open manifest")
}

type fakePipeline map[string]types.ProcessedMetadata

func (p fakePipeline) Process(_ context.Context, raw []byte, _ func(float64)) (types.ProcessedMetadata, error) {
	md, ok := p[string(raw)]
	if !ok {
		return types.ProcessedMetadata{}, errors.New("frame_sampling stage failed: corrupt")
	}
	return md, nil
}

func TestRunAndWriteReport(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}
	recs := []Recording{
		{ID: "r1", Path: write("a.webm", "a")},
		{ID: "r2", Path: write("b.webm", "b")},
		{ID: "r3", Path: write("c.webm", "broken")},
		{ID: "r4", Path: filepath.Join(dir, "gone.webm")},
		{ID: "r5", Path: write("e.webm", "a")},
	}
	p := fakePipeline{
		"a": {UserContext: types.UserContext{RequestType: "bug_fix", UserEmotion: "frustrated", Transcript: "broken"},
			TechnicalContext: types.TechnicalContext{DetectedFramework: "react", ErrorPatterns: []string{"type_error"}}},
		"b": {UserContext: types.UserContext{RequestType: "question", UserEmotion: "neutral"},
			TechnicalContext: types.TechnicalContext{DetectedFramework: "unknown"}},
	}

	rep := Run(context.Background(), recs, p, 4)
	require.Len(t, rep.Results, 4)
	assert.NotNil(t, rep.Results[0].Metadata)
	assert.Contains(t, rep.Results[2].Error, "corrupt")
	assert.Nil(t, rep.Results[3].Metadata)
	assert.NotEmpty(t, rep.Results[3].Error)
	assert.Equal(t, 4, rep.Insight.Total)
	assert.Equal(t, 2, rep.Insight.Failed)
	assert.Equal(t, "50% of recordings could not be processed", rep.Card.Insight)

	out := filepath.Join(dir, "report.xlsx")
	require.NoError(t, WriteReport(out, rep))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{RecordingsSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(RecordingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "ID", rows[0][0])
	require.GreaterOrEqual(t, len(rows[1]), 12)
	assert.Equal(t, []string{"r1", recs[0].Path}, rows[1][:2])
	assert.Equal(t, []string{"ok", "bug_fix", "frustrated", "react"}, rows[1][3:7])
	assert.Equal(t, "type_error", rows[1][8])
	assert.Equal(t, "broken", rows[1][11])
	assert.Equal(t, "failed", rows[3][3])

	total, err := f.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "4", total)
	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", rep.Card.Action}, summary[len(summary)-2])
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := Run(ctx, []Recording{{ID: "r1", Path: "/nope"}}, fakePipeline{}, 0)
	assert.Empty(t, rep.Results)
	assert.Equal(t, "No strong pattern detected", rep.Card.Insight)
}
