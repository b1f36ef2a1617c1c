package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"screencast-insights-go/internal/logger"
)

const (
	RecordingsSheet = "Recordings"
	SummarySheet    = "Summary"
)

var recordingHeader = []any{
	"ID", "Path", "Label", "Status", "Request Type", "Emotion", "Framework",
	"Layout", "Error Patterns", "Frames", "Media Seconds", "Transcript", "Error",
}

// WriteReport saves the batch report as a workbook with a per-recording
// sheet and a summary sheet.
func WriteReport(path string, r Report) error {
	log := logger.Component("dataset.report").WithField("path", path)
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RecordingsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(RecordingsSheet, "A1", &recordingHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, res := range r.Results {
		row := []any{res.Recording.ID, res.Recording.Path, res.Recording.Label}
		if md := res.Metadata; md != nil {
			row = append(row, "ok",
				md.UserContext.RequestType,
				md.UserContext.UserEmotion,
				md.TechnicalContext.DetectedFramework,
				md.VisualContext.LayoutAnalysis,
				strings.Join(md.TechnicalContext.ErrorPatterns, ", "),
				md.VisualContext.FramesAnalyzed,
				md.MediaDurationSeconds,
				md.UserContext.Transcript,
				"",
			)
		} else {
			row = append(row, "failed", "", "", "", "", "", 0, 0, "", res.Error)
		}
		if err := f.SetSheetRow(RecordingsSheet, cell(1, i+2), &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	ins := r.Insight
	rows := [][]any{
		{"Total", ins.Total},
		{"Failed", ins.Failed},
		{"Frustration Rate", ins.FrustrationRate},
		{"Avg Media Seconds", ins.AvgMediaSeconds},
		{},
	}
	rows = appendCounts(rows, "Request Types", ins.RequestTypeCounts)
	rows = appendCounts(rows, "Emotions", ins.EmotionCounts)
	rows = appendCounts(rows, "Frameworks", ins.FrameworkCounts)
	rows = appendCounts(rows, "Error Patterns", ins.ErrorPatternCounts)
	rows = append(rows,
		[]any{"Insight", r.Card.Insight},
		[]any{"Action", r.Card.Action},
		[]any{"Impact", r.Card.Impact},
	)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(SummarySheet, cell(1, i+1), &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		log.WithError(err).Error("save failed")
		return fmt.Errorf("save report: %w", err)
	}
	log.WithField("recordings", len(r.Results)).Info("batch report written")
	return nil
}

// appendCounts adds a titled block sorted by count, then key.
func appendCounts(rows [][]any, title string, counts map[string]int) [][]any {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	rows = append(rows, []any{title})
	for _, k := range keys {
		rows = append(rows, []any{k, counts[k]})
	}
	return append(rows, []any{})
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
