// Package dataset reads batch manifests of recordings and writes batch
// reports, both as xlsx workbooks.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrNoRows = errors.New("manifest has no data rows")

// Recording is one manifest row.
type Recording struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Label string `json:"label,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Load reads the first sheet of a manifest workbook. Columns are found by
// header heuristics; relative paths resolve against the manifest's folder.
func Load(path string) ([]Recording, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, ErrNoRows
	}

	pathIdx, idIdx, labelIdx, notesIdx := -1, -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case idIdx == -1 && (l == "id" || strings.HasSuffix(l, " id") || strings.HasSuffix(l, "_id")):
			idIdx = i
		case pathIdx == -1 && (strings.Contains(l, "path") || strings.Contains(l, "file") ||
			strings.Contains(l, "video") || strings.Contains(l, "recording")):
			pathIdx = i
		case labelIdx == -1 && (strings.Contains(l, "label") || strings.Contains(l, "expected") || strings.Contains(l, "type")):
			labelIdx = i
		case notesIdx == -1 && (strings.Contains(l, "note") || strings.Contains(l, "comment")):
			notesIdx = i
		}
	}
	if pathIdx == -1 {
		pathIdx = 0
	}

	base := filepath.Dir(path)
	cell := func(r []string, i int) string {
		if i >= 0 && i < len(r) {
			return strings.TrimSpace(r[i])
		}
		return ""
	}
	var out []Recording
	for i, r := range rows[1:] {
		rec := Recording{
			ID:    cell(r, idIdx),
			Path:  cell(r, pathIdx),
			Label: cell(r, labelIdx),
			Notes: cell(r, notesIdx),
		}
		if rec.Path == "" {
			continue
		}
		if !filepath.IsAbs(rec.Path) {
			rec.Path = filepath.Join(base, rec.Path)
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("row-%d", i+2)
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}
