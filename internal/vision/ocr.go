package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"screencast-insights-go/internal/types"
)

// Pass is one recognition attempt: a tesseract page segmentation mode and
// an optional character whitelist.
type Pass struct {
	PSM       int
	Whitelist string
}

// DefaultPasses: full page, single block, then a single line restricted to
// arithmetic characters.
var DefaultPasses = []Pass{
	{PSM: 3},
	{PSM: 6},
	{PSM: 7, Whitelist: "0123456789+-*/=x."},
}

var numericExpr = regexp.MustCompile(`\d+\s*[+\-*/=x×]\s*\d+`)

type Engine interface {
	Recognize(ctx context.Context, image []byte, p Pass) (string, error)
}

type OCRStrategy struct {
	engine Engine
	passes []Pass
}

func NewOCRStrategy(e Engine, passes ...Pass) *OCRStrategy {
	if len(passes) == 0 {
		passes = DefaultPasses
	}
	return &OCRStrategy{engine: e, passes: passes}
}

func (s *OCRStrategy) Name() string { return "ocr" }

// Describe runs every pass and keeps the best candidate.
func (s *OCRStrategy) Describe(ctx context.Context, f types.Frame) (string, error) {
	var (
		candidates []string
		errs       []error
	)
	for _, p := range s.passes {
		text, err := s.engine.Recognize(ctx, f.Image, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("psm %d: %w", p.PSM, err))
			continue
		}
		candidates = append(candidates, strings.TrimSpace(text))
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("ocr: %w", errors.Join(errs...))
	}
	return Best(candidates), nil
}

// Best prefers the first candidate holding a numeric expression, otherwise
// the longest one. Ties keep the earlier pass.
func Best(candidates []string) string {
	for _, c := range candidates {
		if numericExpr.MatchString(c) {
			return c
		}
	}
	best := ""
	for _, c := range candidates {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// TesseractEngine feeds the image to the tesseract CLI on stdin.
type TesseractEngine struct {
	Bin string
}

func NewTesseractEngine(bin string) *TesseractEngine {
	if bin == "" {
		bin = "tesseract"
	}
	return &TesseractEngine{Bin: bin}
}

func (e *TesseractEngine) Args(p Pass) []string {
	args := []string{"stdin", "stdout", "-l", "eng", "--psm", strconv.Itoa(p.PSM)}
	if p.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+p.Whitelist)
	}
	return args
}

func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, p Pass) (string, error) {
	cmd := exec.CommandContext(ctx, e.Bin, e.Args(p)...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
