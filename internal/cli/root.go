// Package cli implements the screencast command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"screencast-insights-go/internal/config"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/processor"
	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/types"
)

var (
	configPath   string
	providerFlag string
	maxFrames    int
	sampleMode   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "screencast",
	Short:        "Turn screen recordings into structured metadata for AI assistants",
	Long:         "Samples frames from a screen recording, reads them, transcribes the narration and classifies the request.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $SCREENCAST_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "AI provider: openai, gemini or claude")
	RootCmd.PersistentFlags().IntVar(&maxFrames, "max-frames", 0, "Maximum frames sent to visual analysis")
	RootCmd.PersistentFlags().StringVar(&sampleMode, "sample-mode", "", "Frame sampling: keyframes or cadence")
}

// Pipeline is satisfied by *processor.Processor.
type Pipeline interface {
	Process(ctx context.Context, raw []byte, onProgress func(float64)) (types.ProcessedMetadata, error)
	ExportForExternalAgent(ctx context.Context, raw []byte, onProgress func(float64)) (types.AgentExport, error)
}

// Replaced in tests.
var (
	newProvider = provider.New
	newPipeline = func(cfg config.Config, p provider.Provider) (Pipeline, error) {
		return processor.New(cfg, p)
	}
)

// loadConfig layers the global flags over file and environment settings.
func loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if maxFrames > 0 {
		cfg.MaxFrames = maxFrames
	}
	if sampleMode != "" {
		cfg.SampleMode = config.SampleMode(sampleMode)
	}
	return cfg, cfg.Validate()
}

// optionalProvider returns nil when the provider cannot be built, so the
// offline paths still run.
func optionalProvider(cfg config.Config) provider.Provider {
	p, err := newProvider(cfg)
	if err != nil {
		logger.Component("cli").WithError(err).WithField("provider", cfg.Provider).Warn("AI provider unavailable")
		return nil
	}
	return p
}

func setup() (config.Config, provider.Provider, Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("config: %w", err)
	}
	prov := optionalProvider(cfg)
	pipe, err := newPipeline(cfg, prov)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("pipeline: %w", err)
	}
	return cfg, prov, pipe, nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// progressPrinter writes whole-percent progress lines to w.
func progressPrinter(w io.Writer) func(float64) {
	return func(v float64) {
		fmt.Fprintf(w, "progress: %3.0f%%\n", v*100)
	}
}
