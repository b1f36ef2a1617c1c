// Package config builds the explicit configuration object handed to every
// pipeline component. Nothing downstream reads the environment directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type VisionStrategy string

const (
	VisionOCR    VisionStrategy = "ocr"
	VisionRemote VisionStrategy = "remote"
)

type SampleMode string

const (
	SampleKeyframes SampleMode = "keyframes"
	SampleCadence   SampleMode = "cadence"
)

// CancelPolicy decides what happens to a recording the user cancels while
// capture is still running.
type CancelPolicy string

const (
	CancelDiscard CancelPolicy = "discard"
	CancelDegrade CancelPolicy = "degrade"
)

// Providers lists the recognized AI backends.
var Providers = []string{"openai", "gemini", "claude"}

const (
	DefaultProvider       = "openai"
	DefaultMaxFrames      = 10
	DefaultCadenceSeconds = 2.0
	DefaultHTTPTimeoutSec = 25
	DefaultMaxRetrySec    = 45
	DefaultPort           = "8080"
)

// DefaultFractions are the key-frame sample points: near start, middle, near end.
var DefaultFractions = []float64{0.1, 0.5, 0.9}

type ProviderConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	TranscribeModel string `yaml:"transcribe_model"`
}

type CaptureConfig struct {
	InputFormat string `yaml:"input_format"`
	InputDevice string `yaml:"input_device"`
	AudioFormat string `yaml:"audio_format"`
	AudioDevice string `yaml:"audio_device"`
}

type Config struct {
	Provider        string         `yaml:"provider"`
	VisionStrategy  VisionStrategy `yaml:"vision_strategy"`
	MaxFrames       int            `yaml:"max_frames"`
	SampleMode      SampleMode     `yaml:"sample_mode"`
	SampleFractions []float64      `yaml:"sample_fractions"`
	CadenceSeconds  float64        `yaml:"cadence_seconds"`
	VisionWorkers   int            `yaml:"vision_workers"`
	CancelPolicy    CancelPolicy   `yaml:"cancel_policy"`

	OpenAI ProviderConfig `yaml:"openai"`
	Gemini ProviderConfig `yaml:"gemini"`
	Claude ProviderConfig `yaml:"claude"`

	HTTPTimeoutSec int `yaml:"http_timeout_sec"`
	MaxRetrySec    int `yaml:"max_retry_sec"`

	FFmpegPath    string        `yaml:"ffmpeg_path"`
	FFprobePath   string        `yaml:"ffprobe_path"`
	TesseractPath string        `yaml:"tesseract_path"`
	Capture       CaptureConfig `yaml:"capture"`
	TempDir       string        `yaml:"temp_dir"`

	Port         string `yaml:"port"`
	ManifestPath string `yaml:"manifest_path"`
}

// Default returns a configuration that runs fully offline: local OCR,
// three key frames, one vision worker, discard on cancel.
func Default() Config {
	return Config{
		Provider:        DefaultProvider,
		VisionStrategy:  VisionOCR,
		MaxFrames:       DefaultMaxFrames,
		SampleMode:      SampleKeyframes,
		SampleFractions: append([]float64(nil), DefaultFractions...),
		CadenceSeconds:  DefaultCadenceSeconds,
		VisionWorkers:   1,
		CancelPolicy:    CancelDiscard,
		OpenAI: ProviderConfig{
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-4o-mini",
			TranscribeModel: "whisper-1",
		},
		Gemini: ProviderConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-1.5-flash",
		},
		Claude: ProviderConfig{
			BaseURL: "https://api.anthropic.com/v1",
			Model:   "claude-3-5-sonnet-latest",
		},
		HTTPTimeoutSec: DefaultHTTPTimeoutSec,
		MaxRetrySec:    DefaultMaxRetrySec,
		FFmpegPath:     "ffmpeg",
		FFprobePath:    "ffprobe",
		TesseractPath:  "tesseract",
		Capture: CaptureConfig{
			InputFormat: "x11grab",
			InputDevice: ":0.0",
			AudioFormat: "pulse",
			AudioDevice: "default",
		},
		Port:         DefaultPort,
		ManifestPath: "recordings_manifest.xlsx",
	}
}

// Load reads .env, the optional YAML file named by SCREENCAST_CONFIG, then
// environment overrides, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load() // loads .env
	return LoadFile(os.Getenv("SCREENCAST_CONFIG"))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	cfg.Provider = envOr("AI_PROVIDER", cfg.Provider)
	cfg.VisionStrategy = VisionStrategy(envOr("VISION_STRATEGY", string(cfg.VisionStrategy)))
	cfg.SampleMode = SampleMode(envOr("SAMPLE_MODE", string(cfg.SampleMode)))
	cfg.CancelPolicy = CancelPolicy(envOr("CANCEL_POLICY", string(cfg.CancelPolicy)))

	var err error
	if cfg.MaxFrames, err = envInt("MAX_FRAMES", cfg.MaxFrames); err != nil {
		return err
	}
	if cfg.VisionWorkers, err = envInt("VISION_WORKERS", cfg.VisionWorkers); err != nil {
		return err
	}
	if cfg.HTTPTimeoutSec, err = envInt("HTTP_TIMEOUT_SEC", cfg.HTTPTimeoutSec); err != nil {
		return err
	}
	if cfg.MaxRetrySec, err = envInt("MAX_RETRY_SEC", cfg.MaxRetrySec); err != nil {
		return err
	}
	if v := os.Getenv("SAMPLE_CADENCE_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SAMPLE_CADENCE_SEC: %w", err)
		}
		cfg.CadenceSeconds = f
	}
	if v := os.Getenv("SAMPLE_FRACTIONS"); v != "" {
		fr, err := ParseFractions(v)
		if err != nil {
			return fmt.Errorf("SAMPLE_FRACTIONS: %w", err)
		}
		cfg.SampleFractions = fr
	}

	cfg.OpenAI.APIKey = envOr("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = envOr("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.TranscribeModel = envOr("OPENAI_TRANSCRIBE_MODEL", cfg.OpenAI.TranscribeModel)
	cfg.Gemini.APIKey = envOr("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.BaseURL = envOr("GEMINI_BASE_URL", cfg.Gemini.BaseURL)
	cfg.Gemini.Model = envOr("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Claude.APIKey = envOr("CLAUDE_API_KEY", cfg.Claude.APIKey)
	cfg.Claude.BaseURL = envOr("CLAUDE_BASE_URL", cfg.Claude.BaseURL)
	cfg.Claude.Model = envOr("CLAUDE_MODEL", cfg.Claude.Model)

	cfg.FFmpegPath = envOr("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.FFprobePath = envOr("FFPROBE_PATH", cfg.FFprobePath)
	cfg.TesseractPath = envOr("TESSERACT_PATH", cfg.TesseractPath)
	cfg.Capture.InputFormat = envOr("CAPTURE_INPUT_FORMAT", cfg.Capture.InputFormat)
	cfg.Capture.InputDevice = envOr("CAPTURE_INPUT_DEVICE", cfg.Capture.InputDevice)
	cfg.Capture.AudioFormat = envOr("CAPTURE_AUDIO_FORMAT", cfg.Capture.AudioFormat)
	cfg.Capture.AudioDevice = envOr("CAPTURE_AUDIO_DEVICE", cfg.Capture.AudioDevice)
	cfg.TempDir = envOr("MEDIA_TEMP_DIR", cfg.TempDir)
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.ManifestPath = envOr("MANIFEST_PATH", cfg.ManifestPath)
	return nil
}

// Validate rejects unknown enum values and non-positive caps.
func (c Config) Validate() error {
	var errs []error
	if !knownProvider(c.Provider) {
		errs = append(errs, fmt.Errorf("unknown provider %q (want one of %s)", c.Provider, strings.Join(Providers, ", ")))
	}
	switch c.VisionStrategy {
	case VisionOCR, VisionRemote:
	default:
		errs = append(errs, fmt.Errorf("unknown vision strategy %q", c.VisionStrategy))
	}
	switch c.SampleMode {
	case SampleKeyframes:
		if len(c.SampleFractions) == 0 {
			errs = append(errs, errors.New("keyframe mode needs at least one sample fraction"))
		}
	case SampleCadence:
		if c.CadenceSeconds <= 0 {
			errs = append(errs, fmt.Errorf("cadence must be positive, got %v", c.CadenceSeconds))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sample mode %q", c.SampleMode))
	}
	switch c.CancelPolicy {
	case CancelDiscard, CancelDegrade:
	default:
		errs = append(errs, fmt.Errorf("unknown cancel policy %q", c.CancelPolicy))
	}
	if c.MaxFrames <= 0 {
		errs = append(errs, fmt.Errorf("max frames must be positive, got %d", c.MaxFrames))
	}
	if c.VisionWorkers <= 0 {
		errs = append(errs, fmt.Errorf("vision workers must be positive, got %d", c.VisionWorkers))
	}
	return errors.Join(errs...)
}

// ProviderSettings returns the credentials block for the named provider.
func (c Config) ProviderSettings(name string) ProviderConfig {
	switch name {
	case "gemini":
		return c.Gemini
	case "claude":
		return c.Claude
	default:
		return c.OpenAI
	}
}

// ParseFractions parses "0.1,0.5,0.9"; each value must lie in [0,1).
func ParseFractions(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		if f < 0 || f >= 1 {
			return nil, fmt.Errorf("fraction %v outside [0,1)", f)
		}
		out = append(out, f)
	}
	return out, nil
}

func knownProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
