package frames

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// FFmpegDecoder probes with ffprobe and grabs single JPEG frames with ffmpeg.
type FFmpegDecoder struct {
	FFmpeg  string
	FFprobe string
	Path    string

	mu       sync.Mutex
	duration float64
	probed   bool
}

func NewFFmpegDecoder(ffmpeg, ffprobe, path string) *FFmpegDecoder {
	return &FFmpegDecoder{FFmpeg: ffmpeg, FFprobe: ffprobe, Path: path}
}

// Duration is probed once and cached. Recorder output often lacks a
// container duration, in which case the last packet timestamp is used.
func (d *FFmpegDecoder) Duration(ctx context.Context) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.probed {
		return d.duration, nil
	}

	out, err := run(ctx, d.FFprobe, "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", d.Path)
	if err != nil {
		return 0, err
	}
	dur, ok := parseDuration(out)
	if !ok {
		out, err = run(ctx, d.FFprobe, "-v", "error",
			"-select_streams", "v:0",
			"-show_entries", "packet=pts_time",
			"-of", "csv=p=0", d.Path)
		if err != nil {
			return 0, err
		}
		dur, ok = maxTimestamp(out)
		if !ok {
			return 0, fmt.Errorf("cannot determine duration of %s", d.Path)
		}
	}
	d.duration = dur
	d.probed = true
	return dur, nil
}

func (d *FFmpegDecoder) FrameAt(ctx context.Context, offset float64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out, err := run(ctx, d.FFmpeg, "-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", d.Path,
		"-frames:v", "1", "-q:v", "3",
		"-f", "image2pipe", "-c:v", "mjpeg", "pipe:1")
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrPastEnd
	}
	return out, nil
}

func run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func parseDuration(out []byte) (float64, bool) {
	s := strings.TrimSpace(string(out))
	if s == "" || s == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

func maxTimestamp(out []byte) (float64, bool) {
	best, found := 0.0, false
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
		f, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		if !found || f > best {
			best, found = f, true
		}
	}
	return best, found && best > 0
}
