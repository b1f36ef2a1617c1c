package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"screencast-insights-go/internal/config"
)

// FFmpegAcquirer records the screen with an ffmpeg child process writing
// WebM to stdout.
type FFmpegAcquirer struct {
	Bin      string
	Settings config.CaptureConfig
	// StartupProbe is how long a freshly started process must stay alive
	// before the attempt counts as successful.
	StartupProbe time.Duration
}

func NewFFmpegAcquirer(bin string, settings config.CaptureConfig) *FFmpegAcquirer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegAcquirer{Bin: bin, Settings: settings, StartupProbe: 750 * time.Millisecond}
}

// Args builds the ffmpeg command line for one constraint set.
func (a *FFmpegAcquirer) Args(c Constraints) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if c.FrameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(c.FrameRate))
	}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	args = append(args, "-f", a.Settings.InputFormat, "-i", a.Settings.InputDevice)
	if c.Audio {
		args = append(args, "-f", a.Settings.AudioFormat, "-i", a.Settings.AudioDevice)
	}
	args = append(args, "-c:v", "libvpx-vp9", "-deadline", "realtime")
	if c.Audio {
		args = append(args, "-c:a", "libopus")
	} else {
		args = append(args, "-an")
	}
	return append(args, "-f", "webm", "pipe:1")
}

func (a *FFmpegAcquirer) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	cmd := exec.Command(a.Bin, a.Args(c)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	s := &ffmpegStream{cmd: cmd, stdin: stdin, done: make(chan struct{})}
	cmd.Stdout = &s.out
	cmd.Stderr = &s.errOut
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()

	select {
	case <-s.done:
		return nil, classify(s.errOut.String(), s.waitErr)
	case <-ctx.Done():
		_ = s.Abort()
		return nil, ctx.Err()
	case <-time.After(a.StartupProbe):
		return s, nil
	}
}

func classify(stderr string, waitErr error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && waitErr != nil {
		msg = waitErr.Error()
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "not authorized") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	}
	return fmt.Errorf("%w: %s", ErrNotAvailable, msg)
}

type ffmpegStream struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	out     bytes.Buffer
	errOut  bytes.Buffer
	done    chan struct{}
	waitErr error
	once    sync.Once
}

// Stop asks ffmpeg to finish the file and returns the recorded bytes.
func (s *ffmpegStream) Stop(ctx context.Context) ([]byte, error) {
	s.once.Do(func() {
		_, _ = io.WriteString(s.stdin, "q")
		_ = s.stdin.Close()
	})
	select {
	case <-s.done:
	case <-ctx.Done():
		_ = s.cmd.Process.Kill()
		<-s.done
		return nil, ctx.Err()
	}
	if s.out.Len() == 0 {
		return nil, fmt.Errorf("capture produced no data: %s", strings.TrimSpace(s.errOut.String()))
	}
	data := s.out.Bytes()
	return data, nil
}

// Abort kills the recorder and drops anything captured so far.
func (s *ffmpegStream) Abort() error {
	s.once.Do(func() { _ = s.stdin.Close() })
	select {
	case <-s.done:
	default:
		_ = s.cmd.Process.Kill()
		<-s.done
	}
	s.out.Reset()
	return nil
}
