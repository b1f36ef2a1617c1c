// Package media owns recorded video for the lifetime of one processing pass.
//
// A Captured value holds the raw bytes and, when a decoder needs a seekable
// file, a single transient copy on disk. Release drops the byte reference and
// securely deletes the copy; it is safe to call on every exit path.
package media

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"screencast-insights-go/internal/logger"
)

var (
	ErrEmpty    = errors.New("no video data captured")
	ErrReleased = errors.New("media already released")
)

var outstanding atomic.Int64

// Outstanding reports how many Captured values have not been released yet.
func Outstanding() int64 {
	return outstanding.Load()
}

type Captured struct {
	mu       sync.Mutex
	data     []byte
	path     string
	tempDir  string
	released bool
	log      *logger.Logger
}

// New takes ownership of raw. tempDir may be empty for the OS default.
func New(raw []byte, tempDir string) (*Captured, error) {
	if len(raw) == 0 {
		return nil, ErrEmpty
	}
	outstanding.Add(1)
	return &Captured{
		data:    raw,
		tempDir: tempDir,
		log:     logger.Component("media"),
	}, nil
}

// Size is the byte length of the recording, zero after release.
func (c *Captured) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Path materializes the recording as a private temp file on first use and
// returns its location.
func (c *Captured) Path() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return "", ErrReleased
	}
	if c.path != "" {
		return c.path, nil
	}
	f, err := os.CreateTemp(c.tempDir, "screencast-*.webm")
	if err != nil {
		return "", fmt.Errorf("create temp media: %w", err)
	}
	if _, err := f.Write(c.data); err != nil {
		f.Close()
		_ = SecureDelete(f.Name())
		return "", fmt.Errorf("write temp media: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = SecureDelete(f.Name())
		return "", fmt.Errorf("close temp media: %w", err)
	}
	c.path = f.Name()
	return c.path, nil
}

// Release drops the in-memory recording and securely deletes any temp copy.
// Calls after the first are no-ops.
func (c *Captured) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true
	c.data = nil
	outstanding.Add(-1)

	if c.path == "" {
		return nil
	}
	path := c.path
	c.path = ""
	if err := SecureDelete(path); err != nil {
		c.log.WithError(err).WithField("path", path).Error("secure delete failed")
		return err
	}
	c.log.WithField("path", path).Debug("temp media deleted")
	return nil
}

const wipeChunk = 64 * 1024

// SecureDelete overwrites a file with zeros, syncs it and removes it.
// A missing file is not an error.
func SecureDelete(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open for wipe: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat for wipe: %w", err)
	}
	zeros := make([]byte, wipeChunk)
	remaining := info.Size()
	for remaining > 0 {
		n := int64(len(zeros))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			f.Close()
			return fmt.Errorf("wipe: %w", err)
		}
		remaining -= n
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync wipe: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close wipe: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}
