// Package session drives one recording from start to processed metadata and
// enforces that only one recording is in flight at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"screencast-insights-go/internal/capture"
	"screencast-insights-go/internal/config"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/types"
)

var (
	ErrBusy         = errors.New("a recording is already in progress")
	ErrNotRecording = errors.New("no recording in progress")
)

// Backend is the OS-level side of a recording session.
type Backend interface {
	StartSession(ctx context.Context, id string) error
	StopSession(ctx context.Context, id string) error
}

// NoopBackend is used when the capture process needs no host bookkeeping.
type NoopBackend struct{}

func (NoopBackend) StartSession(context.Context, string) error { return nil }
func (NoopBackend) StopSession(context.Context, string) error  { return nil }

// Pipeline is satisfied by *processor.Processor.
type Pipeline interface {
	Process(ctx context.Context, raw []byte, onProgress func(float64)) (types.ProcessedMetadata, error)
}

type Manager struct {
	negotiator *capture.Negotiator
	backend    Backend
	pipeline   Pipeline
	policy     config.CancelPolicy
	log        *logger.Logger

	mu          sync.Mutex
	current     types.RecordingSession
	stream      capture.Stream
	constraints capture.Constraints
}

func NewManager(n *capture.Negotiator, b Backend, p Pipeline, policy config.CancelPolicy) *Manager {
	if b == nil {
		b = NoopBackend{}
	}
	if policy == "" {
		policy = config.CancelDiscard
	}
	return &Manager{
		negotiator: n,
		backend:    b,
		pipeline:   p,
		policy:     policy,
		log:        logger.Component("session"),
		current:    types.RecordingSession{Status: types.StatusIdle()},
	}
}

// Current returns a snapshot of the latest session. Completed and Error
// sessions stay visible until the next Start.
func (m *Manager) Current() types.RecordingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Constraints reports which capture constraint set the active recording
// was negotiated with.
func (m *Manager) Constraints() capture.Constraints {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.constraints
}

// Start begins a new recording. It fails with ErrBusy while another
// recording is being captured or processed.
func (m *Manager) Start(ctx context.Context) (types.RecordingSession, error) {
	m.mu.Lock()
	if m.current.Status.InFlight() {
		m.mu.Unlock()
		return types.RecordingSession{}, ErrBusy
	}
	sess := types.RecordingSession{ID: uuid.NewString(), Status: types.StatusRecording(), StartTime: time.Now()}
	m.current = sess
	m.mu.Unlock()

	log := m.log.WithField("session_id", sess.ID)
	if err := m.backend.StartSession(ctx, sess.ID); err != nil {
		m.reset()
		return types.RecordingSession{}, fmt.Errorf("start session: %w", err)
	}
	stream, c, err := m.negotiator.Negotiate(ctx)
	if err != nil {
		if serr := m.backend.StopSession(ctx, sess.ID); serr != nil {
			log.WithField("error", serr.Error()).Warn("stop session after failed capture")
		}
		m.reset()
		return types.RecordingSession{}, err
	}

	m.mu.Lock()
	m.stream = stream
	m.constraints = c
	m.mu.Unlock()
	log.WithField("constraints", c.Label).Info("recording started")
	return sess, nil
}

// Stop ends the recording and processes it.
func (m *Manager) Stop(ctx context.Context, onProgress func(float64)) (types.ProcessedMetadata, error) {
	stream, sess, err := m.take()
	if err != nil {
		return types.ProcessedMetadata{}, err
	}
	return m.finish(ctx, stream, sess, onProgress)
}

// Cancel ends the recording according to the cancel policy. With discard
// the captured data is dropped and nil is returned; with degrade whatever
// was captured is processed as if Stop had been called.
func (m *Manager) Cancel(ctx context.Context, onProgress func(float64)) (*types.ProcessedMetadata, error) {
	stream, sess, err := m.take()
	if err != nil {
		return nil, err
	}
	log := m.log.WithFields(logrus.Fields{"session_id": sess.ID, "policy": m.policy})

	if m.policy == config.CancelDegrade {
		log.Info("recording cancelled, processing partial capture")
		md, err := m.finish(ctx, stream, sess, onProgress)
		if err != nil {
			return nil, err
		}
		return &md, nil
	}

	if err := stream.Abort(); err != nil {
		log.WithField("error", err.Error()).Warn("abort capture")
	}
	if err := m.backend.StopSession(ctx, sess.ID); err != nil {
		log.WithField("error", err.Error()).Warn("stop session")
	}
	m.reset()
	log.Info("recording cancelled and discarded")
	return nil, nil
}

// take moves a Recording session to Processing and hands its stream to the
// caller.
func (m *Manager) take() (capture.Stream, types.RecordingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Status.State != types.StateRecording || m.stream == nil {
		return nil, types.RecordingSession{}, ErrNotRecording
	}
	stream := m.stream
	m.stream = nil
	m.current.Status = types.StatusProcessing()
	return stream, m.current, nil
}

func (m *Manager) finish(ctx context.Context, stream capture.Stream, sess types.RecordingSession, onProgress func(float64)) (types.ProcessedMetadata, error) {
	log := m.log.WithField("session_id", sess.ID)

	raw, err := stream.Stop(ctx)
	if serr := m.backend.StopSession(ctx, sess.ID); serr != nil {
		log.WithField("error", serr.Error()).Warn("stop session")
	}
	if err != nil {
		m.fail(sess.ID, err)
		return types.ProcessedMetadata{}, fmt.Errorf("stop capture: %w", err)
	}

	md, err := m.pipeline.Process(ctx, raw, onProgress)
	if err != nil {
		m.fail(sess.ID, err)
		return types.ProcessedMetadata{}, err
	}
	m.setStatus(sess.ID, types.StatusCompleted())
	log.WithField("metadata_session_id", md.SessionID).Info("recording completed")
	return md, nil
}

func (m *Manager) fail(id string, err error) {
	m.log.WithError(err).WithField("session_id", id).Error("recording failed")
	m.setStatus(id, types.StatusError(err.Error()))
}

func (m *Manager) setStatus(id string, st types.SessionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.ID == id {
		m.current.Status = st
	}
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = types.RecordingSession{Status: types.StatusIdle()}
	m.stream = nil
	m.constraints = capture.Constraints{}
}
