// Package capture acquires a screen (and optionally audio) stream, falling
// back through progressively simpler constraint sets.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"screencast-insights-go/internal/logger"
)

var (
	ErrPermissionDenied = errors.New("screen capture permission denied")
	ErrNotAvailable     = errors.New("screen capture not available")
)

// Constraints describe one capture attempt. Zero Width/Height/FrameRate
// means "let the source decide".
type Constraints struct {
	Label     string
	Audio     bool
	Width     int
	Height    int
	FrameRate int
}

// DefaultChain is the attempt order: screen+audio with resolution hints,
// screen only, then unconstrained screen capture.
func DefaultChain() []Constraints {
	return []Constraints{
		{Label: "screen+audio", Audio: true, Width: 1920, Height: 1080, FrameRate: 30},
		{Label: "screen", Width: 1920, Height: 1080, FrameRate: 30},
		{Label: "minimal"},
	}
}

// Stream is a live capture. Exactly one of Stop or Abort must be called;
// both stop every track.
type Stream interface {
	Stop(ctx context.Context) ([]byte, error)
	Abort() error
}

type Acquirer interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// CaptureError is returned once every constraint set has failed.
type CaptureError struct {
	Attempts []Attempt
}

type Attempt struct {
	Constraints Constraints
	Err         error
}

func (e *CaptureError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Constraints.Label, a.Err))
	}
	return "capture negotiation exhausted (" + strings.Join(parts, "; ") + ")"
}

func (e *CaptureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

type Negotiator struct {
	acquirer Acquirer
	chain    []Constraints
	log      *logger.Logger
}

// NewNegotiator uses DefaultChain when chain is empty.
func NewNegotiator(a Acquirer, chain ...Constraints) *Negotiator {
	if len(chain) == 0 {
		chain = DefaultChain()
	}
	return &Negotiator{acquirer: a, chain: chain, log: logger.Component("capture")}
}

// Negotiate returns the first stream that can be acquired along with the
// constraints that produced it.
func (n *Negotiator) Negotiate(ctx context.Context) (Stream, Constraints, error) {
	cerr := &CaptureError{}
	for _, c := range n.chain {
		if err := ctx.Err(); err != nil {
			return nil, Constraints{}, err
		}
		stream, err := n.acquirer.Acquire(ctx, c)
		if err == nil {
			n.log.WithField("constraints", c.Label).Info("capture stream acquired")
			return stream, c, nil
		}
		n.log.WithError(err).WithFields(logrus.Fields{
			"constraints": c.Label,
			"audio":       c.Audio,
		}).Warn("capture attempt failed, trying next constraint set")
		cerr.Attempts = append(cerr.Attempts, Attempt{Constraints: c, Err: err})
	}
	return nil, Constraints{}, cerr
}
