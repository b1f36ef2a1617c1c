package processor

import "sync"

// Stage milestones on the 0..1 progress scale.
const (
	progressMediaReady  = 0.1
	progressSampled     = 0.2
	progressAnalyzed    = 0.6
	progressTranscribed = 0.8
	progressClassified  = 0.9
	progressDone        = 1.0
)

// progress forwards fractions to a callback, clamped to [0,1] and never
// going backwards.
type progress struct {
	mu   sync.Mutex
	fn   func(float64)
	last float64
}

func newProgress(fn func(float64)) *progress {
	return &progress{fn: fn, last: -1}
}

func (p *progress) report(v float64) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	v = min(max(v, 0), 1)
	if v <= p.last {
		return
	}
	p.last = v
	p.fn(v)
}

// span maps step/total onto the range [from, to].
func (p *progress) span(from, to float64, step, total int) {
	if total <= 0 {
		p.report(to)
		return
	}
	p.report(from + (to-from)*float64(step)/float64(total))
}
