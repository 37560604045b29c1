// Package presence turns raw interaction signals into throttled alive reports.
package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/daypulse-dev/daypulse/internal/observability"
)

// ThrottleInterval is the minimum spacing between alive reports. Signals
// arriving inside the interval are discarded.
const ThrottleInterval = 10 * time.Second

// State models the detector lifecycle. The transition listening → disabled is
// one-way: a disabled detector stays disabled until the surface restarts it
// from scratch.
type State string

const (
	StateListening State = "listening"
	StateDisabled  State = "disabled"
)

// ErrDisabled is returned when a signal reaches a detector that has already
// shut itself down.
var ErrDisabled = errors.New("presence detector disabled")

// AliveReporter receives alive reports. The report crosses into the session
// store's domain; a failed report means the surrounding runtime is gone and
// the detector must stop for good.
type AliveReporter interface {
	ReportAlive(t time.Time) error
}

// Detector throttles interaction signals into at most one alive report per
// ThrottleInterval. It is safe for concurrent use.
type Detector struct {
	mu       sync.Mutex
	state    State
	reported bool
	lastAt   time.Time
	throttle time.Duration
	reporter AliveReporter
}

// NewDetector constructs a listening Detector reporting to the given reporter.
func NewDetector(reporter AliveReporter) *Detector {
	return &Detector{
		state:    StateListening,
		throttle: ThrottleInterval,
		reporter: reporter,
	}
}

// State returns the current lifecycle state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Disabled reports whether the detector has reached its terminal state.
func (d *Detector) Disabled() bool {
	return d.State() == StateDisabled
}

// Signal feeds one raw interaction signal (pointer move, key press, scroll,
// click) observed at t. If a full throttle interval has elapsed since the last
// alive report, one report is emitted and the interval clock resets; otherwise
// the signal is discarded. A failed report permanently disables the detector.
func (d *Detector) Signal(t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateDisabled {
		return ErrDisabled
	}

	if d.reported && t.Sub(d.lastAt) < d.throttle {
		return nil
	}

	if err := d.reporter.ReportAlive(t); err != nil {
		d.state = StateDisabled
		observability.RecordDetectorDisabled()
		return ErrDisabled
	}

	d.reported = true
	d.lastAt = t
	return nil
}

// Run consumes signals from a channel until the context is cancelled, the
// channel closes, or the detector disables itself.
func (d *Detector) Run(ctx context.Context, signals <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-signals:
			if !ok {
				return nil
			}
			if err := d.Signal(t); errors.Is(err, ErrDisabled) {
				return err
			}
		}
	}
}
