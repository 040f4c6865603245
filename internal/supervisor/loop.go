// Package supervisor implements the idle/blank state machine: a single
// event-driven loop that blanks the display after the idle timeout and
// swallows the first input that wakes it.
package supervisor

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"kioskidle/internal/config"

	"github.com/jezek/xgb"
)

// Overlay is the capture-surface controller. Create and Destroy are
// idempotent; Destroy never fails visibly.
type Overlay interface {
	Create() error
	Destroy()
	Active() bool
}

// Power switches the physical display. Fire-and-forget.
type Power interface {
	On()
	Off()
}

// IdleClock measures seconds since the last global user input and
// accepts activity timestamps for its fallback path.
type IdleClock interface {
	SecondsIdle() float64
	NoteActivity(t time.Time)
	Reset(t time.Time)
	SourceName() string
}

// Recorder journals transitions and absorbed errors. Implementations
// must swallow their own failures; the journal never gates the state
// machine.
type Recorder interface {
	RecordBlank(t time.Time, idleSeconds float64, source string)
	RecordWake(t time.Time, trigger string, dark time.Duration)
	RecordError(component string, err error)
}

// NopRecorder is the recorder used when the journal is disabled.
type NopRecorder struct{}

func (NopRecorder) RecordBlank(time.Time, float64, string) {}

func (NopRecorder) RecordWake(time.Time, string, time.Duration) {}

func (NopRecorder) RecordError(string, error) {}

// How long the loop backs off after a failed blank attempt, so a
// persistently failing server cannot spin it hot.
const blankRetryBackoff = time.Second

// Loop owns all mutable daemon state. Strictly single-threaded: every
// mutation happens between one wait-return and the next, so no locking
// is needed. The blanked flag is mirrored into an atomic for the
// read-only status endpoint.
type Loop struct {
	timeout time.Duration
	settle  time.Duration
	debug   bool

	clock   IdleClock
	overlay Overlay
	power   Power
	journal Recorder

	events <-chan xgb.Event

	blanked   bool
	blankedAt time.Time
	blankedRO atomic.Bool

	now   func() time.Time
	sleep func(time.Duration)
}

// New wires the state machine. events is the display connection's pump
// channel; the loop is its only consumer.
func New(cfg *config.Config, clock IdleClock, overlay Overlay, power Power, events <-chan xgb.Event, journal Recorder) *Loop {
	if journal == nil {
		journal = NopRecorder{}
	}
	return &Loop{
		timeout: cfg.Screen.Timeout,
		settle:  cfg.Screen.SettleDelay,
		debug:   cfg.Screen.Debug,
		clock:   clock,
		overlay: overlay,
		power:   power,
		journal: journal,
		events:  events,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Blanked reports the current state. Safe to call from other
// goroutines; only the loop writes it.
func (l *Loop) Blanked() bool {
	return l.blankedRO.Load()
}

// Run executes the wait/dispatch loop until ctx is cancelled or the
// event stream dies. Each iteration computes the remaining idle budget
// while Awake and waits exactly that long; while Blanked it waits
// indefinitely for the swallow event. There is no periodic timer.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("Started; timeout=%v; swallowing first touch after blank", l.timeout)

	for {
		var timer *time.Timer
		var deadline <-chan time.Time

		if !l.blanked {
			idle := l.clock.SecondsIdle()
			remaining := l.timeout - time.Duration(idle*float64(time.Second))
			if remaining <= 0 {
				if err := l.blank(idle); err != nil {
					timer = time.NewTimer(blankRetryBackoff)
					deadline = timer.C
				}
				// Blanked: wait indefinitely for input.
			} else {
				timer = time.NewTimer(remaining)
				deadline = timer.C
			}
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return ctx.Err()

		case <-deadline:
			// Deadline reached with no events; re-evaluate.
			continue

		case ev, ok := <-l.events:
			stopTimer(timer)
			if !ok {
				return errors.New("event stream closed")
			}
			l.dispatch(ev)
			if err := l.drain(); err != nil {
				return err
			}
		}
	}
}

// drain processes every event already queued behind the one that woke
// the select, in order. If several wake triggers arrive in one batch
// only the first causes the Blanked→Awake transition; the rest are
// delivered with the overlay already gone and are not swallowed. That
// is a deliberate compromise, not a bug.
func (l *Loop) drain() error {
	for {
		select {
		case ev, ok := <-l.events:
			if !ok {
				return errors.New("event stream closed")
			}
			l.dispatch(ev)
		default:
			return nil
		}
	}
}

func (l *Loop) dispatch(ev xgb.Event) {
	kind := Classify(ev)
	if kind == Unknown {
		return
	}

	if l.blanked && kind.WakesFromBlank() {
		if l.debug {
			log.Printf("EVENT kind=%s action=wake.swallow", kind)
		}
		l.wake(kind)
		return
	}

	if l.debug {
		log.Printf("EVENT kind=%s action=activity blanked=%v", kind, l.blanked)
	}
	l.clock.NoteActivity(l.now())
}

// blank maps the overlay, powers the panel off and enters the Blanked
// state. No-op when already blanked. An overlay failure aborts the
// transition: without a capture surface there is nothing to swallow
// with, so the panel stays on and the caller retries after a backoff.
func (l *Loop) blank(idleSeconds float64) error {
	if l.blanked {
		return nil
	}

	if err := l.overlay.Create(); err != nil {
		log.Printf("blank aborted, overlay create failed: %v", err)
		l.journal.RecordError("overlay", err)
		return err
	}

	l.power.Off()
	l.blanked = true
	l.blankedRO.Store(true)
	l.blankedAt = l.now()
	l.journal.RecordBlank(l.blankedAt, idleSeconds, l.clock.SourceName())

	log.Printf("Screen blanked (DPMS off) after %.1fs idle", idleSeconds)
	return nil
}

// wake powers the panel on, waits the settle delay so slow panels are
// lit before the real content is exposed, removes the overlay and
// returns to Awake. The triggering event dies with the overlay; no
// other surface was mapped above it, so nothing else sees it.
func (l *Loop) wake(trigger Kind) {
	if !l.blanked {
		return
	}

	l.power.On()
	l.sleep(l.settle)
	l.overlay.Destroy()

	now := l.now()
	dark := now.Sub(l.blankedAt)
	l.blanked = false
	l.blankedRO.Store(false)
	l.clock.Reset(now)
	l.journal.RecordWake(now, trigger.String(), dark)

	log.Printf("Screen awakened by %s after %v dark; first touch swallowed", trigger, dark.Round(time.Second))
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
