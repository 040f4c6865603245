package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kioskidle/internal/config"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

type fakeClock struct {
	mu      sync.Mutex
	idle    func() float64
	onReset func(time.Time)
	notes   int
	reset   int
}

func (f *fakeClock) SecondsIdle() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle()
}

func (f *fakeClock) NoteActivity(time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes++
}

func (f *fakeClock) Reset(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset++
	if f.onReset != nil {
		f.onReset(t)
	}
}

func (f *fakeClock) SourceName() string { return "fake" }

func (f *fakeClock) counts() (notes, reset int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes, f.reset
}

type fakeOverlay struct {
	mu        sync.Mutex
	active    bool
	creates   int
	destroys  int
	createErr error
}

func (f *fakeOverlay) Create() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.active {
		return nil
	}
	f.creates++
	f.active = true
	return nil
}

func (f *fakeOverlay) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		f.destroys++
		f.active = false
	}
}

func (f *fakeOverlay) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeOverlay) counts() (creates, destroys int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.destroys
}

type fakePower struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakePower) On() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "on")
}

func (f *fakePower) Off() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "off")
}

func (f *fakePower) sequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	blanks   int
	wakes    int
	triggers []string
	errs     []string
}

func (f *fakeRecorder) RecordBlank(time.Time, float64, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blanks++
}

func (f *fakeRecorder) RecordWake(_ time.Time, trigger string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wakes++
	f.triggers = append(f.triggers, trigger)
}

func (f *fakeRecorder) RecordError(component string, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, component)
}

type fixture struct {
	loop    *Loop
	clock   *fakeClock
	overlay *fakeOverlay
	power   *fakePower
	journal *fakeRecorder
	events  chan xgb.Event
	settled int
}

func newFixture(timeout time.Duration) *fixture {
	cfg := config.Default()
	cfg.Screen.Timeout = timeout
	cfg.Screen.SettleDelay = 5 * time.Millisecond

	f := &fixture{
		clock:   &fakeClock{idle: func() float64 { return 0 }},
		overlay: &fakeOverlay{},
		power:   &fakePower{},
		journal: &fakeRecorder{},
		events:  make(chan xgb.Event, 16),
	}
	f.loop = New(cfg, f.clock, f.overlay, f.power, f.events, f.journal)
	f.loop.sleep = func(time.Duration) { f.settled++ }
	return f
}

// checkInvariant asserts that the overlay exists exactly when the loop
// is blanked.
func checkInvariant(t *testing.T, f *fixture) {
	t.Helper()
	if f.overlay.Active() != f.loop.blanked {
		t.Errorf("invariant violated: overlay active=%v, blanked=%v",
			f.overlay.Active(), f.loop.blanked)
	}
}

func TestBlankIsIdempotent(t *testing.T) {
	f := newFixture(30 * time.Second)

	if err := f.loop.blank(31); err != nil {
		t.Fatalf("blank() error: %v", err)
	}
	if err := f.loop.blank(31); err != nil {
		t.Fatalf("second blank() error: %v", err)
	}

	creates, _ := f.overlay.counts()
	if creates != 1 {
		t.Errorf("overlay created %d times, want 1", creates)
	}
	if seq := f.power.sequence(); len(seq) != 1 || seq[0] != "off" {
		t.Errorf("power calls = %v, want [off]", seq)
	}
	if !f.loop.Blanked() {
		t.Error("Blanked() = false after blank")
	}
	checkInvariant(t, f)
}

func TestWakeSequence(t *testing.T) {
	f := newFixture(30 * time.Second)

	if err := f.loop.blank(31); err != nil {
		t.Fatalf("blank() error: %v", err)
	}

	// First ButtonPress while blanked wakes and is swallowed.
	f.loop.dispatch(xproto.ButtonPressEvent{})

	if seq := f.power.sequence(); len(seq) != 2 || seq[0] != "off" || seq[1] != "on" {
		t.Errorf("power calls = %v, want [off on]", seq)
	}
	if f.settled != 1 {
		t.Errorf("settle delay observed %d times, want 1", f.settled)
	}
	_, destroys := f.overlay.counts()
	if destroys != 1 {
		t.Errorf("overlay destroyed %d times, want 1", destroys)
	}
	if f.loop.Blanked() {
		t.Error("Blanked() = true after wake")
	}
	_, resets := f.clock.counts()
	if resets != 1 {
		t.Errorf("clock reset %d times, want 1", resets)
	}
	checkInvariant(t, f)

	// A second ButtonPress right after is ordinary activity, not a
	// swallow.
	f.loop.dispatch(xproto.ButtonPressEvent{})

	if seq := f.power.sequence(); len(seq) != 2 {
		t.Errorf("power calls = %v after awake press, want [off on]", seq)
	}
	notes, _ := f.clock.counts()
	if notes != 1 {
		t.Errorf("activity notes = %d, want 1", notes)
	}

	if f.journal.blanks != 1 || f.journal.wakes != 1 {
		t.Errorf("journal recorded %d blanks, %d wakes, want 1 and 1",
			f.journal.blanks, f.journal.wakes)
	}
	if len(f.journal.triggers) != 1 || f.journal.triggers[0] != "ButtonPress" {
		t.Errorf("journal triggers = %v, want [ButtonPress]", f.journal.triggers)
	}
}

// A drained batch of events while blanked: only the first qualifying
// event wakes; the rest land after the overlay is gone and are plain
// activity.
func TestBatchOnlyFirstTriggerWakes(t *testing.T) {
	f := newFixture(30 * time.Second)

	if err := f.loop.blank(31); err != nil {
		t.Fatalf("blank() error: %v", err)
	}

	batch := []xgb.Event{
		xproto.ButtonPressEvent{},
		xproto.MotionNotifyEvent{},
		xproto.KeyPressEvent{},
	}
	for _, ev := range batch {
		f.loop.dispatch(ev)
	}

	if seq := f.power.sequence(); len(seq) != 2 || seq[1] != "on" {
		t.Errorf("power calls = %v, want exactly [off on]", seq)
	}
	_, destroys := f.overlay.counts()
	if destroys != 1 {
		t.Errorf("overlay destroyed %d times, want 1", destroys)
	}
	if len(f.journal.triggers) != 1 || f.journal.triggers[0] != "ButtonPress" {
		t.Errorf("journal triggers = %v, want [ButtonPress]", f.journal.triggers)
	}

	// The two post-wake events were ordinary activity.
	notes, _ := f.clock.counts()
	if notes != 2 {
		t.Errorf("activity notes = %d, want 2", notes)
	}
	checkInvariant(t, f)
}

// Non-input events never wake a blanked display.
func TestNonTriggersDoNotWake(t *testing.T) {
	f := newFixture(30 * time.Second)

	if err := f.loop.blank(31); err != nil {
		t.Fatalf("blank() error: %v", err)
	}

	for _, ev := range []xgb.Event{
		xproto.ExposeEvent{},
		xproto.ConfigureNotifyEvent{},
		xproto.MapNotifyEvent{},
	} {
		f.loop.dispatch(ev)
	}

	if !f.loop.Blanked() {
		t.Error("Blanked() = false, non-input events woke the display")
	}
	if seq := f.power.sequence(); len(seq) != 1 {
		t.Errorf("power calls = %v, want [off]", seq)
	}
	checkInvariant(t, f)
}

func TestBlankAbortsWhenOverlayFails(t *testing.T) {
	f := newFixture(30 * time.Second)
	f.overlay.createErr = errors.New("window allocation failed")

	if err := f.loop.blank(31); err == nil {
		t.Fatal("blank() returned nil, want error")
	}

	if f.loop.Blanked() {
		t.Error("Blanked() = true after failed blank")
	}
	if seq := f.power.sequence(); len(seq) != 0 {
		t.Errorf("power calls = %v, want none", seq)
	}
	if len(f.journal.errs) != 1 || f.journal.errs[0] != "overlay" {
		t.Errorf("journal errors = %v, want [overlay]", f.journal.errs)
	}
	checkInvariant(t, f)
}

// End-to-end through Run: the display blanks no later than the timeout
// after the last activity, and the first event after the blank wakes
// it.
func TestRunBlanksAndWakes(t *testing.T) {
	f := newFixture(30 * time.Millisecond)

	// start is only touched through the clock's own callbacks, which
	// run under its mutex. Reset rebases it so the post-wake Awake
	// state holds until the timeout elapses again.
	start := time.Now()
	f.clock.idle = func() float64 { return time.Since(start).Seconds() }
	f.clock.onReset = func(at time.Time) { start = at }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx) }()

	waitFor(t, "blank", func() bool { return f.loop.Blanked() })

	if seq := f.power.sequence(); len(seq) != 1 || seq[0] != "off" {
		t.Errorf("power calls = %v, want [off]", seq)
	}

	f.events <- xproto.ButtonPressEvent{}

	waitFor(t, "wake", func() bool { return !f.loop.Blanked() })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}

	// The loop may have started a second cycle between the observed
	// wake and the cancellation, so assert the prefix.
	seq := f.power.sequence()
	if len(seq) < 2 || seq[0] != "off" || seq[1] != "on" {
		t.Errorf("power calls = %v, want [off on ...]", seq)
	}
}

func TestRunStopsWhenEventStreamCloses(t *testing.T) {
	f := newFixture(time.Hour)

	done := make(chan error, 1)
	go func() { done <- f.loop.Run(context.Background()) }()

	close(f.events)

	select {
	case err := <-done:
		if err == nil {
			t.Error("Run() = nil, want error on closed event stream")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after event stream closed")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
