// Package idle measures seconds since the last user input anywhere on
// the system. It prefers the MIT-SCREEN-SAVER extension and degrades
// permanently to self-tracked activity timestamps when the extension is
// missing or a query fails.
package idle

import (
	"log"
	"time"
)

// Source is the authoritative idle-time capability. Exactly one
// implementation backs a Clock; when it fails the Clock falls back to
// activity timestamps and never asks again.
type Source interface {
	// SecondsIdle returns seconds since the last global user input.
	SecondsIdle() (float64, error)

	// Name identifies the source in logs and journal entries.
	Name() string
}

// Clock computes the daemon's idle time. Not safe for concurrent use;
// the supervisor loop is its only caller.
type Clock struct {
	source       Source
	available    bool
	lastActivity time.Time

	now func() time.Time
}

// NewClock builds a Clock around source. A nil source starts the clock
// directly on the fallback path.
func NewClock(source Source) *Clock {
	c := &Clock{
		source:    source,
		available: source != nil,
		now:       time.Now,
	}
	c.lastActivity = c.now()
	return c
}

// SecondsIdle returns the current idle time in seconds. The first
// failed query downgrades the clock to the fallback path for the rest
// of the process lifetime.
func (c *Clock) SecondsIdle() float64 {
	if c.available {
		idle, err := c.source.SecondsIdle()
		if err == nil {
			return idle
		}
		log.Printf("%s idle query failed, falling back to event-based idle timing: %v", c.source.Name(), err)
		c.available = false
	}

	idle := c.now().Sub(c.lastActivity).Seconds()
	if idle < 0 {
		return 0
	}
	return idle
}

// NoteActivity records an observed input event. Only the fallback path
// consumes the timestamp; updating it while the authoritative source is
// active is harmless bookkeeping.
func (c *Clock) NoteActivity(t time.Time) {
	c.lastActivity = t
}

// Reset sets the fallback baseline, used after a wake so the swallowed
// event counts as fresh activity.
func (c *Clock) Reset(t time.Time) {
	c.lastActivity = t
}

// Available reports whether the authoritative source is still in use.
func (c *Clock) Available() bool {
	return c.available
}

// SourceName returns the name of the path currently answering queries.
func (c *Clock) SourceName() string {
	if c.available {
		return c.source.Name()
	}
	return "activity"
}
