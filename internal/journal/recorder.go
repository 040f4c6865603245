package journal

import (
	"log"
	"time"

	"kioskidle/internal/models"
)

// CycleRecorder feeds supervisor transitions into the journal. Every
// database failure is logged and swallowed here so the state machine
// never blocks on storage.
type CycleRecorder struct {
	repo *Repository
}

func NewCycleRecorder(repo *Repository) *CycleRecorder {
	return &CycleRecorder{repo: repo}
}

func (c *CycleRecorder) RecordBlank(t time.Time, idleSeconds float64, source string) {
	event := &models.CycleEvent{
		Timestamp:   t,
		Kind:        models.KindBlank,
		IdleSeconds: idleSeconds,
		IdleSource:  source,
	}
	if err := c.repo.Create(event); err != nil {
		log.Printf("failed to journal blank event: %v", err)
	}
}

func (c *CycleRecorder) RecordWake(t time.Time, trigger string, dark time.Duration) {
	event := &models.CycleEvent{
		Timestamp:   t,
		Kind:        models.KindWake,
		Trigger:     trigger,
		DarkSeconds: int64(dark.Seconds()),
	}
	if err := c.repo.Create(event); err != nil {
		log.Printf("failed to journal wake event: %v", err)
	}
}

func (c *CycleRecorder) RecordError(component string, opErr error) {
	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Component: component,
		ErrorMsg:  opErr.Error(),
	}
	if err := c.repo.CreateErrorLog(errorLog); err != nil {
		log.Printf("failed to journal error: %v (original error: %v)", err, opErr)
	}
}
