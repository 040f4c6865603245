package journal

import (
	"testing"
	"time"

	"kioskidle/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewRepository(db)
}

func TestCreateAndGetLatest(t *testing.T) {
	repo := newTestRepository(t)

	latest, err := repo.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest on empty journal: %v", err)
	}
	if latest != nil {
		t.Fatalf("GetLatest on empty journal = %+v, want nil", latest)
	}

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	events := []models.CycleEvent{
		{Timestamp: base, Kind: models.KindBlank, IdleSeconds: 300, IdleSource: "screensaver"},
		{Timestamp: base.Add(2 * time.Minute), Kind: models.KindWake, Trigger: "KeyPress", DarkSeconds: 120},
	}
	for i := range events {
		if err := repo.Create(&events[i]); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	latest, err = repo.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest == nil || latest.Kind != models.KindWake {
		t.Errorf("GetLatest = %+v, want the wake event", latest)
	}
}

func TestGetEventsSince(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		event := models.CycleEvent{
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			Kind:       models.KindBlank,
			IdleSource: "screensaver",
		}
		if err := repo.Create(&event); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	events, err := repo.GetEventsSince(base.Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("GetEventsSince: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("GetEventsSince returned %d events, want 2", len(events))
	}
	if !events[0].Timestamp.Before(events[1].Timestamp) {
		t.Error("events not in ascending timestamp order")
	}
}

func TestGetSummarySince(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	events := []models.CycleEvent{
		{Timestamp: base, Kind: models.KindBlank, IdleSeconds: 300, IdleSource: "screensaver"},
		{Timestamp: base.Add(1 * time.Minute), Kind: models.KindWake, Trigger: "ButtonPress", DarkSeconds: 60},
		{Timestamp: base.Add(10 * time.Minute), Kind: models.KindBlank, IdleSeconds: 500, IdleSource: "activity"},
		{Timestamp: base.Add(12 * time.Minute), Kind: models.KindWake, Trigger: "KeyPress", DarkSeconds: 120},
	}
	for i := range events {
		if err := repo.Create(&events[i]); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	summary, err := repo.GetSummarySince(base)
	if err != nil {
		t.Fatalf("GetSummarySince: %v", err)
	}
	if summary.BlankCount != 2 {
		t.Errorf("BlankCount = %d, want 2", summary.BlankCount)
	}
	if summary.WakeCount != 2 {
		t.Errorf("WakeCount = %d, want 2", summary.WakeCount)
	}
	if summary.TotalDarkSecs != 180 {
		t.Errorf("TotalDarkSecs = %d, want 180", summary.TotalDarkSecs)
	}
	if summary.MeanIdleSeconds != 400 {
		t.Errorf("MeanIdleSeconds = %f, want 400", summary.MeanIdleSeconds)
	}

	// A window past the last event sees nothing.
	summary, err = repo.GetSummarySince(base.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetSummarySince: %v", err)
	}
	if summary.BlankCount != 0 || summary.WakeCount != 0 {
		t.Errorf("summary past last event = %+v, want zeroes", summary)
	}
}

func TestDeleteOldEvents(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		event := models.CycleEvent{
			Timestamp:  base.AddDate(0, 0, i),
			Kind:       models.KindBlank,
			IdleSource: "screensaver",
		}
		if err := repo.Create(&event); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	deleted, err := repo.DeleteOldEvents(base.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}
	if deleted != 3 {
		t.Errorf("DeleteOldEvents removed %d rows, want 3", deleted)
	}

	remaining, err := repo.GetEventsSince(base)
	if err != nil {
		t.Fatalf("GetEventsSince: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("%d events remain, want 2", len(remaining))
	}
}

func TestClear(t *testing.T) {
	repo := newTestRepository(t)

	event := models.CycleEvent{
		Timestamp:  time.Now(),
		Kind:       models.KindBlank,
		IdleSource: "screensaver",
	}
	if err := repo.Create(&event); err != nil {
		t.Fatalf("Create: %v", err)
	}
	errLog := models.ErrorLog{
		Timestamp: time.Now(),
		Component: "overlay",
		ErrorMsg:  "window allocation failed",
	}
	if err := repo.CreateErrorLog(&errLog); err != nil {
		t.Fatalf("CreateErrorLog: %v", err)
	}

	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	latest, err := repo.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest after Clear: %v", err)
	}
	if latest != nil {
		t.Errorf("GetLatest after Clear = %+v, want nil", latest)
	}
}
