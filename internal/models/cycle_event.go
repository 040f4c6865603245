package models

import (
	"time"

	"gorm.io/gorm"
)

// Cycle event kinds
const (
	KindBlank = "blank"
	KindWake  = "wake"
)

// CycleEvent records one blank or wake transition of the display.
type CycleEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Timestamp   time.Time      `gorm:"not null;index" json:"timestamp"`
	Kind        string         `gorm:"not null;index" json:"kind"` // "blank" or "wake"
	IdleSeconds float64        `gorm:"not null;default:0" json:"idle_seconds"`
	IdleSource  string         `gorm:"not null" json:"idle_source"` // "screensaver" or "activity"
	Trigger     string         `json:"trigger"`                     // Input kind that woke the display, empty for blanks
	DarkSeconds int64          `gorm:"not null;default:0" json:"dark_seconds"` // Seconds spent blanked, set on wake events
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CycleSummary aggregates blank/wake activity over a period.
type CycleSummary struct {
	BlankCount      int64   `json:"blank_count"`
	WakeCount       int64   `json:"wake_count"`
	TotalDarkSecs   int64   `json:"total_dark_seconds"`
	MeanIdleSeconds float64 `json:"mean_idle_seconds"`
}

// ReportPeriod is the time range a report covers.
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

// Report is a cycle summary for a period plus the raw transition list.
type Report struct {
	Period      ReportPeriod `json:"period"`
	Summary     CycleSummary `json:"summary"`
	Cycles      []CycleEvent `json:"cycles,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}
