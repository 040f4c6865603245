package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	"kioskidle/internal/models"
)

// Store is the slice of the journal the reporter needs.
type Store interface {
	GetSummarySince(since time.Time) (*models.CycleSummary, error)
	GetEventsSince(since time.Time) ([]models.CycleEvent, error)
}

// Reporter generates blank/wake cycle reports from the journal
type Reporter struct {
	store Store
}

// New creates a new reporter
func New(store Store) *Reporter {
	return &Reporter{store: store}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string, includeCycles bool) (*models.Report, error) {
	period, err := GetPeriod(periodType)
	if err != nil {
		return nil, err
	}

	summary, err := r.store.GetSummarySince(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle summary: %w", err)
	}

	report := &models.Report{
		Period:      *period,
		Summary:     *summary,
		GeneratedAt: time.Now(),
	}

	if includeCycles {
		cycles, err := r.store.GetEventsSince(period.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to get cycle events: %w", err)
		}
		report.Cycles = cycles
	}

	return report, nil
}

// GetPeriod calculates the time range for a report
func GetPeriod(periodType string) (*models.ReportPeriod, error) {
	now := time.Now()
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.Add(24 * time.Hour)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	output := fmt.Sprintf("Blank/Wake Report - %s\n", report.Period.Type)
	output += fmt.Sprintf("Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))

	if report.Summary.BlankCount == 0 && report.Summary.WakeCount == 0 {
		output += "\nNo blank/wake cycles recorded for this period.\n"
		return output
	}

	output += fmt.Sprintf(`
Blanks:          %d
Wakes:           %d
Dark time:       %s
Mean idle lead:  %.1fs
`,
		report.Summary.BlankCount,
		report.Summary.WakeCount,
		FormatRoundedUnit(report.Summary.TotalDarkSecs),
		report.Summary.MeanIdleSeconds)

	if len(report.Cycles) > 0 {
		output += fmt.Sprintf("\n%-20s %-6s %-16s %10s\n", "Time", "Kind", "Trigger", "Dark")
		output += "--------------------------------------------------------\n"
		for _, c := range report.Cycles {
			dark := ""
			if c.Kind == models.KindWake {
				dark = FormatRoundedUnit(c.DarkSeconds)
			}
			output += fmt.Sprintf("%-20s %-6s %-16s %10s\n",
				c.Timestamp.Format("2006-01-02 15:04:05"),
				c.Kind,
				c.Trigger,
				dark)
		}
	}

	return output
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// FormatRoundedUnit renders a second count in its largest round unit
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds > 3600 {
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dm", seconds/60)
}
