package plan

import (
	"time"

	"github.com/lildude/trailcoach/internal/model"
)

const fallbackFocus = "Base Building & Aerobic Capacity"

var fallbackSessions = []struct {
	kind        model.SessionType
	distance    float64
	description string
}{
	{model.SessionRest, 0, "Active recovery or total rest."},
	{model.SessionEasy, 10, "Zone 2 flat trail run."},
	{model.SessionHillRepeats, 8, "10x3min hills @ threshold."},
	{model.SessionEasy, 10, "Recovery run, keep HR low."},
	{model.SessionRest, 0, "Mobility work."},
	{model.SessionLongRun, 25, "Trail run with 1000m+ elevation gain."},
	{model.SessionEasy, 15, "Back-to-back run on tired legs."},
}

// WeekStart returns midnight on the Monday of the week containing today.
// Sunday belongs to the week that started six days earlier.
func WeekStart(today time.Time) time.Time {
	wd := int(today.Weekday())
	offset := 1 - wd
	if today.Weekday() == time.Sunday {
		offset = -6
	}
	y, m, d := today.Date()
	return time.Date(y, m, d+offset, 0, 0, 0, 0, today.Location())
}

// WeekDates returns the seven YYYY-MM-DD dates of today's week, Monday first.
func WeekDates(today time.Time) []string {
	start := WeekStart(today)
	dates := make([]string, 7)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i).Format(time.DateOnly)
	}
	return dates
}

// Fallback is the fixed plan used whenever generation fails. The same today
// always yields the same plan.
func Fallback(today time.Time) model.WeeklyPlan {
	start := WeekStart(today)
	sessions := make([]model.TrainingSession, len(fallbackSessions))
	for i, s := range fallbackSessions {
		d := start.AddDate(0, 0, i)
		sessions[i] = model.TrainingSession{
			Day:            d.Weekday().String(),
			Date:           d.Format(time.DateOnly),
			Type:           s.kind,
			DistanceTarget: s.distance,
			Description:    s.description,
		}
	}
	return model.WeeklyPlan{
		WeekNumber: 1,
		Focus:      fallbackFocus,
		Sessions:   sessions,
	}
}
