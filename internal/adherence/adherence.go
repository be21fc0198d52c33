// Package adherence compares planned sessions with completed activities.
package adherence

import (
	"github.com/lildude/trailcoach/internal/model"
)

type Status string

const (
	OnTrack Status = "on_track"
	Partial Status = "partial"
	Behind  Status = "behind"
	// Exempt sessions have no distance target, such as rest days.
	Exempt Status = "exempt"
)

const (
	onTrackRatio = 0.9
	partialRatio = 0.5
)

// Match returns the first activity recorded on the session's date. Activities are
// expected in timeline order, so on a day with several efforts the longest wins.
func Match(session model.TrainingSession, activities []model.Activity) (model.Activity, bool) {
	for _, a := range activities {
		if a.Date == session.Date {
			return a, true
		}
	}
	return model.Activity{}, false
}

// Classify grades actual distance against the target.
func Classify(targetKm, actualKm float64) Status {
	if targetKm <= 0 {
		return Exempt
	}
	ratio := actualKm / targetKm
	switch {
	case ratio >= onTrackRatio:
		return OnTrack
	case ratio >= partialRatio:
		return Partial
	}
	return Behind
}

type Entry struct {
	Session  model.TrainingSession `json:"session"`
	Activity *model.Activity       `json:"activity,omitempty"`
	Status   Status                `json:"status"`
}

// Report grades every session in plan. Sessions with a matching activity are marked
// completed with the activity's distance.
func Report(plan model.WeeklyPlan, activities []model.Activity) []Entry {
	entries := make([]Entry, 0, len(plan.Sessions))
	for _, s := range plan.Sessions {
		e := Entry{Session: s}
		actual := 0.0
		if a, ok := Match(s, activities); ok {
			a := a
			e.Activity = &a
			actual = a.Distance
			done := true
			e.Session.Completed = &done
			e.Session.ActualDistance = &actual
		}
		e.Status = Classify(s.DistanceTarget, actual)
		entries = append(entries, e)
	}
	return entries
}
