package plan

import (
	"fmt"
	"math"
	"time"

	"github.com/lildude/trailcoach/internal/model"
)

const defaultWeeksToRace = 16

// RequestFor builds the generator request for profile as of today.
func RequestFor(profile model.UserProfile, today time.Time) model.PlanRequest {
	start := WeekStart(today)
	req := model.PlanRequest{
		Level:            profile.FitnessLevel,
		WeeklyHours:      profile.WeeklyHours,
		Goals:            profile.Goals,
		TargetDate:       profile.RaceDate,
		WeeksToRace:      defaultWeeksToRace,
		CurrentWeekStart: start.Format(time.DateOnly),
	}
	if profile.RaceDistance > 0 {
		req.TargetRace = fmt.Sprintf("%dkm ultra-trail", profile.RaceDistance)
	}
	// Compare calendar dates in UTC so a DST change cannot shift the count.
	monday, _ := time.Parse(time.DateOnly, req.CurrentWeekStart)
	if race, err := time.Parse(time.DateOnly, profile.RaceDate); err == nil && race.After(monday) {
		req.WeeksToRace = int(math.Ceil(race.Sub(monday).Hours() / (24 * 7)))
	}
	return req
}
