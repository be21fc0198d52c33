// Package summary totals the recent training load shown on the dashboard.
package summary

import (
	"math"

	"github.com/lildude/trailcoach/internal/adherence"
	"github.com/lildude/trailcoach/internal/model"
)

// recent is how many timeline activities count towards the weekly totals.
const recent = 7

type Weekly struct {
	VolumeKm  float64                    `json:"volumeKm"`
	VerticalM int                        `json:"verticalM"`
	Vertical  map[model.ActivityType]int `json:"verticalByType"`
	// Adherence is the share of non-rest sessions that are on track, 0 to 100.
	Adherence int `json:"adherence"`
}

// Compute summarises the first seven activities of the timeline and the adherence report.
func Compute(activities []model.Activity, report []adherence.Entry) Weekly {
	w := Weekly{Vertical: map[model.ActivityType]int{}}

	n := len(activities)
	if n > recent {
		n = recent
	}
	for _, a := range activities[:n] {
		w.VolumeKm += a.Distance
		w.VerticalM += a.ElevationGain
		w.Vertical[a.Type] += a.ElevationGain
	}
	w.VolumeKm = math.Round(w.VolumeKm*10) / 10

	graded, onTrack := 0, 0
	for _, e := range report {
		if e.Status == adherence.Exempt {
			continue
		}
		graded++
		if e.Status == adherence.OnTrack {
			onTrack++
		}
	}
	if graded > 0 {
		w.Adherence = int(math.Round(float64(onTrack) / float64(graded) * 100))
	}
	return w
}
