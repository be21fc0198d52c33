package provider

import (
	"math"
	"strings"
	"time"

	"github.com/lildude/trailcoach/internal/model"
	"golang.org/x/text/cases"
)

// Window is how far back activity lists reach.
const Window = 30 * 24 * time.Hour

var folder = cases.Fold()

// ClassifyActivityType maps a provider's free-text type onto the common vocabulary.
// The match is deliberately loose: anything mentioning "trail" is a trail run,
// anything mentioning "hike" a hike, everything else a run.
func ClassifyActivityType(s string) model.ActivityType {
	t := folder.String(s)
	switch {
	case strings.Contains(t, "trail"):
		return model.TrailRun
	case strings.Contains(t, "hike"):
		return model.Hike
	}
	return model.Run
}

// Kilometres converts metres to kilometres rounded to one decimal place.
func Kilometres(metres float64) float64 {
	return math.Round(nonNegative(metres)/1000*10) / 10
}

// Minutes converts seconds to whole minutes.
func Minutes(seconds float64) int {
	return int(math.Round(nonNegative(seconds) / 60))
}

// Whole rounds to the nearest integer; negative values become zero.
func Whole(v float64) int {
	return int(math.Round(nonNegative(v)))
}

// CalendarDate keeps the date portion of a provider timestamp. No timezone
// conversion is applied; the provider's own offset decides the day.
func CalendarDate(ts string) string {
	ts = strings.TrimSpace(ts)
	if i := strings.IndexAny(ts, "T "); i >= 0 {
		return ts[:i]
	}
	return ts
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
