package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lildude/trailcoach/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var title = cases.Title(language.English)

// ParseSummary reads a calendar event title of the form "<Type> <km>km", e.g.
// "Long Run 25km" or "hill repeats 8 km". A bare type is accepted with zero distance.
func ParseSummary(summary string) (model.SessionType, float64, error) {
	s := strings.Join(strings.Fields(summary), " ")
	if s == "" {
		return "", 0, fmt.Errorf("empty session summary")
	}
	name := title.String(s)
	for _, t := range model.SessionTypes {
		if !strings.HasPrefix(name, string(t)) {
			continue
		}
		rest := strings.TrimSpace(name[len(t):])
		if rest == "" {
			return t, 0, nil
		}
		rest = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(rest), "km"))
		km, err := strconv.ParseFloat(rest, 64)
		if err != nil || km < 0 {
			return "", 0, fmt.Errorf("session %q: bad distance %q", summary, rest)
		}
		return t, km, nil
	}
	return "", 0, fmt.Errorf("session %q: unknown type", summary)
}
