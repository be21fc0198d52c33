// Package calendarevent reads training sessions from iCalendar feeds.
package calendarevent

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/apognu/gocal"
)

type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// EventLister returns the events that fall between start and end.
type EventLister interface {
	Events(ctx context.Context, start, end time.Time) ([]Event, error)
}

type CalendarService struct {
	Client HTTPClient
	URL    string
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewCalendarService(client HTTPClient, url string) *CalendarService {
	return &CalendarService{
		Client: client,
		URL:    url,
	}
}

// Events returns the feed's events between start and end, earliest first.
func (cs CalendarService) Events(ctx context.Context, start, end time.Time) ([]Event, error) {
	if cs.URL == "" {
		return nil, fmt.Errorf("no calendar feed configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cs.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := cs.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching calendar: %s", resp.Status)
	}

	c := gocal.NewParser(resp.Body)
	c.Start, c.End = &start, &end

	if err := c.Parse(); err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	events := make([]Event, 0, len(c.Events))
	for _, component := range c.Events {
		if component.Start == nil {
			continue
		}
		e := Event{
			Summary:     strings.TrimSpace(component.Summary),
			Description: unescape(component.Description),
			Start:       *component.Start,
		}
		if component.End != nil {
			e.End = *component.End
		}
		events = append(events, e)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	return events, nil
}

func unescape(s string) string {
	return strings.TrimSpace(strings.NewReplacer(`\n`, "\n", `\,`, ",", `\;`, ";").Replace(s))
}
