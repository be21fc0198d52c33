// Package plan owns the weekly training plan: generation with a fixed fallback,
// persistence and calendar import.
package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lildude/trailcoach/internal/calendarevent"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/store"
	"github.com/sirupsen/logrus"
)

// Generator produces a plan from an athlete profile.
type Generator interface {
	GeneratePlan(ctx context.Context, req model.PlanRequest) (*model.WeeklyPlan, error)
}

var (
	// ErrNoCalendar is returned by ImportCalendar when no feed is configured.
	ErrNoCalendar = errors.New("no calendar feed configured")
	// ErrUnavailable wraps store failures that leave no plan to return.
	ErrUnavailable = errors.New("plan unavailable")
)

type Service struct {
	store    *store.Store
	gen      Generator
	calendar calendarevent.EventLister
	log      logrus.FieldLogger
	now      func() time.Time
}

// New returns a plan Service. gen and calendar may be nil.
func New(s *store.Store, gen Generator, calendar calendarevent.EventLister, log logrus.FieldLogger) *Service {
	return &Service{store: s, gen: gen, calendar: calendar, log: log, now: time.Now}
}

// Profile returns the stored profile or the default one.
func (s *Service) Profile(ctx context.Context) model.UserProfile {
	return store.Load(ctx, s.store, store.KeyProfile, model.DefaultProfile)
}

// SaveProfile overwrites the stored profile.
func (s *Service) SaveProfile(ctx context.Context, p model.UserProfile) error {
	if err := s.store.Save(ctx, store.KeyProfile, p); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Current returns the stored plan, generating and storing one only when none exists.
// A store that cannot be read is an error; the stored plan is left alone.
func (s *Service) Current(ctx context.Context) (model.WeeklyPlan, error) {
	p, ok, err := store.Lookup[model.WeeklyPlan](ctx, s.store, store.KeyPlan)
	if err != nil {
		return model.WeeklyPlan{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if ok {
		err := p.Validate()
		if err == nil {
			return p, nil
		}
		s.log.WithError(err).Warn("stored plan is invalid, generating a new one")
	}
	return s.Regenerate(ctx, s.Profile(ctx))
}

// Regenerate always builds a new plan for profile and overwrites the stored one.
func (s *Service) Regenerate(ctx context.Context, profile model.UserProfile) (model.WeeklyPlan, error) {
	p := s.Generate(ctx, profile)
	if err := s.store.Save(ctx, store.KeyPlan, p); err != nil {
		return p, fmt.Errorf("saving plan: %w", err)
	}
	return p, nil
}

// Generate asks the generator for a plan and substitutes the fallback on any failure.
func (s *Service) Generate(ctx context.Context, profile model.UserProfile) model.WeeklyPlan {
	today := s.now()
	if s.gen == nil {
		return Fallback(today)
	}
	p, err := s.gen.GeneratePlan(ctx, RequestFor(profile, today))
	if err == nil && p == nil {
		err = errors.New("generator returned no plan")
	}
	if err == nil {
		err = p.Validate()
	}
	if err != nil {
		s.log.WithError(err).Warn("plan generation failed, using fallback plan")
		return Fallback(today)
	}
	return *p
}

// ImportCalendar builds the plan for the week containing weekOf from the calendar
// feed and stores it. Days without an event are rest days.
func (s *Service) ImportCalendar(ctx context.Context, weekOf time.Time) (model.WeeklyPlan, error) {
	if s.calendar == nil {
		return model.WeeklyPlan{}, ErrNoCalendar
	}
	start := WeekStart(weekOf)
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	events, err := s.calendar.Events(ctx, start, end)
	if err != nil {
		return model.WeeklyPlan{}, fmt.Errorf("importing calendar: %w", err)
	}

	p := model.WeeklyPlan{WeekNumber: 1, Focus: "Imported from calendar"}
	byDate := make(map[string]calendarevent.Event, len(events))
	for _, e := range events {
		d := e.Start.In(start.Location()).Format(time.DateOnly)
		if _, seen := byDate[d]; !seen {
			byDate[d] = e
		}
	}
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		session := model.TrainingSession{
			Day:  d.Weekday().String(),
			Date: d.Format(time.DateOnly),
			Type: model.SessionRest,
		}
		if e, ok := byDate[session.Date]; ok {
			kind, km, perr := ParseSummary(e.Summary)
			if perr != nil {
				s.log.WithError(perr).WithField("date", session.Date).Warn("skipping unreadable calendar event")
			} else {
				session.Type = kind
				session.DistanceTarget = km
				session.Description = e.Description
			}
		}
		p.Sessions = append(p.Sessions, session)
	}

	if err := s.store.Save(ctx, store.KeyPlan, p); err != nil {
		return p, fmt.Errorf("saving plan: %w", err)
	}
	return p, nil
}
