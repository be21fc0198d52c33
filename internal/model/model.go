// Package model holds the records shared across the service.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgtype"
)

// ProviderID identifies an activity provider.
type ProviderID string

const (
	Strava ProviderID = "strava"
	Garmin ProviderID = "garmin"
)

// Providers lists the supported providers in priority order.
var Providers = []ProviderID{Strava, Garmin}

// ParseProviderID maps a query or path value onto a known provider.
func ParseProviderID(s string) (ProviderID, error) {
	switch ProviderID(strings.ToLower(strings.TrimSpace(s))) {
	case Strava:
		return Strava, nil
	case Garmin:
		return Garmin, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Label is the human readable provider name.
func (p ProviderID) Label() string {
	switch p {
	case Strava:
		return "Strava"
	case Garmin:
		return "Garmin"
	}
	return string(p)
}

// Rank orders providers when everything else is equal. Unknown providers sort last.
func (p ProviderID) Rank() int {
	for i, id := range Providers {
		if id == p {
			return i
		}
	}
	return len(Providers)
}

type ActivityType string

const (
	Run      ActivityType = "Run"
	TrailRun ActivityType = "TrailRun"
	Hike     ActivityType = "Hike"
	Rest     ActivityType = "Rest"
)

// Activity is one completed exercise session, normalized across providers.
type Activity struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          ActivityType `json:"type"`
	Distance      float64      `json:"distance"`      // km, one decimal place
	Duration      int          `json:"duration"`      // minutes
	ElevationGain int          `json:"elevationGain"` // metres
	Date          string       `json:"date"`          // YYYY-MM-DD
	Calories      int          `json:"calories"`
	Source        ProviderID   `json:"source,omitempty"`
}

// TokenPayload is the credential bundle for one provider.
// ExpiresAt is in epoch seconds; zero means the provider did not say.
type TokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// IntegrationState is the per-provider connection status shown to the user.
type IntegrationState struct {
	Connected bool       `json:"connected"`
	Syncing   bool       `json:"syncing"`
	Error     string     `json:"error,omitempty"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
}

type SessionType string

const (
	SessionRest        SessionType = "Rest"
	SessionEasy        SessionType = "Easy"
	SessionTempo       SessionType = "Tempo"
	SessionIntervals   SessionType = "Intervals"
	SessionLongRun     SessionType = "Long Run"
	SessionHillRepeats SessionType = "Hill Repeats"
	SessionCrossTrain  SessionType = "Cross Train"
)

// SessionTypes lists every session type, longest name first so prefix matching is unambiguous.
var SessionTypes = []SessionType{
	SessionHillRepeats, SessionCrossTrain, SessionIntervals, SessionLongRun,
	SessionTempo, SessionEasy, SessionRest,
}

func (s SessionType) Valid() bool {
	for _, t := range SessionTypes {
		if t == s {
			return true
		}
	}
	return false
}

// TrainingSession is one planned day.
type TrainingSession struct {
	Day            string      `json:"day"`
	Date           string      `json:"date"`
	Type           SessionType `json:"type"`
	DistanceTarget float64     `json:"distanceTarget"`
	Description    string      `json:"description"`
	Completed      *bool       `json:"completed,omitempty"`
	ActualDistance *float64    `json:"actualDistance,omitempty"`
}

// WeeklyPlan is seven sessions, Monday first.
type WeeklyPlan struct {
	WeekNumber int               `json:"weekNumber"`
	Focus      string            `json:"focus"`
	Sessions   []TrainingSession `json:"sessions"`
}

var ErrInvalidPlan = errors.New("invalid weekly plan")

// Validate checks the plan covers exactly one Monday-first calendar week.
func (p *WeeklyPlan) Validate() error {
	if len(p.Sessions) != 7 {
		return fmt.Errorf("%w: want 7 sessions, got %d", ErrInvalidPlan, len(p.Sessions))
	}
	var first time.Time
	for i, s := range p.Sessions {
		d, err := time.Parse(time.DateOnly, s.Date)
		if err != nil {
			return fmt.Errorf("%w: session %d date %q: %v", ErrInvalidPlan, i, s.Date, err)
		}
		if i == 0 {
			if d.Weekday() != time.Monday {
				return fmt.Errorf("%w: first session %s is not a Monday", ErrInvalidPlan, s.Date)
			}
			first = d
		} else if !d.Equal(first.AddDate(0, 0, i)) {
			return fmt.Errorf("%w: session %d date %s out of sequence", ErrInvalidPlan, i, s.Date)
		}
		if !s.Type.Valid() {
			return fmt.Errorf("%w: session %d has unknown type %q", ErrInvalidPlan, i, s.Type)
		}
		if s.DistanceTarget < 0 {
			return fmt.Errorf("%w: session %d has negative distance", ErrInvalidPlan, i)
		}
	}
	return nil
}

// UserProfile is the athlete's persisted profile.
type UserProfile struct {
	Name         string   `json:"name"`
	RaceDistance int      `json:"raceDistance"`
	RaceDate     string   `json:"raceDate"`
	FitnessLevel string   `json:"fitnessLevel"`
	WeeklyHours  float64  `json:"weeklyHours,omitempty"`
	Goals        []string `json:"goals,omitempty"`
}

// DefaultProfile is used until the athlete saves their own.
var DefaultProfile = UserProfile{
	Name:         "Trail Runner",
	RaceDistance: 175,
	RaceDate:     "2025-08-24",
	FitnessLevel: "Advanced",
}

// PlanRequest is the profile sent to the plan generator.
type PlanRequest struct {
	Level            string   `json:"level,omitempty"`
	WeeklyHours      float64  `json:"weeklyHours,omitempty"`
	Goals            []string `json:"goals,omitempty"`
	TargetRace       string   `json:"targetRace,omitempty"`
	TargetDate       string   `json:"targetDate,omitempty"`
	WeeksToRace      int      `json:"weeksToRace,omitempty"`
	CurrentWeekStart string   `json:"currentWeekStart,omitempty"`
}

type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
	Snack     MealType = "Snack"
)

func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner, Snack:
		return true
	}
	return false
}

type Meal struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fats     float64  `json:"fats"`
	Time     string   `json:"time"`
	Type     MealType `json:"type"`
}

type Macros struct {
	P float64 `json:"p"`
	C float64 `json:"c"`
	F float64 `json:"f"`
}

type PlannedMeal struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Calories    float64 `json:"calories"`
	Macros      Macros  `json:"macros"`
}

type NutritionPlanDay struct {
	Day   string                   `json:"day"`
	Meals map[MealType]PlannedMeal `json:"meals"`
}

type NutritionTargets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

type NutritionDay struct {
	Date    string           `json:"date"`
	Meals   []Meal           `json:"meals"`
	Targets NutritionTargets `json:"targets"`
}

// NewNutritionDay returns an empty log for date with the default targets.
func NewNutritionDay(date string) NutritionDay {
	return NutritionDay{
		Date:  date,
		Meals: []Meal{},
		Targets: NutritionTargets{
			Calories: 3200,
			Protein:  140,
			Carbs:    450,
			Fats:     90,
		},
	}
}

// Blob is one key-value entry in the SQL backed store.
type Blob struct {
	Key       string       `gorm:"column:blob_key;primaryKey"`
	Value     pgtype.JSONB `gorm:"type:jsonb"`
	UpdatedAt time.Time
}
