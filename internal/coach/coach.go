// Package coach talks to the generative model that writes plans, meals and advice.
// Every operation except GeneratePlan answers with an offline fallback when the model
// is unreachable or replies with something unusable.
package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lildude/trailcoach/internal/client"
	"github.com/lildude/trailcoach/internal/metrics"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/"

const (
	adviceOffline = "Network error. Even coaches lose signal in the mountains sometimes."
	adviceEmpty   = "I'm focusing on the trail right now, ask me again later."
)

// AIServiceError wraps every failure talking to the model.
type AIServiceError struct {
	Op  string
	Err error
}

func (e *AIServiceError) Error() string {
	return fmt.Sprintf("coach %s: %v", e.Op, e.Err)
}

func (e *AIServiceError) Unwrap() error { return e.Err }

var ErrNoAPIKey = errors.New("missing gemini api key")

type Client struct {
	api     *client.Client
	apiKey  string
	model   string
	metrics *metrics.Manager
	log     logrus.FieldLogger
	now     func() time.Time
}

// New returns a coach Client. An empty apiKey is allowed; every call then falls back.
func New(baseURL, apiKey, modelName string, hc *http.Client, m *metrics.Manager, log logrus.FieldLogger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing gemini base url: %w", err)
	}
	return &Client{
		api:     client.NewClient(u, hc),
		apiKey:  apiKey,
		model:   modelName,
		metrics: m,
		log:     log,
		now:     time.Now,
	}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate sends prompt to the model and returns the text of the first candidate.
func (c *Client) generate(ctx context.Context, op, prompt string, asJSON bool) (string, error) {
	if c.apiKey == "" {
		return "", &AIServiceError{Op: op, Err: ErrNoAPIKey}
	}
	body := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	if asJSON {
		body.GenerationConfig = &generationConfig{ResponseMimeType: "application/json"}
	}
	req, err := c.api.NewRequest(ctx, http.MethodPost, fmt.Sprintf("v1beta/models/%s:generateContent", c.model), body)
	if err != nil {
		return "", &AIServiceError{Op: op, Err: err}
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	var resp generateResponse
	if _, err := c.api.Do(req, &resp); err != nil {
		return "", &AIServiceError{Op: op, Err: err}
	}
	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

// generateJSON is generate followed by decoding the reply into v.
func (c *Client) generateJSON(ctx context.Context, op, prompt string, v any) error {
	text, err := c.generate(ctx, op, prompt, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(StripFences(text)), v); err != nil {
		return &AIServiceError{Op: op, Err: fmt.Errorf("decoding model reply: %w", err)}
	}
	return nil
}

// StripFences removes Markdown code fences the model sometimes wraps JSON in.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func (c *Client) fallback(op string, err error) {
	c.log.WithError(err).WithField("operation", op).Warn("coach unavailable, using offline answer")
	if c.metrics != nil {
		c.metrics.CounterAIFallbacks.WithLabelValues(op).Inc()
	}
}

// GeneratePlan asks for one week of training. Failures are returned; the plan
// service owns the fallback.
func (c *Client) GeneratePlan(ctx context.Context, req model.PlanRequest) (*model.WeeklyPlan, error) {
	profile, err := json.Marshal(req)
	if err != nil {
		return nil, &AIServiceError{Op: "plan", Err: err}
	}
	var p model.WeeklyPlan
	if err := c.generateJSON(ctx, "plan", planPrompt(string(profile)), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// NutritionPlan returns meal suggestions for a training focus.
func (c *Client) NutritionPlan(ctx context.Context, focus string) []model.NutritionPlanDay {
	var days []model.NutritionPlanDay
	err := c.generateJSON(ctx, "nutrition_plan", nutritionPrompt(focus), &days)
	if err == nil && len(days) == 0 {
		err = &AIServiceError{Op: "nutrition_plan", Err: errors.New("empty plan")}
	}
	if err != nil {
		c.fallback("nutrition_plan", err)
		return FallbackNutritionPlan()
	}
	return days
}

// AnalyzeMeal turns a free-text food log entry into a meal with macros.
func (c *Client) AnalyzeMeal(ctx context.Context, foodLog string) model.Meal {
	var m model.Meal
	err := c.generateJSON(ctx, "analyze_meal", mealPrompt(foodLog), &m)
	if err == nil {
		err = validMeal(m)
	}
	if err != nil {
		c.fallback("analyze_meal", err)
		return FallbackMeal()
	}
	m.ID = uuid.NewString()
	m.Time = c.now().Format("15:04")
	return m
}

func validMeal(m model.Meal) error {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return &AIServiceError{Op: "analyze_meal", Err: errors.New("meal has no name")}
	case !m.Type.Valid():
		return &AIServiceError{Op: "analyze_meal", Err: fmt.Errorf("unknown meal type %q", m.Type)}
	case m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fats < 0:
		return &AIServiceError{Op: "analyze_meal", Err: errors.New("negative nutrient value")}
	}
	return nil
}

// Advice answers a free-text question from the athlete.
func (c *Client) Advice(ctx context.Context, query, background string) string {
	text, err := c.generate(ctx, "advice", advicePrompt(query, background), false)
	if err != nil {
		c.fallback("advice", err)
		return adviceOffline
	}
	if text = strings.TrimSpace(text); text == "" {
		return adviceEmpty
	}
	return text
}

// FallbackNutritionPlan is the single training day served when the model is unavailable.
func FallbackNutritionPlan() []model.NutritionPlanDay {
	return []model.NutritionPlanDay{{
		Day: "Training Day",
		Meals: map[model.MealType]model.PlannedMeal{
			model.Breakfast: {Name: "Oatmeal Power", Description: "Oats with berries and honey", Calories: 450, Macros: model.Macros{P: 15, C: 70, F: 10}},
			model.Lunch:     {Name: "Chicken Quinoa", Description: "Grilled chicken bowl", Calories: 600, Macros: model.Macros{P: 40, C: 60, F: 20}},
			model.Dinner:    {Name: "Salmon & Sweet Potato", Description: "Baked salmon with steamed veggies", Calories: 550, Macros: model.Macros{P: 35, C: 40, F: 25}},
			model.Snack:     {Name: "Trail Mix", Description: "Nuts and dried fruits", Calories: 300, Macros: model.Macros{P: 8, C: 30, F: 18}},
		},
	}}
}

// FallbackMeal is logged when a meal cannot be analysed.
func FallbackMeal() model.Meal {
	return model.Meal{
		ID:       uuid.NewString(),
		Name:     "Logged Item (Offline)",
		Calories: 300,
		Protein:  10,
		Carbs:    40,
		Fats:     10,
		Time:     "12:00",
		Type:     model.Snack,
	}
}
