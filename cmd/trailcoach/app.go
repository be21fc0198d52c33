package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lildude/trailcoach/internal/aggregator"
	"github.com/lildude/trailcoach/internal/cache"
	"github.com/lildude/trailcoach/internal/calendarevent"
	"github.com/lildude/trailcoach/internal/coach"
	"github.com/lildude/trailcoach/internal/config"
	"github.com/lildude/trailcoach/internal/database"
	"github.com/lildude/trailcoach/internal/garmin"
	"github.com/lildude/trailcoach/internal/handlers/activities"
	"github.com/lildude/trailcoach/internal/handlers/auth"
	coachhandler "github.com/lildude/trailcoach/internal/handlers/coach"
	planhandler "github.com/lildude/trailcoach/internal/handlers/plan"
	"github.com/lildude/trailcoach/internal/handlers/profile"
	"github.com/lildude/trailcoach/internal/handlers/respond"
	"github.com/lildude/trailcoach/internal/metrics"
	"github.com/lildude/trailcoach/internal/middleware"
	"github.com/lildude/trailcoach/internal/oauthflow"
	"github.com/lildude/trailcoach/internal/plan"
	"github.com/lildude/trailcoach/internal/provider"
	"github.com/lildude/trailcoach/internal/sessions"
	"github.com/lildude/trailcoach/internal/store"
	"github.com/lildude/trailcoach/internal/strava"
	"github.com/lildude/trailcoach/internal/tokens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type app struct {
	cfg      config.Config
	log      logrus.FieldLogger
	registry *prometheus.Registry
	metrics  *metrics.Manager
	closers  []func() error

	auth       *auth.Handler
	activities *activities.Handler
	plan       *planhandler.Handler
	profile    *profile.Handler
	coach      *coachhandler.Handler
}

// openStore connects the configured key-value backend.
func openStore(ctx context.Context, cfg config.Config) (cache.Cache, func() error, error) {
	switch cfg.StoreBackend {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return rc, rc.Close, nil
	case "postgres", "sqlite":
		db, err := database.InitDB(cfg.StoreBackend, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return database.NewBlobStore(db), sqlDB.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func newApp(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewManager("trailcoach", "server", a.registry)

	kv, closer, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)
	st := store.New(kv, log)
	ts := tokens.New(st)

	hc := &http.Client{Timeout: cfg.HTTPTimeout}
	sc, err := strava.New(cfg.Strava, ts, hc, log)
	if err != nil {
		return nil, err
	}
	gc, err := garmin.New(cfg.Garmin, ts, hc, log)
	if err != nil {
		return nil, err
	}
	providers := provider.NewRegistry(sc, gc)
	agg := aggregator.New(ctx, providers, ts, a.metrics, log)

	ai, err := coach.New(coach.DefaultBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, hc, a.metrics, log)
	if err != nil {
		return nil, err
	}
	var cal calendarevent.EventLister
	if cfg.CalendarURL != "" {
		cal = calendarevent.NewCalendarService(hc, cfg.CalendarURL)
	}
	plans := plan.New(st, ai, cal, log)

	ss, err := sessions.NewStore(cfg.SessionKey, cfg.Production())
	if err != nil {
		return nil, err
	}

	a.auth = &auth.Handler{
		Machine:     oauthflow.NewMachine(providers),
		Sessions:    ss,
		Aggregator:  agg,
		FrontendURL: cfg.FrontendURL,
	}
	a.activities = &activities.Handler{Aggregator: agg}
	a.plan = &planhandler.Handler{Plans: plans, Aggregator: agg}
	a.profile = &profile.Handler{Plans: plans}
	a.coach = &coachhandler.Handler{Coach: ai, Store: st}
	return a, nil
}

// Routes wires every handler behind the shared middleware.
func (a *app) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(
		middleware.PanicRecovery(a.metrics, a.log),
		middleware.RequestMetrics(a.metrics),
		middleware.LogRequest(a.log),
	)

	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/callback", a.auth.Callback).Methods(http.MethodGet)
	api.HandleFunc("/auth/{provider}", a.auth.Begin).Methods(http.MethodGet)
	api.HandleFunc("/auth/{provider}/disconnect", a.auth.Disconnect).Methods(http.MethodPost)
	api.HandleFunc("/integrations", a.auth.Integrations).Methods(http.MethodGet)

	api.HandleFunc("/activities", a.activities.List).Methods(http.MethodGet)
	api.HandleFunc("/activities/sync", a.activities.Sync).Methods(http.MethodPost)

	api.HandleFunc("/plan", a.plan.Current).Methods(http.MethodGet)
	api.HandleFunc("/plan/regenerate", a.plan.Regenerate).Methods(http.MethodPost)
	api.HandleFunc("/plan/import", a.plan.Import).Methods(http.MethodPost)
	api.HandleFunc("/plan/adherence", a.plan.Adherence).Methods(http.MethodGet)

	api.HandleFunc("/profile", a.profile.Get).Methods(http.MethodGet)
	api.HandleFunc("/profile", a.profile.Put).Methods(http.MethodPut)

	api.HandleFunc("/ai/nutrition-plan", a.coach.NutritionPlan).Methods(http.MethodPost)
	api.HandleFunc("/ai/analyze-nutrition", a.coach.AnalyzeNutrition).Methods(http.MethodPost)
	api.HandleFunc("/ai/coach-advice", a.coach.Advice).Methods(http.MethodPost)
	api.HandleFunc("/nutrition", a.coach.Nutrition).Methods(http.MethodGet)
	api.HandleFunc("/nutrition", a.coach.AddMeal).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.WithError(err).Warn("closing resource")
		}
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
