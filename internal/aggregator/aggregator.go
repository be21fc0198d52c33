// Package aggregator fans activity fetches out to every provider and merges the results
// into one timeline.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lildude/trailcoach/internal/metrics"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/provider"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcome is the settled result of one provider fetch: either Activities or Err.
type Outcome struct {
	Provider   model.ProviderID
	Activities []model.Activity
	Err        error
}

// Result is what a sync publishes.
type Result struct {
	Activities []model.Activity                              `json:"activities"`
	Status     map[model.ProviderID]model.IntegrationState `json:"status"`
}

type Aggregator struct {
	providers *provider.Registry
	tokens    provider.TokenStore
	metrics   *metrics.Manager
	log       logrus.FieldLogger
	now       func() time.Time

	mu         sync.Mutex
	status     map[model.ProviderID]model.IntegrationState
	activities []model.Activity
}

// New returns an Aggregator. A provider starts out connected when a usable access token is already stored for it.
func New(ctx context.Context, providers *provider.Registry, tokens provider.TokenStore, m *metrics.Manager, log logrus.FieldLogger) *Aggregator {
	a := &Aggregator{
		providers:  providers,
		tokens:     tokens,
		metrics:    m,
		log:        log,
		now:        time.Now,
		status:     make(map[model.ProviderID]model.IntegrationState),
		activities: []model.Activity{},
	}
	for _, p := range providers.All() {
		payload, ok, err := tokens.Get(ctx, p.ID())
		if err != nil {
			log.WithError(err).WithField("provider", p.ID()).Warn("unable to read stored tokens")
		}
		a.status[p.ID()] = model.IntegrationState{Connected: ok && payload != nil && payload.AccessToken != ""}
	}
	return a
}

// Sync fetches every provider concurrently and waits for all of them to settle.
// One provider failing never discards the other's activities.
func (a *Aggregator) Sync(ctx context.Context) Result {
	providers := a.providers.All()

	a.mu.Lock()
	for _, p := range providers {
		st := a.status[p.ID()]
		st.Syncing = true
		a.status[p.ID()] = st
	}
	a.mu.Unlock()

	outcomes := make([]Outcome, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = a.fetch(ctx, p)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	return a.publish(outcomes)
}

func (a *Aggregator) fetch(ctx context.Context, p provider.Provider) Outcome {
	begin := time.Now()
	acts, err := p.Activities(ctx)
	if a.metrics != nil {
		a.metrics.HistSyncDuration.WithLabelValues(string(p.ID())).Observe(time.Since(begin).Seconds())
	}
	return Outcome{Provider: p.ID(), Activities: acts, Err: err}
}

// publish applies every outcome under a single lock so readers never see a half-finished sync.
func (a *Aggregator) publish(outcomes []Outcome) Result {
	now := a.now()
	merged := []model.Activity{}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, o := range outcomes {
		st := a.status[o.Provider]
		st.Syncing = false
		if o.Err != nil {
			st.Error = fmt.Sprintf("%s sync failed.", o.Provider.Label())
			a.log.WithError(o.Err).WithField("provider", o.Provider).Error("sync failed")
			a.count(o.Provider, "failure", 0)
		} else {
			st.Error = ""
			st.LastSync = &now
			merged = append(merged, o.Activities...)
			a.count(o.Provider, "success", len(o.Activities))
		}
		a.status[o.Provider] = st
	}

	Sort(merged)
	a.activities = merged

	return Result{Activities: cloneActivities(merged), Status: a.snapshot()}
}

func (a *Aggregator) count(id model.ProviderID, outcome string, n int) {
	if a.metrics == nil {
		return
	}
	a.metrics.CounterSyncs.WithLabelValues(string(id), outcome).Inc()
	a.metrics.CounterSyncActivities.WithLabelValues(string(id)).Add(float64(n))
}

// Sort orders activities newest first. Same-day activities are ordered by distance
// descending, then provider, then id, so the first match for a date is the longest effort.
func Sort(acts []model.Activity) {
	sort.SliceStable(acts, func(i, j int) bool {
		x, y := acts[i], acts[j]
		if x.Date != y.Date {
			return x.Date > y.Date
		}
		if x.Distance != y.Distance {
			return x.Distance > y.Distance
		}
		if x.Source != y.Source {
			return x.Source.Rank() < y.Source.Rank()
		}
		return x.ID < y.ID
	})
}

// SetConnected records whether a provider has completed authorization.
func (a *Aggregator) SetConnected(id model.ProviderID, connected bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status[id]
	st.Connected = connected
	if connected {
		st.Error = ""
	}
	a.status[id] = st
}

// SetError records a provider error outside a sync, e.g. a failed authorization.
func (a *Aggregator) SetError(id model.ProviderID, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status[id]
	st.Error = msg
	a.status[id] = st
}

// Disconnect forgets a provider's tokens. It is local only; the provider is not notified.
func (a *Aggregator) Disconnect(ctx context.Context, id model.ProviderID) error {
	if err := a.tokens.Clear(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status[id]
	st.Connected = false
	st.Error = ""
	a.status[id] = st
	return nil
}

// State returns a copy of every provider's integration state.
func (a *Aggregator) State() map[model.ProviderID]model.IntegrationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Activities returns a copy of the last merged timeline.
func (a *Aggregator) Activities() []model.Activity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneActivities(a.activities)
}

func (a *Aggregator) snapshot() map[model.ProviderID]model.IntegrationState {
	out := make(map[model.ProviderID]model.IntegrationState, len(a.status))
	for k, v := range a.status {
		if v.LastSync != nil {
			t := *v.LastSync
			v.LastSync = &t
		}
		out[k] = v
	}
	return out
}

func cloneActivities(in []model.Activity) []model.Activity {
	out := make([]model.Activity, len(in))
	copy(out, in)
	return out
}
