// Package simulation wires the behaviour sampler, the mobility profile
// generator and the charging engine into one per-country run.
package simulation

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kwhlab/evdemand/core/aggregate"
	"github.com/kwhlab/evdemand/core/behavior"
	"github.com/kwhlab/evdemand/core/charging"
	"github.com/kwhlab/evdemand/core/logger"
	"github.com/kwhlab/evdemand/core/mobility"
	"github.com/kwhlab/evdemand/core/model"
)

// CountrySeed derives a per-country seed from the run seed, so every country
// gets independent random streams while the batch stays reproducible.
func CountrySeed(base uint64, country string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(country))
	return base ^ h.Sum64()
}

// UserResult bundles everything the simulation produced for one user. Each
// user exclusively owns its slices; the aggregation step only reads them.
type UserResult struct {
	User       model.User
	Events     []model.Event
	DrivingKW  []float64
	Usage      []model.UsageState
	ChargingKW []float64
	SoCKWh     []float64
	Sessions   []model.ChargingSession
	Unmet      []model.UnmetDemandEvent
}

// RunResult is the outcome of one country run.
type RunResult struct {
	RunID   string
	Country string
	Horizon model.Horizon
	Users   []UserResult
	// MobilityKW and ChargingKW are the population totals over the padded
	// horizon.
	MobilityKW []float64
	ChargingKW []float64
	// ResidualMissing is set when a RES-dependent charging mode ran
	// without its residual-load input.
	ResidualMissing bool
	Elapsed         time.Duration
}

// UnmetCount returns the number of unmet-demand events across all users.
func (r *RunResult) UnmetCount() int {
	var n int
	for _, u := range r.Users {
		n += len(u.Unmet)
	}
	return n
}

// SessionCounts returns the number of charging sessions per terminal state.
func (r *RunResult) SessionCounts() map[model.SessionState]int {
	counts := make(map[model.SessionState]int)
	for _, u := range r.Users {
		for _, s := range u.Sessions {
			counts[s.State]++
		}
	}
	return counts
}

// Runner executes one country's simulation. Users are simulated in parallel;
// every user draws from its own seed-derived random stream and results are
// stored by population index, so parallel and sequential runs aggregate to
// bit-identical totals.
type Runner struct {
	country string
	horizon model.Horizon
	sampler *behavior.Sampler
	engine  *charging.Engine
	gen     mobility.Generator
	workers int
	log     logger.Logger
}

// NewRunner assembles the pipeline for one country.
func NewRunner(country string, h model.Horizon, sampler *behavior.Sampler, engine *charging.Engine, workers int, log logger.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		country: country,
		horizon: h,
		sampler: sampler,
		engine:  engine,
		gen:     mobility.Generator{Horizon: h},
		workers: workers,
		log:     log,
	}
}

// Run simulates the whole population and aggregates the results.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	users := r.sampler.Population()
	r.log.Infof("simulating %d users for %s over %d days", len(users), r.country, r.horizon.TotalDays())

	results := make([]UserResult, len(users))
	errs := make([]error, len(users))
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for i := range users {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx], errs[idx] = r.simulateUser(idx, users[idx])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	driving := make([][]float64, len(results))
	chargingKW := make([][]float64, len(results))
	for i := range results {
		driving[i] = results[i].DrivingKW
		chargingKW[i] = results[i].ChargingKW
	}

	res := &RunResult{
		RunID:           uuid.NewString(),
		Country:         r.country,
		Horizon:         r.horizon,
		Users:           results,
		MobilityKW:      aggregate.Sum(driving),
		ChargingKW:      aggregate.Sum(chargingKW),
		ResidualMissing: r.engine.ResidualMissing(),
		Elapsed:         time.Since(started),
	}
	if n := res.UnmetCount(); n > 0 {
		r.log.Warnf("%s: %d unmet-demand events recorded, check battery sizes against trip distances", r.country, n)
	}
	return res, nil
}

func (r *Runner) simulateUser(idx int, u model.User) (UserResult, error) {
	rng := r.sampler.UserRand(idx)
	events := r.sampler.SampleUser(u, rng)
	drivingKW, usage, err := r.gen.Profiles(u, events)
	if err != nil {
		return UserResult{}, err
	}
	cres := r.engine.Run(u, events, drivingKW, rng)
	return UserResult{
		User:       u,
		Events:     events,
		DrivingKW:  drivingKW,
		Usage:      usage,
		ChargingKW: cres.ChargingKW,
		SoCKWh:     cres.SoCKWh,
		Sessions:   cres.Sessions,
		Unmet:      cres.Unmet,
	}, nil
}
