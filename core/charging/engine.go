package charging

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kwhlab/evdemand/core/logger"
	"github.com/kwhlab/evdemand/core/model"
	"github.com/kwhlab/evdemand/core/soc"
)

const stepHours = float64(model.StepMinutes) / 60

// LogisticConfig makes the infrastructure probability SOC-dependent: the
// emptier the battery, the more likely the user seeks and finds a charger.
type LogisticConfig struct {
	Enabled bool `json:"enabled"`
	// Steepness is the slope of the logistic curve over the SOC fraction.
	Steepness float64 `json:"steepness"`
	// Midpoint is the SOC fraction at which the curve crosses one half.
	Midpoint float64 `json:"midpoint"`
}

// Config holds the charging-control parameters of one run.
type Config struct {
	Enabled  bool           `json:"enabled"`
	Mode     string         `json:"mode"`
	Logistic LogisticConfig `json:"logistic"`
	// InfrProb is the probability of finding charging infrastructure when
	// parking.
	InfrProb float64 `json:"infr_prob"`
	// StationsKW and StationProb pair nominal station powers with their
	// selection probabilities; the probabilities must sum to one.
	StationsKW  []float64 `json:"stations_kw"`
	StationProb []float64 `json:"station_prob"`
	// NightWindow is the off-peak window used by the night-charge mode.
	NightWindow Window `json:"night_window"`
	// InitialSoC is the SOC fraction every battery starts the padded
	// horizon with.
	InitialSoC float64 `json:"initial_soc"`
}

// SetDefaults applies the reference defaults: 80% infrastructure
// availability, the 3.7/11/120 kW station mix, a 00:00-06:00 night window and
// a full initial battery. Callers layering file configuration on top must
// apply defaults first, then unmarshal, so explicitly configured zeros
// (infr_prob: 0, initial_soc: 0) are kept.
func (c *Config) SetDefaults() {
	if c.InfrProb == 0 {
		c.InfrProb = 0.8
	}
	if len(c.StationsKW) == 0 {
		c.StationsKW = []float64{3.7, 11, 120}
		c.StationProb = []float64{0.6, 0.3, 0.1}
	}
	if c.NightWindow == (Window{}) {
		c.NightWindow = Window{StartHour: 0, EndHour: 6}
	}
	if c.InitialSoC == 0 {
		c.InitialSoC = 1
	}
	if c.Logistic.Steepness == 0 {
		c.Logistic.Steepness = 10
	}
	if c.Logistic.Midpoint == 0 {
		c.Logistic.Midpoint = 0.5
	}
}

// Validate checks the control parameters.
func (c Config) Validate() error {
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	if c.InfrProb < 0 || c.InfrProb > 1 {
		return fmt.Errorf("infr_prob %.3f outside [0,1]", c.InfrProb)
	}
	if len(c.StationsKW) == 0 || len(c.StationsKW) != len(c.StationProb) {
		return fmt.Errorf("stations_kw and station_prob must be non-empty and of equal length")
	}
	var sum float64
	for i, p := range c.StationProb {
		if p < 0 {
			return fmt.Errorf("station_prob[%d] is negative", i)
		}
		if c.StationsKW[i] <= 0 {
			return fmt.Errorf("stations_kw[%d] must be positive", i)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("station probabilities sum to %.6f, expected 1", sum)
	}
	if c.InitialSoC < 0 || c.InitialSoC > 1 {
		return fmt.Errorf("initial_soc %.3f outside [0,1]", c.InitialSoC)
	}
	return nil
}

// Result is the charging outcome of one user over the padded horizon.
type Result struct {
	ChargingKW []float64
	SoCKWh     []float64
	Sessions   []model.ChargingSession
	Unmet      []model.UnmetDemandEvent
}

// Engine evaluates, for every parking event of a user, whether a charging
// session opens and how power is scheduled over the parking window under the
// active control policy.
type Engine struct {
	cfg             Config
	mode            Mode
	horizon         model.Horizon
	residual        []float64
	residualMissing bool
	log             logger.Logger
}

// New builds the engine for one country run. residual may be nil; a
// RES-dependent mode then degrades to uncontrolled scheduling and the caller
// is warned once.
func New(cfg Config, h model.Horizon, residual []float64, log logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, mode: mode, horizon: h, residual: residual, log: log}
	if residual == nil && (mode == ModeRESIntegration || mode == ModePerfectForesight) {
		e.residualMissing = true
		log.Warnf("residual load series missing: %s charging degrades to uncontrolled scheduling", mode)
	}
	return e, nil
}

// ResidualMissing reports whether a RES-dependent mode runs without its
// residual-load input.
func (e *Engine) ResidualMissing() bool { return e.residualMissing }

// Run walks the user's event sequence once, depleting SOC while driving and
// evaluating a charging opportunity for every parking event. The per-event
// state machine is: not evaluated -> no infrastructure, or infrastructure
// found -> charging -> completed (battery full) or aborted (event ends
// first).
func (e *Engine) Run(u model.User, events []model.Event, drivingKW []float64, rng *rand.Rand) Result {
	tracker := soc.NewTracker(u, e.cfg.InitialSoC)
	steps := e.horizon.Steps()
	res := Result{
		ChargingKW: make([]float64, steps),
		SoCKWh:     make([]float64, steps),
	}

	for _, ev := range events {
		if ev.State == model.Driving {
			for step := ev.Start; step < ev.End; step++ {
				res.SoCKWh[step] = tracker.Advance(step, drivingKW[step], 0)
			}
			continue
		}

		if !e.cfg.Enabled {
			fillConstant(res.SoCKWh, ev.Start, ev.End, tracker.SoC())
			continue
		}

		if rng.Float64() >= e.availabilityProb(u, tracker.Fraction()) {
			res.Sessions = append(res.Sessions, model.ChargingSession{
				UserID: u.ID,
				Start:  ev.Start,
				End:    ev.End,
				State:  model.SessionNoInfrastructure,
			})
			fillConstant(res.SoCKWh, ev.Start, ev.End, tracker.SoC())
			continue
		}

		nominal := e.stationPower(rng)
		curve := schedulers[e.mode](scheduleRequest{
			horizon:   e.horizon,
			start:     ev.Start,
			end:       ev.End,
			nominalKW: nominal,
			neededKWh: tracker.Headroom(),
			residual:  e.residual,
			night:     e.cfg.NightWindow,
		})

		var delivered float64
		for step := ev.Start; step < ev.End; step++ {
			kw := curve[step-ev.Start]
			if maxKW := tracker.MaxChargeKW(); kw > maxKW {
				kw = maxKW
			}
			res.ChargingKW[step] = kw
			res.SoCKWh[step] = tracker.Advance(step, 0, kw)
			delivered += kw * stepHours
		}
		state := model.SessionAborted
		if tracker.Full() {
			state = model.SessionCompleted
		}
		res.Sessions = append(res.Sessions, model.ChargingSession{
			UserID:       u.ID,
			Start:        ev.Start,
			End:          ev.End,
			NominalKW:    nominal,
			DeliveredKWh: delivered,
			State:        state,
		})
	}

	res.Unmet = tracker.Unmet()
	return res
}

// availabilityProb returns the probability that a charging opportunity is
// taken for the current parking event. With the logistic option the base
// probability is scaled by a decreasing logistic curve over the SOC fraction,
// modelling charging urgency.
func (e *Engine) availabilityProb(u model.User, socFrac float64) float64 {
	p := u.InfrastructureProb(e.cfg.InfrProb)
	if e.cfg.Logistic.Enabled {
		p *= 1 / (1 + math.Exp(e.cfg.Logistic.Steepness*(socFrac-e.cfg.Logistic.Midpoint)))
	}
	return p
}

// stationPower samples the nominal power of the found station from the
// configured power/probability pairs.
func (e *Engine) stationPower(rng *rand.Rand) float64 {
	dist := distuv.NewCategorical(e.cfg.StationProb, rng)
	return e.cfg.StationsKW[int(dist.Rand())]
}

func fillConstant(dst []float64, start, end int, v float64) {
	for i := start; i < end; i++ {
		dst[i] = v
	}
}
