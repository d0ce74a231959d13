package behavior

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kwhlab/evdemand/core/model"
)

const (
	// minParkSteps is the minimum parking gap enforced between two trips.
	minParkSteps = 10
	minTripSteps = 5
	maxTripSteps = 8 * 60
	maxTripsDay  = 6
)

// Sampler draws per-user trip/parking event sequences over the padded
// horizon. All randomness flows through explicit per-user generators derived
// from the run seed, so results are reproducible and independent of
// scheduling order.
type Sampler struct {
	country string
	cfg     CountryConfig
	classes map[string]ClassConfig
	horizon model.Horizon
	seed    uint64
}

// New builds a sampler for one country run.
func New(country string, cfg CountryConfig, horizon model.Horizon, seed uint64) *Sampler {
	classes := make(map[string]ClassConfig, len(cfg.Classes))
	for _, cls := range cfg.Classes {
		classes[cls.Name] = cls
	}
	return &Sampler{country: country, cfg: cfg, classes: classes, horizon: horizon, seed: seed}
}

// UserRand returns the dedicated random stream of the user at the given
// population index. Stream 0 is reserved for population synthesis.
func (s *Sampler) UserRand(idx int) *rand.Rand {
	return rand.New(rand.NewPCG(s.seed, uint64(idx)+1))
}

// Population synthesises the country's user population. Class assignment is
// quota-based and deterministic; battery capacity and consumption rate are
// jittered around the class means from the population stream.
func (s *Sampler) Population() []model.User {
	rng := rand.New(rand.NewPCG(s.seed, 0))
	jitter := distuv.Normal{Mu: 1, Sigma: 0.05, Src: rng}
	users := make([]model.User, 0, s.cfg.Users)
	counts := make(map[string]int, len(s.cfg.Classes))
	for i := 0; i < s.cfg.Users; i++ {
		cls := s.classAt(i)
		counts[cls.Name]++
		users = append(users, model.User{
			ID:                  fmt.Sprintf("%s-%s-%04d", strings.ToLower(s.country), cls.Name, counts[cls.Name]),
			Class:               cls.Name,
			BatteryKWh:          cls.BatteryKWh * clamp(jitter.Rand(), 0.8, 1.2),
			ConsumptionKWhPerKm: cls.ConsumptionKWhPerKm * clamp(jitter.Rand(), 0.8, 1.2),
			InfrProb:            -1,
		})
	}
	return users
}

// classAt maps a population index onto the class mixture by cumulative share.
func (s *Sampler) classAt(i int) ClassConfig {
	frac := (float64(i) + 0.5) / float64(s.cfg.Users)
	var cum float64
	for _, cls := range s.cfg.Classes {
		cum += cls.Share
		if frac <= cum {
			return cls
		}
	}
	return s.cfg.Classes[len(s.cfg.Classes)-1]
}

// SampleUser generates the user's contiguous event sequence over the whole
// padded horizon. The horizon is treated as one continuous process: a trip
// crossing midnight extends into the next day and that day's sampling resumes
// after it ends, never re-sampling a trip already in progress. Dummy days are
// sampled exactly like interior days.
func (s *Sampler) SampleUser(u model.User, rng *rand.Rand) []model.Event {
	cls := s.classes[u.Class]
	steps := s.horizon.Steps()
	events := make([]model.Event, 0, s.horizon.TotalDays()*4)

	durDist := distuv.LogNormal{Mu: logMeanToMu(cls.TripDurationMeanMin, cls.TripDurationSigma), Sigma: cls.TripDurationSigma, Src: rng}
	tripDist := distuv.Poisson{Lambda: 1, Src: rng}
	distJitter := distuv.Normal{Mu: 1, Sigma: 0.1, Src: rng}

	atHome := true
	cursor := 0
	for day := 0; day < s.horizon.TotalDays(); day++ {
		dayStart := day * model.StepsPerDay
		dayEnd := dayStart + model.StepsPerDay

		tripDist.Lambda = cls.TripsWeekday
		if wd := s.horizon.WeekdayOfDay(day); wd == time.Saturday || wd == time.Sunday {
			tripDist.Lambda = cls.TripsWeekend
		}
		n := int(tripDist.Rand())
		if n > maxTripsDay {
			n = maxTripsDay
		}
		if n == 0 {
			continue
		}

		departures := s.departures(n, dayStart, cls, rng)
		for i := 0; i < n; i++ {
			depart := departures[i]
			if depart < cursor+minParkSteps {
				depart = cursor + minParkSteps
			}
			if depart >= dayEnd || depart >= steps {
				break
			}
			dur := int(math.Round(durDist.Rand()))
			dur = int(clamp(float64(dur), minTripSteps, maxTripSteps))
			end := depart + dur
			if end > steps {
				end = steps
			}
			if end <= depart {
				continue
			}
			if depart > cursor {
				events = append(events, parkEvent(atHome, cursor, depart))
			}
			distance := float64(end-depart) / 60 * cls.SpeedKmh * clamp(distJitter.Rand(), 0.5, 1.5)
			events = append(events, model.Event{
				State:      model.Driving,
				Start:      depart,
				End:        end,
				DistanceKm: distance,
			})
			cursor = end
			if i == n-1 {
				// The last trip of the day returns home with the
				// configured probability; intermediate trips park
				// elsewhere.
				atHome = rng.Float64() < cls.HomeReturnProb
			} else {
				atHome = false
			}
		}
	}
	if cursor < steps {
		events = append(events, parkEvent(atHome, cursor, steps))
	}
	return events
}

// departures draws n sorted departure minutes within the class window of the
// given day.
func (s *Sampler) departures(n, dayStart int, cls ClassConfig, rng *rand.Rand) []int {
	lo := cls.DepartureStartHour * 60 / model.StepMinutes
	hi := cls.DepartureEndHour * 60 / model.StepMinutes
	out := make([]int, n)
	for i := range out {
		out[i] = dayStart + lo + rng.IntN(hi-lo)
	}
	sort.Ints(out)
	return out
}

func parkEvent(atHome bool, start, end int) model.Event {
	state := model.ParkedElsewhere
	if atHome {
		state = model.ParkedHome
	}
	return model.Event{State: state, Start: start, End: end}
}

// logMeanToMu converts a desired lognormal mean to the log-space location
// parameter.
func logMeanToMu(mean, sigma float64) float64 {
	return math.Log(mean) - sigma*sigma/2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
