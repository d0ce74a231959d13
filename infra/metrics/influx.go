package metrics

import (
	"context"
	"math"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kwhlab/evdemand/core/aggregate"
	"github.com/kwhlab/evdemand/core/simulation"
	"github.com/kwhlab/evdemand/infra/logger"
)

// InfluxSink writes aggregated run profiles to an InfluxDB instance using
// the official client. Profiles are downsampled to hourly means to keep the
// point count manageable.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg Config) Sink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return NopSink{}
	}
	return sink
}

// RecordRun writes the run's hourly mobility and charging profiles plus a
// summary point.
func (s *InfluxSink) RecordRun(res *simulation.RunResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start, _ := res.Horizon.ReportedRange()
	base := res.Horizon.TimeAt(start)
	mobility := aggregate.ReportedHourlyMeans(res.MobilityKW, res.Horizon)
	charging := aggregate.ReportedHourlyMeans(res.ChargingKW, res.Horizon)
	for i := range mobility {
		p := write.NewPointWithMeasurement("ev_demand").
			AddTag("country", res.Country).
			AddTag("run_id", res.RunID).
			AddField("mobility_kw", round3(mobility[i])).
			AddField("charging_kw", round3(charging[i])).
			SetTime(base.Add(time.Duration(i) * time.Hour))
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}

	peak, _ := aggregate.Peak(res.ChargingKW)
	summary := write.NewPointWithMeasurement("ev_demand_run").
		AddTag("country", res.Country).
		AddTag("run_id", res.RunID).
		AddField("users", len(res.Users)).
		AddField("charging_peak_kw", round3(peak)).
		AddField("unmet_demand_events", res.UnmetCount()).
		AddField("duration_seconds", res.Elapsed.Seconds()).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, summary)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
