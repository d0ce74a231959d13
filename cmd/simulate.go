package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kwhlab/evdemand/config"
	"github.com/kwhlab/evdemand/core/behavior"
	"github.com/kwhlab/evdemand/core/charging"
	"github.com/kwhlab/evdemand/core/model"
	"github.com/kwhlab/evdemand/core/simulation"
	"github.com/kwhlab/evdemand/infra/export"
	"github.com/kwhlab/evdemand/infra/logger"
	"github.com/kwhlab/evdemand/infra/metrics"
	"github.com/kwhlab/evdemand/infra/publish"
	"github.com/kwhlab/evdemand/infra/residual"
)

// runSimulation executes the per-country batch loop. A country whose
// behavioural distribution is missing or invalid is skipped and reported;
// any other failure aborts the batch.
func runSimulation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Logging.Apply()
	logg := logger.New("evdemand")

	var sinks []metrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusAddr); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink metrics.Sink = metrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}
	defer sink.Close()

	var pub *publish.Publisher
	if cfg.Publish.Enabled {
		pub, err = publish.New(cfg.Publish, logger.New("publisher"))
		if err != nil {
			return fmt.Errorf("mqtt publisher: %w", err)
		}
		defer pub.Close()
	}

	var writer *export.Writer
	if cfg.Output.WriteCSV {
		writer, err = export.NewWriter(cfg.Output.Dir)
		if err != nil {
			return err
		}
	}

	var failed []string
	for _, country := range cfg.Countries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runCountry(ctx, cfg, country, sink, pub, writer); err != nil {
			if model.IsConfigurationError(err) {
				logg.Errorf("country %s skipped: %v", country, err)
				failed = append(failed, country)
				continue
			}
			return err
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d countries failed: %s",
			len(failed), len(cfg.Countries), strings.Join(failed, ", "))
	}
	return nil
}

func runCountry(ctx context.Context, cfg *config.Config, country string,
	sink metrics.Sink, pub *publish.Publisher, writer *export.Writer) error {
	log := logger.New("simulate-" + country)
	horizon := cfg.Simulation.Horizon()

	bcfg, err := cfg.Behavior.Country(country)
	if err != nil {
		return err
	}

	var residualSeries []float64
	if mode, err := charging.ParseMode(cfg.Charging.Mode); err == nil &&
		(mode == charging.ModeRESIntegration || mode == charging.ModePerfectForesight) {
		series, found, err := residual.Load(cfg.ResidualLoad.Dir, country, horizon)
		if err != nil {
			return err
		}
		if found {
			residualSeries = series
		}
	}

	engine, err := charging.New(cfg.Charging, horizon, residualSeries, log)
	if err != nil {
		return model.ConfigurationError{Country: country, Reason: err.Error()}
	}

	seed := simulation.CountrySeed(cfg.Simulation.Seed, country)
	sampler := behavior.New(country, bcfg, horizon, seed)
	runner := simulation.NewRunner(country, horizon, sampler, engine, cfg.Simulation.Workers, log)

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	log.Infof("country %s completed in %s (run %s)", country, res.Elapsed, res.RunID)

	if writer != nil {
		if err := writer.WriteProfiles(res); err != nil {
			return fmt.Errorf("export %s: %w", country, err)
		}
		if cfg.Output.PerUser {
			if err := writer.WriteUserSummary(res); err != nil {
				return fmt.Errorf("export %s: %w", country, err)
			}
		}
	}
	if err := sink.RecordRun(res); err != nil {
		log.Errorf("metrics: %v", err)
	}
	if pub != nil {
		if err := pub.PublishRun(res); err != nil {
			log.Errorf("publish: %v", err)
		}
	}
	return nil
}
