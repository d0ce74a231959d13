// Package publish pushes finished run summaries to an MQTT broker so grid
// tooling can consume the profiles without polling the export directory.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwhlab/evdemand/core/aggregate"
	"github.com/kwhlab/evdemand/core/model"
	"github.com/kwhlab/evdemand/core/simulation"
	"github.com/kwhlab/evdemand/infra/logger"
)

// Config holds broker settings for result publishing.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "evdemand"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "evdemand/runs"
	}
}

// RunSummary is the payload published per country run.
type RunSummary struct {
	RunID             string    `json:"run_id"`
	Country           string    `json:"country"`
	GeneratedAt       time.Time `json:"generated_at"`
	Users             int       `json:"users"`
	ChargingPeakKW    float64   `json:"charging_peak_kw"`
	ChargingKWh       float64   `json:"charging_kwh"`
	MobilityKWh       float64   `json:"mobility_kwh"`
	UnmetDemandEvents int       `json:"unmet_demand_events"`
	// HourlyChargingKW is the reported window downsampled to hourly means.
	HourlyChargingKW []float64 `json:"hourly_charging_kw"`
}

// Publisher wraps a paho client configured for result publishing.
type Publisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	log    logger.Logger
}

// New connects to the broker and returns a ready publisher.
func New(cfg Config, log logger.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Publisher{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS, log: log}, nil
}

// PublishRun publishes the run summary to <prefix>/<country>.
func (p *Publisher) PublishRun(res *simulation.RunResult) error {
	peak, _ := aggregate.Peak(res.ChargingKW)
	summary := RunSummary{
		RunID:             res.RunID,
		Country:           res.Country,
		GeneratedAt:       time.Now().UTC(),
		Users:             len(res.Users),
		ChargingPeakKW:    peak,
		ChargingKWh:       aggregate.EnergyKWh(res.ChargingKW, model.StepMinutes),
		MobilityKWh:       aggregate.EnergyKWh(res.MobilityKW, model.StepMinutes),
		UnmetDemandEvents: res.UnmetCount(),
		HourlyChargingKW:  aggregate.ReportedHourlyMeans(res.ChargingKW, res.Horizon),
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", p.prefix, res.Country)
	token := p.client.Publish(topic, p.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.Debugw("published run summary", map[string]any{"topic": topic, "bytes": len(payload)})
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
