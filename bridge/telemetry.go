package bridge

import (
	"fmt"
	"strings"

	"github.com/timzifer/kvbridge/envelope"
	"github.com/timzifer/kvbridge/internal/config"
	"github.com/timzifer/kvbridge/telemetry"
)

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "prometheus":
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			return nil, err
		}
		return collector, nil
	default:
		return telemetry.Noop(), fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return envelope.Classify(err).String()
}
