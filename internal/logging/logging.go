// Package logging builds the zerolog logger shared by the runtime and its
// clients.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/timzifer/kvbridge/internal/config"
)

// Setup logs to stderr because stdout belongs to the host process.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	return SetupWriter(cfg, os.Stderr)
}

// SetupWriter is Setup with an explicit local output. The returned cleanup
// flushes and stops the Loki client when one was started.
func SetupWriter(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, func(), error) {
	level, err := parseLevel(cfg.Level, zerolog.InfoLevel)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	var local io.Writer = out
	if strings.EqualFold(cfg.Format, "text") {
		local = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	writers := []io.Writer{local}
	cleanup := func() {}

	if cfg.Loki.Enabled {
		ship, stop, err := startLoki(cfg.Loki)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, ship)
		cleanup = stop
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("component", "kvbridge").
		Logger()
	return logger, cleanup, nil
}

func parseLevel(raw string, fallback zerolog.Level) (zerolog.Level, error) {
	if raw == "" {
		return fallback, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

func startLoki(cfg config.LokiConfig) (*lokiWriter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, errors.New("loki url is required")
	}
	// a chatty debug session should not flood the log store
	threshold, err := parseLevel(cfg.MinLevel, zerolog.InfoLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("loki: %w", err)
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}
	return newLokiWriter(client, lokiLabels(cfg.Labels), threshold), client.Stop, nil
}

func lokiLabels(in map[string]string) model.LabelSet {
	labels := make(model.LabelSet, len(in)+1)
	for k, v := range in {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	if _, ok := labels["app"]; !ok {
		labels["app"] = "kvbridge"
	}
	return labels
}

// lokiSink is the part of *loki.Client the writer needs.
type lokiSink interface {
	Handle(labels model.LabelSet, ts time.Time, entry string) error
}

// lokiWriter ships entries at or above threshold, labelled with their level.
// A failing push is dropped: logging must never fail a command.
type lokiWriter struct {
	sink      lokiSink
	labels    map[zerolog.Level]model.LabelSet
	threshold zerolog.Level
	now       func() time.Time
}

func newLokiWriter(sink lokiSink, base model.LabelSet, threshold zerolog.Level) *lokiWriter {
	// built once so concurrent writes only read the map
	labels := map[zerolog.Level]model.LabelSet{zerolog.NoLevel: base}
	for level := zerolog.TraceLevel; level <= zerolog.PanicLevel; level++ {
		set := base.Clone()
		set["level"] = model.LabelValue(level.String())
		labels[level] = set
	}
	return &lokiWriter{sink: sink, labels: labels, threshold: threshold, now: time.Now}
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	return l.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel is called by zerolog.MultiLevelWriter with the entry's level.
func (l *lokiWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level != zerolog.NoLevel && level < l.threshold {
		return len(p), nil
	}
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	labels, ok := l.labels[level]
	if !ok {
		labels = l.labels[zerolog.NoLevel]
	}
	_ = l.sink.Handle(labels, l.now(), entry)
	return len(p), nil
}
