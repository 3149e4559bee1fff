package config

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schema constrains the `config` value of a CUE configuration file.
const schema = `
#Duration: =~"^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"

#Config: close({
	workers?:          int & >=0
	queue_size?:       int & >=0
	lane_concurrency?: int & >=0
	max_inflight?:     int & >=0
	request_timeout?:  #Duration
	connect_timeout?:  #Duration
	close_timeout?:    #Duration
	logging?: close({
		level?:  "trace" | "debug" | "info" | "warn" | "error" | "fatal" | "panic" | "disabled"
		format?: "json" | "text"
		loki?: close({
			enabled?: bool
			url?:     string
			labels?: [string]: string
			min_level?: "trace" | "debug" | "info" | "warn" | "error" | "fatal" | "panic"
		})
	})
	telemetry?: close({
		enabled?:  bool
		provider?: "prometheus"
	})
})
`

func decodeCUE(path string, raw []byte) (*Config, error) {
	ctx := cuecontext.New()
	def := ctx.CompileString(schema, cue.Filename("kvbridge_schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	file := ctx.CompileBytes(raw, cue.Filename(path))
	if err := file.Err(); err != nil {
		return nil, fmt.Errorf("compile config: %s", cueerrors.Details(err, nil))
	}
	value := file.LookupPath(cue.ParsePath("config"))
	if !value.Exists() {
		return nil, fmt.Errorf("config: %s has no top-level config value", path)
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate config: %s", cueerrors.Details(err, nil))
	}
	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
