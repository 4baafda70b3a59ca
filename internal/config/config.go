package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gridsim/internal/field"
)

const (
	DefaultDt          = 0.1
	DefaultSteps       = 100
	DefaultBound       = 10.0
	DefaultSize        = 32
	DefaultRecordEvery = 1
	DefaultMaxRetries  = 3
)

// Error policies applied when a step fails.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
	OnErrorRetry = "retry"
)

type Config struct {
	Rule        string             `yaml:"rule"`
	Shape       []int              `yaml:"shape"`
	Initial     string             `yaml:"initial"`
	Boundary    string             `yaml:"boundary"`
	Stencil     string             `yaml:"stencil"`
	Dt          float64            `yaml:"dt"`
	Steps       int                `yaml:"steps"`
	Bound       float64            `yaml:"bound"`
	Seed        int64              `yaml:"seed"`
	RecordEvery int                `yaml:"record_every"`
	OnError     string             `yaml:"on_error"`
	MaxRetries  int                `yaml:"max_retries"`
	Params      map[string]float64 `yaml:"params,omitempty"`
	InitParams  map[string]float64 `yaml:"init_params,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Rule:        "diffusion",
		Shape:       []int{DefaultSize, DefaultSize},
		Initial:     "pulse",
		Boundary:    "reflect",
		Stencil:     "von_neumann",
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		Bound:       DefaultBound,
		RecordEvery: DefaultRecordEvery,
		OnError:     OnErrorAbort,
		MaxRetries:  DefaultMaxRetries,
		Params:      map[string]float64{},
		InitParams:  map[string]float64{},
	}
}

// Load reads a YAML config over the defaults and applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv applies GRIDSIM_SEED and GRIDSIM_STEPS to a config that was not
// read through Load, e.g. a preset.
func (c *Config) ApplyEnv() error { return c.applyEnvOverrides() }

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("GRIDSIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GRIDSIM_SEED %q: %w", v, err)
		}
		c.Seed = seed
	}
	if v := os.Getenv("GRIDSIM_STEPS"); v != "" {
		steps, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GRIDSIM_STEPS %q: %w", v, err)
		}
		c.Steps = steps
	}
	return nil
}

// Validate checks everything that can be checked without the rule registry.
func (c *Config) Validate() error {
	if c.Rule == "" {
		return fmt.Errorf("rule not configured")
	}
	if len(c.Shape) == 0 {
		return fmt.Errorf("shape not configured")
	}
	for i, d := range c.Shape {
		if d <= 0 {
			return fmt.Errorf("shape dimension %d must be positive, got %d", i, d)
		}
	}
	if !(c.Dt > 0) || math.IsInf(c.Dt, 1) {
		return fmt.Errorf("dt must be positive and finite, got %f", c.Dt)
	}
	if !(c.Bound >= 0) || math.IsInf(c.Bound, 1) {
		return fmt.Errorf("bound must be non-negative and finite, got %f", c.Bound)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", c.Steps)
	}
	if c.RecordEvery < 0 {
		return fmt.Errorf("record_every must not be negative, got %d", c.RecordEvery)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	switch c.OnError {
	case OnErrorAbort, OnErrorSkip, OnErrorRetry:
	default:
		return fmt.Errorf("invalid on_error policy: %s (valid: %s, %s, %s)", c.OnError, OnErrorAbort, OnErrorSkip, OnErrorRetry)
	}
	if _, err := field.ParseBoundary(c.Boundary); err != nil {
		return err
	}
	if _, err := field.ParseStencil(c.Stencil, len(c.Shape)); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy so presets and sweeps never share maps.
func (c *Config) Clone() *Config {
	out := *c
	out.Shape = append([]int(nil), c.Shape...)
	out.Params = make(map[string]float64, len(c.Params))
	for k, v := range c.Params {
		out.Params[k] = v
	}
	out.InitParams = make(map[string]float64, len(c.InitParams))
	for k, v := range c.InitParams {
		out.InitParams[k] = v
	}
	return &out
}
