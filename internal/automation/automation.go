package automation

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gridsim/internal/config"
	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/metrics"
	"github.com/san-kum/gridsim/internal/sim"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset ("rule/name") or the defaults and
// overrides every field that is set.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Rule       string             `yaml:"rule"`
	Shape      []int              `yaml:"shape"`
	Initial    string             `yaml:"initial"`
	Boundary   string             `yaml:"boundary"`
	Stencil    string             `yaml:"stencil"`
	Dt         float64            `yaml:"dt"`
	Steps      int                `yaml:"steps"`
	Bound      float64            `yaml:"bound"`
	Seed       int64              `yaml:"seed"`
	OnError    string             `yaml:"on_error"`
	Params     map[string]float64 `yaml:"params"`
	InitParams map[string]float64 `yaml:"init_params"`
	SaveAs     string             `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Config resolves the step into a full run config.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		rule, name, ok := strings.Cut(s.Preset, "/")
		if !ok || rule == "" || name == "" {
			return nil, fmt.Errorf("preset must be rule/name, got %q", s.Preset)
		}
		cfg = config.GetPreset(rule, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}

	if s.Rule != "" {
		cfg.Rule = s.Rule
	}
	if len(s.Shape) > 0 {
		cfg.Shape = append([]int(nil), s.Shape...)
	}
	if s.Initial != "" {
		cfg.Initial = s.Initial
	}
	if s.Boundary != "" {
		cfg.Boundary = s.Boundary
	}
	if s.Stencil != "" {
		cfg.Stencil = s.Stencil
	}
	if s.Dt != 0 {
		cfg.Dt = s.Dt
	}
	if s.Steps != 0 {
		cfg.Steps = s.Steps
	}
	if s.Bound != 0 {
		cfg.Bound = s.Bound
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if s.OnError != "" {
		cfg.OnError = s.OnError
	}
	for k, v := range s.Params {
		cfg.Params[k] = v
	}
	for k, v := range s.InitParams {
		cfg.InitParams[k] = v
	}
	return cfg, cfg.Validate()
}

// StepResult pairs a scenario step with its run.
type StepResult struct {
	Step   ScenarioStep
	Result *experiment.Result
}

// RunScenario executes all steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("Running scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("rule", cfg.Rule))

		exp := experiment.New(cfg, registry, logger)
		if err := exp.Setup(registryMetrics(registry)); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Step: step, Result: result})
	}

	return results, nil
}

func registryMetrics(registry *experiment.Registry) []sim.Metric {
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	return registry.DefaultMetrics()
}

// ParameterSweep runs the base config across evenly spaced values of one rule
// parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the outcome of one sweep point.
type SweepResult struct {
	ParamValue  float64
	Cycles      int
	Anomalies   int
	Repaired    int
	Failures    int
	Peak        float64
	FinalEnergy float64
}

// RunSweep executes a parameter sweep. A failed point is recorded by its
// counts rather than aborting the sweep; other errors abort.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, logger *zap.Logger) ([]SweepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", sweep.NumSteps)
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}

	params, err := registry.RuleParams(sweep.Base.Rule)
	if err != nil {
		return nil, err
	}
	if _, ok := params[sweep.ParamName]; !ok {
		return nil, fmt.Errorf("rule %s has no parameter %q", sweep.Base.Rule, sweep.ParamName)
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.Clone()
		cfg.Params[sweep.ParamName] = paramVal

		peak := metrics.NewPeak()
		exp := experiment.New(cfg, registry, logger)
		if err := exp.Setup([]sim.Metric{peak}); err != nil {
			return results, err
		}

		result, err := exp.Run(ctx)
		if err != nil && ctx.Err() != nil {
			return results, err
		}
		if err != nil {
			logger.Warn("Sweep point failed", zap.Float64(sweep.ParamName, paramVal), zap.Error(err))
		}

		results = append(results, SweepResult{
			ParamValue:  paramVal,
			Cycles:      result.Cycles,
			Anomalies:   result.Anomalies,
			Repaired:    result.Repaired,
			Failures:    result.Failures,
			Peak:        peak.Value(),
			FinalEnergy: metrics.FieldEnergy(result.Final),
		})

		logger.Debug("Sweep point complete",
			zap.Int("point", i+1),
			zap.Int("of", sweep.NumSteps),
			zap.Float64(sweep.ParamName, paramVal))
	}

	return results, nil
}
