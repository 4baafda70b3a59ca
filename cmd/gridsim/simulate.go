package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/gridsim/internal/config"
	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/storage"
	"github.com/san-kum/gridsim/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, argOr(args, 0))
	if err != nil {
		return err
	}
	return execute(cmd, cfg, nil)
}

// execute runs cfg to completion and stores whatever history was recorded,
// even when the run fails. prepare, if set, sees the experiment before Setup.
func execute(cmd *cobra.Command, cfg *config.Config, prepare func(*experiment.Experiment)) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	registry := experiment.NewRegistry()
	exp := experiment.New(cfg, registry, logger)
	if prepare != nil {
		prepare(exp)
	}
	if err := exp.Setup(registry.DefaultMetrics()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "running %s on %v...\n", cfg.Rule, cfg.Shape)

	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(out, "interrupted")
		runErr = nil
	}

	runID, err := st.Save(storage.MetadataFromResult(result), result.History)
	if err != nil {
		return err
	}
	logger.Debug("Run stored", zap.String("id", runID), zap.String("backend", backend))

	printResult(out, runID, result)
	return runErr
}

func printResult(w io.Writer, runID string, result *experiment.Result) {
	fmt.Fprintf(w, "completed in %v\n", result.Elapsed)
	fmt.Fprintf(w, "run id: %s\n", runID)
	fmt.Fprintf(w, "cycles: %d\n", result.Cycles)
	fmt.Fprintf(w, "anomalies: %d (repaired %d cells)\n", result.Anomalies, result.Repaired)
	if result.InitialRepairs > 0 {
		fmt.Fprintf(w, "initial repairs: %d\n", result.InitialRepairs)
	}
	if result.Failures > 0 {
		fmt.Fprintf(w, "failed steps: %d\n", result.Failures)
	}
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Fprintf(w, "  %s: %.6f\n", name, result.Metrics[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && configFile == "" {
		return runApp(cmd, args)
	}
	cfg, err := resolveConfig(cmd, argOr(args, 0))
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	// The live view owns the terminal, so the experiment does not log.
	exp := experiment.New(cfg, registry, nil)
	if err := exp.Setup(registry.DefaultMetrics()); err != nil {
		return err
	}

	name := cfg.Rule
	if preset != "" {
		name += "/" + preset
	}
	p := tea.NewProgram(viz.NewModel(exp.Loop(), cfg.Steps, name), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(viz.Model); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cycles\n", name, m.Cycles())
	}
	return nil
}

// resumeRun continues a stored run from its last recorded snapshot and stores
// the continuation as a new run. The clock restarts at zero.
func resumeRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	meta, err := st.Load(args[0])
	if err != nil {
		st.Close()
		return err
	}
	history, err := st.LoadSnapshots(args[0])
	st.Close()
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("run %s has no snapshots", meta.ID)
	}
	start, err := history[len(history)-1].Grid()
	if err != nil {
		return err
	}

	cfg := configFromMetadata(meta)
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "resuming %s from step %d\n", meta.ID, history[len(history)-1].Step)
	return execute(cmd, cfg, func(e *experiment.Experiment) { e.UseGrid(start) })
}

func configFromMetadata(meta *storage.RunMetadata) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Rule = meta.Rule
	cfg.Shape = append([]int(nil), meta.Shape...)
	cfg.Initial = meta.Initial
	cfg.Boundary = meta.Boundary
	cfg.Stencil = meta.Stencil
	cfg.Dt = meta.Dt
	cfg.Steps = meta.Steps
	cfg.Bound = meta.Bound
	cfg.Seed = meta.Seed
	if meta.OnError != "" {
		cfg.OnError = meta.OnError
	}
	cfg.MaxRetries = meta.MaxRetries
	if meta.RecordEvery > 0 {
		cfg.RecordEvery = meta.RecordEvery
	}
	for k, v := range meta.Params {
		cfg.Params[k] = v
	}
	for k, v := range meta.InitParams {
		cfg.InitParams[k] = v
	}
	return cfg
}

func argOr(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
