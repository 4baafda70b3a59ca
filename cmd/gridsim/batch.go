package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/gridsim/internal/automation"
	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/optim"
	"github.com/san-kum/gridsim/internal/storage"
)

var (
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int

	members int
	workers int

	noSave bool

	gridSpec   map[string]string
	metricName string
)

func newBatchCommands() []*cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep [rule]",
		Short: "run a rule across a range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "name", "", "rule parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")
	_ = sweepCmd.MarkFlagRequired("name")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario and store every step",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store step results")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [rule]",
		Short: "run seeded copies of a config concurrently",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addConfigFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&members, "members", 8, "number of members")
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "concurrent members (0 uses GOMAXPROCS)")

	searchCmd := &cobra.Command{
		Use:   "search [rule]",
		Short: "grid search rule parameters for the smallest metric value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}
	addConfigFlags(searchCmd)
	searchCmd.Flags().StringToStringVar(&gridSpec, "grid", nil, "parameter range as name=min:max:points")
	searchCmd.Flags().StringVar(&metricName, "metric", "energy", "metric to minimize")
	_ = searchCmd.MarkFlagRequired("grid")

	return []*cobra.Command{sweepCmd, scenarioCmd, ensembleCmd, searchCmd}
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, argOr(args, 0))
	if err != nil {
		return err
	}

	sweep := &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepPoints,
	}
	results, err := automation.RunSweep(cmd.Context(), sweep, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tCYCLES\tANOMALIES\tREPAIRED\tFAILURES\tPEAK\tENERGY\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%d\t%d\t%d\t%d\t%.4f\t%.4f\n",
			r.ParamValue, r.Cycles, r.Anomalies, r.Repaired, r.Failures, r.Peak, r.FinalEnergy)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenario: %s (%d steps)\n", scenario.Name, len(scenario.Steps))
	if scenario.Description != "" {
		fmt.Fprintf(out, "%s\n", scenario.Description)
	}

	results, runErr := automation.RunScenario(cmd.Context(), scenario, experiment.NewRegistry(), logger)

	var st storage.Store
	if !noSave && len(results) > 0 {
		st, err = openStore()
		if err != nil {
			return err
		}
		defer st.Close()
	}

	for i, r := range results {
		name := r.Step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		fmt.Fprintf(out, "\n%s: %s, %d cycles, %d anomalies, %d failures\n",
			name, r.Result.Config.Rule, r.Result.Cycles, r.Result.Anomalies, r.Result.Failures)

		if st == nil {
			continue
		}
		meta := storage.MetadataFromResult(r.Result)
		meta.ID = r.Step.SaveAs
		runID, err := st.Save(meta, r.Result.History)
		if err != nil {
			return err
		}
		logger.Debug("Scenario step stored", zap.String("step", name), zap.String("id", runID))
		fmt.Fprintf(out, "  run id: %s\n", runID)
	}
	return runErr
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, argOr(args, 0))
	if err != nil {
		return err
	}

	ens := &automation.EnsembleConfig{
		Base:    cfg,
		Members: members,
		Seed:    cfg.Seed,
		Workers: workers,
	}
	results, err := automation.RunEnsemble(cmd.Context(), ens, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tSEED\tCYCLES\tANOMALIES\tFAILURES\tMEAN\tPEAK\tENERGY")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%.4f\t%.4f\t%.4f\n",
			r.Index, r.Seed, r.Cycles, r.Anomalies, r.Failures, r.FinalMean, r.FinalPeak, r.FinalEnergy)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, meanAnomalies := automation.EnsembleStats(results)
	fmt.Fprintf(out, "\nstable: %d/%d  mean anomalies: %.2f\n", stable, len(results), meanAnomalies)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, argOr(args, 0))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(gridSpec))
	for name := range gridSpec {
		names = append(names, name)
	}
	sort.Strings(names)
	ranges := make([][]float64, len(names))
	for i, name := range names {
		ranges[i], err = parseRange(gridSpec[name])
		if err != nil {
			return fmt.Errorf("--grid %s: %w", name, err)
		}
	}

	gs, err := optim.NewGridSearch(names, ranges, logger)
	if err != nil {
		return err
	}
	best, tried, err := gs.Search(cmd.Context(), cfg, experiment.NewRegistry(), metricName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tried %d combinations\n", tried)
	fmt.Fprintf(out, "best %s: %.6f\n", metricName, best.Value)
	for _, name := range names {
		fmt.Fprintf(out, "  %s = %g\n", name, best.Params[name])
	}
	return nil
}

// parseRange reads min:max:points.
func parseRange(spec string) ([]float64, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected min:max:points, got %q", spec)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, err
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("need at least one point, got %d", n)
	}
	return optim.Linspace(lo, hi, n), nil
}
