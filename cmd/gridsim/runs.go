package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/gridsim/internal/analysis"
	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/export"
	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/storage"
	"github.com/san-kum/gridsim/internal/viz"
)

var (
	component    int
	snapIndex    int
	ascii        bool
	themeName    string
	plotNames    []string
	analyzeNames []string
	svgSeries    string
	cellFlag     string
	outputFile   string
	perturbation float64
	olderThan    time.Duration
	cellSize     int
)

func newRunCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "render a stored snapshot as a heatmap",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().IntVarP(&component, "component", "k", 0, "cell component to render")
	showCmd.Flags().IntVar(&snapIndex, "index", -1, "snapshot index (negative counts from the end)")
	showCmd.Flags().BoolVar(&ascii, "ascii", false, "plain character ramp instead of colors")
	showCmd.Flags().StringVar(&themeName, "theme", "thermal", "color theme")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run series over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotNames, "series", []string{"mean", "peak", "energy"}, "series to plot (mean|peak|energy)")
	plotCmd.Flags().StringVar(&cellFlag, "cell", "", "also plot one cell, e.g. 16,16")
	plotCmd.Flags().IntVarP(&component, "component", "k", 0, "component for --cell")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run snapshots to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a snapshot heatmap or a series plot to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVarP(&component, "component", "k", 0, "cell component to draw")
	exportSVGCmd.Flags().IntVar(&snapIndex, "index", -1, "snapshot index (negative counts from the end)")
	exportSVGCmd.Flags().StringVar(&themeName, "theme", "thermal", "color theme")
	exportSVGCmd.Flags().IntVar(&cellSize, "cell-size", 8, "pixels per cell")
	exportSVGCmd.Flags().StringVar(&svgSeries, "series", "", "draw this series over time instead of a heatmap")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and sensitivity analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&analyzeNames, "series", []string{"mean"}, "series to analyze (mean|peak|energy)")
	analyzeCmd.Flags().Float64Var(&perturbation, "perturb", 0, "rerun with every value shifted by this amount and report the growth rate")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "delete stored runs older than a cutoff (sqlite backend)",
		Args:  cobra.NoArgs,
		RunE:  pruneRuns,
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age cutoff")

	return []*cobra.Command{listCmd, showCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, analyzeCmd, pruneCmd}
}

// loadRun fetches metadata and history in one go.
func loadRun(runID string) (*storage.RunMetadata, []field.Snapshot, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	history, err := st.LoadSnapshots(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, history, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRULE\tTIME\tSHAPE\tDT\tCYCLES\tANOMALIES\tFAILURES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%.4f\t%d\t%d\t%d\n",
			run.ID,
			run.Rule,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Shape,
			run.Dt,
			run.Cycles,
			run.Anomalies,
			run.Failures,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no snapshots stored for %s", meta.ID)
	}

	snap, err := pickSnapshot(meta, history)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s  step: %d  t=%.3f\n\n", meta.ID, snap.Step, snap.Time)
	if ascii {
		fmt.Fprintln(out, viz.ASCIIHeatmap(snap, component, meta.Bound))
	} else {
		fmt.Fprintln(out, viz.Heatmap(snap, component, meta.Bound, viz.GetTheme(themeName)))
	}
	fmt.Fprintf(out, "\nmean %.4f  peak %.4f\n", snap.Mean(component), snap.MaxAbs())
	return nil
}

// pickSnapshot applies --index and checks --component against the run.
func pickSnapshot(meta *storage.RunMetadata, history []field.Snapshot) (field.Snapshot, error) {
	i := snapIndex
	if i < 0 {
		i += len(history)
	}
	if i < 0 || i >= len(history) {
		return field.Snapshot{}, fmt.Errorf("snapshot index %d out of range (0..%d)", snapIndex, len(history)-1)
	}
	if component < 0 || component >= meta.Width {
		return field.Snapshot{}, fmt.Errorf("component %d out of range (width %d)", component, meta.Width)
	}
	return history[i], nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(history) < 2 {
		return fmt.Errorf("no data to plot")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "rule: %s\n", meta.Rule)
	fmt.Fprintf(out, "samples: %d\n\n", len(history))

	for _, name := range plotNames {
		fn, ok := analysis.Extractors[name]
		if !ok {
			return fmt.Errorf("unknown series: %s", name)
		}
		plotSeries(out, analysis.Series(history, fn), name+" vs time")
	}

	if cellFlag != "" {
		c, err := parseCoord(cellFlag)
		if err != nil {
			return err
		}
		data := analysis.Series(history, analysis.CellOf(c, component))
		plotSeries(out, data, fmt.Sprintf("cell %v[%d] vs time", []int(c), component))
	}
	return nil
}

func plotSeries(w io.Writer, data []float64, caption string) {
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Fprintln(w, graph)
	fmt.Fprintln(w)
}

func parseCoord(s string) (field.Coord, error) {
	parts := strings.Split(s, ",")
	c := make(field.Coord, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q: %w", s, err)
		}
		c[i] = v
	}
	return c, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, done, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(w, *meta, history); err != nil {
		done()
		return err
	}
	return done()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, history, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, done, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	if err := storage.ExportCSV(w, history); err != nil {
		done()
		return err
	}
	return done()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no snapshots stored for %s", meta.ID)
	}
	theme := viz.GetTheme(themeName)

	var draw func(io.Writer) error
	if svgSeries != "" {
		fn, ok := analysis.Extractors[svgSeries]
		if !ok {
			return fmt.Errorf("unknown series: %s", svgSeries)
		}
		values := analysis.Series(history, fn)
		draw = func(w io.Writer) error {
			return export.SeriesSVG(w, analysis.Times(history), values, 640, 320, string(theme.Primary))
		}
	} else {
		snap, err := pickSnapshot(meta, history)
		if err != nil {
			return err
		}
		draw = func(w io.Writer) error {
			return export.HeatmapSVG(w, snap, component, meta.Bound, theme, cellSize)
		}
	}

	w, done, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	if err := draw(w); err != nil {
		done()
		return err
	}
	return done()
}

// outputWriter returns --output when set, otherwise stdout. done closes the
// file.
func outputWriter(cmd *cobra.Command) (io.Writer, func() error, error) {
	if outputFile == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, err
	}
	return f, func() error {
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", outputFile)
		return nil
	}, nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(history) < 4 {
		return fmt.Errorf("need at least 4 snapshots, have %d", len(history))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "frequency analysis: %s\n", meta.ID)
	fmt.Fprintf(out, "rule: %s\n\n", meta.Rule)

	interval := history[1].Time - history[0].Time
	for _, name := range analyzeNames {
		fn, ok := analysis.Extractors[name]
		if !ok {
			return fmt.Errorf("unknown series: %s", name)
		}
		ps := analysis.PowerSpectrum(analysis.Series(history, fn))
		plotData := ps
		if len(ps) >= 16 {
			plotData = ps[:len(ps)/2]
		}
		plotSeries(out, plotData, "power spectrum ("+name+")")

		bin := analysis.DominantFrequency(ps)
		if bin == 0 || interval <= 0 {
			fmt.Fprintf(out, "%s: no dominant frequency\n\n", name)
			continue
		}
		freq := float64(bin) / (float64(2*len(ps)) * interval)
		fmt.Fprintf(out, "%s: dominant frequency %.4f (period %.4f)\n\n", name, freq, 1/freq)
	}

	if perturbation != 0 {
		cfg := configFromMetadata(meta)
		rate, err := analysis.Sensitivity(cmd.Context(), cfg, experiment.NewRegistry(), perturbation)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "separation growth rate: %.6f per unit time\n", rate)
	}
	return nil
}

type pruner interface {
	Prune(cutoff time.Time) (int, error)
}

func pruneRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	p, ok := st.(pruner)
	if !ok {
		return fmt.Errorf("prune is not supported by the %s backend", backend)
	}
	n, err := p.Prune(time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d runs\n", n)
	return nil
}
