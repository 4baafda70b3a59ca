package main

import (
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/gridsim/internal/config"
	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/storage"
	"github.com/san-kum/gridsim/internal/viz"
)

var (
	dataDir string
	backend string
	verbose bool
	logger  *zap.Logger

	// Run configuration flags. They override the config file or preset only
	// when set explicitly.
	configFile  string
	preset      string
	dt          float64
	steps       int
	bound       float64
	seed        int64
	shape       []int
	initName    string
	boundary    string
	stencil     string
	onError     string
	maxRetries  int
	recordEvery int
	params      map[string]string
	initParams  map[string]string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd wires every subcommand. Running gridsim without a subcommand
// opens the preset browser.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridsim",
		Short: "grid field evolution lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE:         runApp,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gridsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "file", "run storage backend (file|sqlite)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [rule]",
		Short: "run a simulation and store its history",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [rule]",
		Short: "step a simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue a stored run from its last snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeRun,
	}
	resumeCmd.Flags().IntVar(&steps, "steps", 0, "cycles to run (default: the stored budget)")

	presetsCmd := &cobra.Command{
		Use:   "presets [rule]",
		Short: "list available presets for a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Fprintf(out, "no presets for rule: %s\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "list update rules and their parameters",
		Args:  cobra.NoArgs,
		RunE:  listRules,
	}

	rootCmd.AddCommand(runCmd, liveCmd, resumeCmd, presetsCmd, rulesCmd)
	rootCmd.AddCommand(newRunCommands()...)
	rootCmd.AddCommand(newBatchCommands()...)
	return rootCmd
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration for the rule")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.IntVar(&steps, "steps", config.DefaultSteps, "cycle budget (0 runs until interrupted)")
	f.Float64Var(&bound, "bound", config.DefaultBound, "safe magnitude bound")
	f.Int64Var(&seed, "seed", 0, "random seed")
	f.IntSliceVar(&shape, "shape", []int{config.DefaultSize, config.DefaultSize}, "grid shape")
	f.StringVar(&initName, "initial", "pulse", "initial condition")
	f.StringVar(&boundary, "boundary", "reflect", "boundary (reflect|zero_flux|fixed|periodic)")
	f.StringVar(&stencil, "stencil", "von_neumann", "stencil (von_neumann|moore)")
	f.StringVar(&onError, "on-error", config.OnErrorAbort, "step failure policy (abort|skip|retry)")
	f.IntVar(&maxRetries, "max-retries", config.DefaultMaxRetries, "retries per step under the retry policy")
	f.IntVar(&recordEvery, "record-every", config.DefaultRecordEvery, "record every nth snapshot")
	f.StringToStringVar(&params, "param", nil, "rule parameter (name=value)")
	f.StringToStringVar(&initParams, "init-param", nil, "initial condition parameter (name=value)")
}

// resolveConfig layers defaults, then the config file or preset, then the
// environment, then any flag set on cmd.
func resolveConfig(cmd *cobra.Command, rule string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case preset != "":
		if rule == "" {
			return nil, fmt.Errorf("--preset needs a rule argument")
		}
		cfg = config.GetPreset(rule, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(rule))
		}
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	default:
		cfg = config.DefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	}
	if rule != "" {
		cfg.Rule = rule
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("bound") {
		cfg.Bound = bound
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("shape") {
		cfg.Shape = append([]int(nil), shape...)
	}
	if flags.Changed("initial") {
		cfg.Initial = initName
	}
	if flags.Changed("boundary") {
		cfg.Boundary = boundary
	}
	if flags.Changed("stencil") {
		cfg.Stencil = stencil
	}
	if flags.Changed("on-error") {
		cfg.OnError = onError
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = maxRetries
	}
	if flags.Changed("record-every") {
		cfg.RecordEvery = recordEvery
	}
	if cfg.Params == nil {
		cfg.Params = map[string]float64{}
	}
	if cfg.InitParams == nil {
		cfg.InitParams = map[string]float64{}
	}
	if err := mergeParams(cfg.Params, params); err != nil {
		return nil, err
	}
	if err := mergeParams(cfg.InitParams, initParams); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func mergeParams(dst map[string]float64, raw map[string]string) error {
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", k, err)
		}
		dst[k] = f
	}
	return nil
}

func openStore() (storage.Store, error) {
	return storage.Open(backend, dataDir)
}

func runApp(cmd *cobra.Command, args []string) error {
	p := tea.NewProgram(viz.NewApp(experiment.NewRegistry()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func listRules(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	registry := experiment.NewRegistry()
	for _, name := range registry.ListRules() {
		defaults, err := registry.RuleParams(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s", name)
		for _, k := range sortedKeys(defaults) {
			fmt.Fprintf(out, " %s=%g", k, defaults[k])
		}
		fmt.Fprintln(out)
	}
	return nil
}
