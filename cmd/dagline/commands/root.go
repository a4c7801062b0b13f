// Package commands implements the dagline CLI commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dagline/internal/config"
	"github.com/Sumatoshi-tech/dagline/internal/observability"
	"github.com/Sumatoshi-tech/dagline/internal/planner"
	"github.com/Sumatoshi-tech/dagline/pkg/plancache"
	"github.com/Sumatoshi-tech/dagline/pkg/version"
)

// ExitError carries a process exit code other than 1.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// GlobalOptions holds the persistent root flags.
type GlobalOptions struct {
	ConfigPath  string
	MetricsFile string
	Verbose     bool
	Quiet       bool
	LogJSON     bool
}

// NewRootCommand builds the dagline command tree.
func NewRootCommand() *cobra.Command {
	globals := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "dagline",
		Short: "dagline - memory-aware linearization of operator DAGs",
		Long: `dagline orders the operators of a dataflow graph so that the peak amount
of simultaneously live intermediate results stays as low as possible.

Commands:
  run       Linearize a graph document
  validate  Check a graph document
  compare   Compare all strategies on a graph
  mcp       Serve the linearizer as MCP tools on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.ConfigPath, "config", "", "config file (default: dagline.yaml in ., ./config, ~/.config/dagline)")
	flags.BoolVarP(&globals.Verbose, "verbose", "v", false, "debug logging")
	flags.BoolVarP(&globals.Quiet, "quiet", "q", false, "log errors only")
	flags.BoolVar(&globals.LogJSON, "log-json", false, "JSON log output")
	flags.StringVar(&globals.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file at exit")

	rootCmd.AddCommand(NewRunCommand(globals))
	rootCmd.AddCommand(NewValidateCommand(globals))
	rootCmd.AddCommand(NewCompareCommand(globals))
	rootCmd.AddCommand(NewMCPCommand(globals))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// runtime is what a command needs once configuration and telemetry are up.
type runtime struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	red       *observability.REDMetrics
	metrics   *observability.LinearizeMetrics
}

func (o *GlobalOptions) start(mode observability.AppMode) (*runtime, error) {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.MetricsFile = o.MetricsFile
	obsCfg.LogJSON = o.LogJSON || cfg.Logging.Format == config.FormatJSON || mode == observability.ModeMCP
	obsCfg.LogLevel = cfg.Logging.SlogLevel()

	switch {
	case o.Verbose:
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.TraceVerbose = true
	case o.Quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewLinearizeMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(providers.Logger)

	return &runtime{
		cfg:       cfg,
		providers: providers,
		logger:    providers.Logger,
		red:       red,
		metrics:   metrics,
	}, nil
}

func (rt *runtime) close() {
	err := rt.providers.Shutdown(context.Background())
	if err != nil {
		rt.logger.Warn("observability shutdown failed", "error", err)
	}
}

func (rt *runtime) newPlanner(search config.SearchConfig, useCache bool) (*planner.Planner, error) {
	opts := planner.Options{
		Metrics:   rt.metrics,
		Logger:    rt.logger,
		Search:    search.LinearizeOptions(),
		MaxStates: search.MaxStates,
	}

	if useCache && rt.cfg.Cache.Enabled {
		dir, err := rt.cfg.Cache.CacheDir()
		if err != nil {
			return nil, err
		}

		opts.Cache = plancache.New(plancache.Options{
			Logger:     rt.logger,
			Dir:        dir,
			MaxEntries: rt.cfg.Cache.MaxEntries,
		})
	}

	return planner.New(opts), nil
}

// searchFlags are the search overrides shared by run and compare.
type searchFlags struct {
	maxStates int
	noCache   bool
}

func (sf *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&sf.maxStates, "max-states", 0, "search state budget (0 = unbounded; default from config)")
	cmd.Flags().BoolVar(&sf.noCache, "no-cache", false, "neither read nor write the plan cache")
}

func (sf *searchFlags) apply(cmd *cobra.Command, search config.SearchConfig) config.SearchConfig {
	if cmd.Flags().Changed("max-states") {
		search.MaxStates = sf.maxStates
	}

	return search
}

// track records RED metrics for one command invocation.
func (rt *runtime) track(ctx context.Context, op string, fn func() error) error {
	start := time.Now()

	done := rt.red.TrackInflight(ctx, op)
	defer done()

	err := fn()

	rt.red.RecordRequest(ctx, op, observability.Status(err), time.Since(start))

	return err
}
