package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dagline/internal/config"
	"github.com/Sumatoshi-tech/dagline/internal/observability"
	"github.com/Sumatoshi-tech/dagline/pkg/graphio"
	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
	"github.com/Sumatoshi-tech/dagline/pkg/persist"
	"github.com/Sumatoshi-tech/dagline/pkg/report"
)

// RunCommand holds the flags of "dagline run".
type RunCommand struct {
	globals  *GlobalOptions
	search   searchFlags
	strategy string
	format   string
	output   string
	plot     string
}

// NewRunCommand creates the run command.
func NewRunCommand(globals *GlobalOptions) *cobra.Command {
	rc := &RunCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "run <graph>",
		Short: "Linearize a graph document",
		Long: `Linearize the operator graph in a YAML or JSON document and print the
schedule with the live intermediate memory after every step.`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.strategy, "strategy", "s", "",
		"strategy: resource-aware, breadth-first, depth-first (default from config)")
	cmd.Flags().StringVarP(&rc.format, "format", "f", "", "output format: table, json, yaml (default from config)")
	cmd.Flags().StringVarP(&rc.output, "output", "o", "", "write the schedule to this file instead of stdout")
	cmd.Flags().StringVar(&rc.plot, "plot", "", "write an HTML chart of the live memory to this file")
	rc.search.register(cmd)

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	rt, err := rc.globals.start(observability.ModeCLI)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()

	return rt.track(ctx, "run", func() error {
		return rc.execute(ctx, cmd, rt, args[0])
	})
}

func (rc *RunCommand) execute(ctx context.Context, cmd *cobra.Command, rt *runtime, path string) error {
	search := rc.search.apply(cmd, rt.cfg.Search)
	if rc.strategy != "" {
		search.Strategy = rc.strategy
	}

	format := rt.cfg.Output.Format
	if rc.format != "" {
		format = rc.format
	}

	formatErr := config.ValidateOutputFormat(format)
	if formatErr != nil {
		return formatErr
	}

	doc, err := graphio.ReadFile(path)
	if err != nil {
		return err
	}

	g, err := doc.Build()
	if err != nil {
		return err
	}

	p, err := rt.newPlanner(search, !rc.search.noCache)
	if err != nil {
		return err
	}

	plan, err := p.Plan(ctx, g, search.Strategy)
	if err != nil {
		return err
	}

	rt.logger.InfoContext(ctx, "linearized graph",
		"graph", doc.Name,
		"nodes", g.Len(),
		"strategy", plan.Strategy,
		"peak", plan.Peak,
		"cached", plan.Cached())

	sched := graphio.NewSchedule(doc.Name, plan.Result)

	writeErr := rc.writeSchedule(cmd.OutOrStdout(), format, sched, plan.Result)
	if writeErr != nil {
		return writeErr
	}

	if rc.plot != "" {
		return writePlotFile(rc.plot, doc.Name, plan.Result)
	}

	return nil
}

func (rc *RunCommand) writeSchedule(stdout io.Writer, format string, sched *graphio.Schedule, res *linearize.Result) error {
	if format == config.FormatTable {
		w := stdout
		decorate := !color.NoColor

		if rc.output != "" {
			f, err := os.Create(rc.output)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()

			w = f
			decorate = false
		}

		fmt.Fprintln(w, report.ScheduleTable(sched, decorate))
		report.Summary(w, sched.Graph, res, decorate)

		return nil
	}

	codec, err := persist.CodecFor(format)
	if err != nil {
		return err
	}

	if rc.output != "" {
		return persist.WriteFile(rc.output, codec, sched)
	}

	return codec.Encode(stdout, sched)
}

func writePlotFile(path, title string, results ...*linearize.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}

	plotErr := report.WritePlot(f, title, results...)
	closeErr := f.Close()

	if plotErr != nil {
		return fmt.Errorf("render plot: %w", plotErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close plot: %w", closeErr)
	}

	return nil
}
