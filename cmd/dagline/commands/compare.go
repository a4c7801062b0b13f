package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dagline/internal/observability"
	"github.com/Sumatoshi-tech/dagline/internal/planner"
	"github.com/Sumatoshi-tech/dagline/pkg/graphio"
	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
	"github.com/Sumatoshi-tech/dagline/pkg/report"
)

// CompareCommand holds the flags of "dagline compare".
type CompareCommand struct {
	globals *GlobalOptions
	search  searchFlags
	plot    string
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(globals *GlobalOptions) *cobra.Command {
	cc := &CompareCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "compare <graph>",
		Short: "Run every strategy on a graph and compare peak memory",
		Args:  cobra.ExactArgs(1),
		RunE:  cc.run,
	}

	cmd.Flags().StringVar(&cc.plot, "plot", "", "write an HTML chart of every strategy's live memory to this file")
	cc.search.register(cmd)

	return cmd
}

func (cc *CompareCommand) run(cmd *cobra.Command, args []string) error {
	rt, err := cc.globals.start(observability.ModeCLI)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()

	return rt.track(ctx, "compare", func() error {
		doc, err := graphio.ReadFile(args[0])
		if err != nil {
			return err
		}

		g, err := doc.Build()
		if err != nil {
			return err
		}

		p, err := rt.newPlanner(cc.search.apply(cmd, rt.cfg.Search), !cc.search.noCache)
		if err != nil {
			return err
		}

		plans, err := p.Compare(ctx, g)
		if err != nil {
			return err
		}

		results := planner.Results(plans)
		writeComparison(cmd.OutOrStdout(), results)

		if cc.plot != "" {
			return writePlotFile(cc.plot, doc.Name, results...)
		}

		return nil
	})
}

// writeComparison prints the peak table, then the order diff of every other
// strategy against the first.
func writeComparison(w io.Writer, results []*linearize.Result) {
	fmt.Fprintln(w, report.CompareTable(results))

	base := results[0]

	for _, res := range results[1:] {
		diff := report.DiffOrders(base, res)

		if diff.Changed() == 0 {
			fmt.Fprintf(w, "\n%s: same order as %s\n", res.Strategy, base.Strategy)

			continue
		}

		fmt.Fprintf(w, "\n%s vs %s (%d operators moved):\n%s", base.Strategy, res.Strategy, diff.Changed(), diff)
	}
}
