package report

import (
	"io"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/dagline/pkg/graphio"
	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
)

// Summary writes a short account of a linearization, colored when decorate is set.
func Summary(w io.Writer, graphName string, res *linearize.Result, decorate bool) {
	bold := color.New(color.Bold)
	muted := color.New(color.FgHiBlack)

	if !decorate {
		bold.DisableColor()
		muted.DisableColor()
	}

	bold.Fprintf(w, "%s: %d operators, peak %s", graphName, len(res.Order), graphio.FormatBytes(res.Peak))
	muted.Fprintf(w, " (%s, %s)\n", res.Strategy, res.Elapsed)

	if res.Strategy != linearize.StrategyResourceAware {
		return
	}

	st := res.Stats
	muted.Fprintf(w, "  sequences %d, sub-searches %d, states expanded %d, generated %d, pruned %d, revisits %d, max frontier %d\n",
		st.Sequences, st.SubSearches, st.Expanded, st.Generated, st.Pruned, st.Revisits, st.MaxFrontier)
}

// Verdict writes a colored pass or fail line for a validated document,
// followed by one line per problem.
func Verdict(w io.Writer, label string, problems []string) {
	if len(problems) == 0 {
		color.New(color.FgGreen).Fprintf(w, "%s is valid\n", label)

		return
	}

	color.New(color.FgRed).Fprintf(w, "%s is invalid (%d %s)\n", label, len(problems), plural(len(problems), "problem"))

	for _, p := range problems {
		color.New(color.FgRed).Fprintf(w, "  - %s\n", p)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}

	return word + "s"
}
