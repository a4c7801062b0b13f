// Package report renders schedules and strategy comparisons for terminals and browsers.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/dagline/pkg/graphio"
	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
)

// ScheduleTable renders one row per scheduled operator with its live memory.
// With decorate set, the steps that reach the peak are printed in bold.
func ScheduleTable(s *graphio.Schedule, decorate bool) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetTitle(fmt.Sprintf("%s (%s)", s.Graph, s.Strategy))
	tbl.AppendHeader(table.Row{"#", "ID", "Name", "Op", "Output", "Live"})

	for _, step := range s.Steps {
		live := graphio.FormatBytes(step.Live)
		if decorate && step.Live == s.Peak {
			live = text.Bold.Sprint(live)
		}

		tbl.AppendRow(table.Row{
			step.Position,
			step.ID,
			step.Name,
			step.Op,
			graphio.FormatBytes(step.Memory),
			live,
		})
	}

	tbl.AppendFooter(table.Row{"", "", "", "", "Peak", s.PeakHuman})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})

	return tbl.Render()
}

// CompareTable renders the peak of each result relative to the lowest one.
func CompareTable(results []*linearize.Result) string {
	best := 0.0
	for k, res := range results {
		if k == 0 || res.Peak < best {
			best = res.Peak
		}
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Strategy", "Peak", "Bytes", "vs best", "Elapsed"})

	for _, res := range results {
		tbl.AppendRow(table.Row{
			res.Strategy,
			graphio.FormatBytes(res.Peak),
			strconv.FormatFloat(res.Peak, 'f', -1, 64),
			ratio(res.Peak, best),
			res.Elapsed.Round(time.Microsecond),
		})
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	return tbl.Render()
}

func ratio(peak, best float64) string {
	if best == 0 {
		if peak == 0 {
			return "1.00x"
		}

		return "-"
	}

	return fmt.Sprintf("%.2fx", peak/best)
}
