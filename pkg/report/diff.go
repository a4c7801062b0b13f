package report

import (
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
)

// OrderDiff is a line diff between two operator orders, one operator per line.
type OrderDiff struct {
	Diffs []diffmatchpatch.Diff
}

// DiffOrders compares the order of other against base.
func DiffOrders(base, other *linearize.Result) *OrderDiff {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(orderText(base), orderText(other))
	diffs := dmp.DiffMainRunes(src, dst, false)

	return &OrderDiff{Diffs: dmp.DiffCharsToLines(diffs, lines)}
}

// Changed counts operators that were inserted or deleted.
func (d *OrderDiff) Changed() int {
	n := 0

	for _, diff := range d.Diffs {
		if diff.Type != diffmatchpatch.DiffEqual {
			n += strings.Count(diff.Text, "\n")
		}
	}

	return n
}

// String renders the diff with "-", "+", and " " line prefixes.
func (d *OrderDiff) String() string {
	var sb strings.Builder

	for _, diff := range d.Diffs {
		prefix := "  "

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffEqual:
		}

		for line := range strings.Lines(diff.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}

	return sb.String()
}

func orderText(res *linearize.Result) string {
	var sb strings.Builder

	for _, i := range res.Order {
		n := res.Graph.Node(i)
		sb.WriteString(strconv.FormatInt(n.ID, 10))

		if n.Name != "" {
			sb.WriteByte(' ')
			sb.WriteString(n.Name)
		}

		sb.WriteByte('\n')
	}

	return sb.String()
}
