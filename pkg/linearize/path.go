package linearize

// walkPath replays steps over seqs: each step names the sequence whose next
// node is emitted.
func walkPath(seqs [][]int, steps []int) []int {
	next := make([]int, len(seqs))
	order := make([]int, 0, len(steps))

	for _, i := range steps {
		order = append(order, seqs[i][next[i]])
		next[i]++
	}

	return order
}
