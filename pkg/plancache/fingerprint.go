package plancache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

// Fingerprint hashes everything about g that can change a schedule: node
// order, ids, labels, levels, memory estimates, and inputs.
func Fingerprint(g *opgraph.Graph) uint64 {
	digest := xxhash.New()

	var buf [8]byte

	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = digest.Write(buf[:])
	}

	writeString := func(s string) {
		writeUint(uint64(len(s)))
		_, _ = digest.WriteString(s)
	}

	writeUint(uint64(g.Len()))

	for i := range g.Len() {
		n := g.Node(i)

		writeUint(uint64(n.ID))
		writeString(n.Name)
		writeString(n.Op)
		writeUint(uint64(n.Level))
		writeUint(math.Float64bits(n.OutputMemory))
		writeUint(uint64(len(n.Inputs)))

		for _, p := range n.Inputs {
			writeUint(uint64(p))
		}
	}

	return digest.Sum64()
}

// Key identifies the plan of g under a strategy and search budget. Keys are
// safe to use as file names.
func Key(g *opgraph.Graph, strategy string, maxStates int) string {
	return fmt.Sprintf("%016x-%s-%d", Fingerprint(g), strategy, maxStates)
}
