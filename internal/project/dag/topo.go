package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Topo is the result of ToposortKahn.
type Topo struct {
	Order   []ModuleID   // importers before their imports, present modules only
	Batches [][]ModuleID // waves of independent modules
	Cyclic  bool
	Cycles  []ModuleID // every module left on a cycle, sorted
	Path    []ModuleID // one import cycle, first module repeated at the end
}

// CheckOrder returns the acyclic modules with every import before its importers.
func (t *Topo) CheckOrder() []ModuleID {
	out := make([]ModuleID, 0, len(t.Order))
	for _, id := range slices.Backward(t.Order) {
		out = append(out, id)
	}
	return out
}

func moduleID(i int) ModuleID {
	id, err := safecast.Conv[ModuleID](i)
	if err != nil {
		panic(fmt.Errorf("module id overflow: %w", err))
	}
	return id
}

// ToposortKahn peels modules nobody imports, wave by wave. Whatever is left
// when no wave remains sits on or behind an import cycle.
func ToposortKahn(g Graph) *Topo {
	indeg := slices.Clone(g.Indeg)
	topo := &Topo{}

	var wave []ModuleID
	remaining := 0
	for i, present := range g.Present {
		if !present {
			continue
		}
		remaining++
		if indeg[i] == 0 {
			wave = append(wave, moduleID(i))
		}
	}

	for len(wave) > 0 {
		slices.Sort(wave)
		topo.Batches = append(topo.Batches, wave)
		topo.Order = append(topo.Order, wave...)
		remaining -= len(wave)

		var next []ModuleID
		for _, from := range wave {
			for _, to := range g.Edges[int(from)] {
				if !g.Present[int(to)] {
					continue
				}
				if indeg[int(to)]--; indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		wave = next
	}

	if remaining == 0 {
		return topo
	}
	topo.Cyclic = true
	for i, present := range g.Present {
		if present && indeg[i] > 0 {
			topo.Cycles = append(topo.Cycles, moduleID(i))
		}
	}
	topo.Path = cyclePath(g, indeg, topo.Cycles[0])
	return topo
}

// cyclePath follows unresolved imports from start until a module repeats.
// Every leftover module has a leftover importer, and a leftover module that
// is only imported from a cycle still imports nothing leftover itself, so
// the walk runs along reverse edges.
func cyclePath(g Graph, indeg []int, start ModuleID) []ModuleID {
	importers := make([][]ModuleID, len(g.Edges))
	for from, tos := range g.Edges {
		if !g.Present[from] || indeg[from] == 0 {
			continue
		}
		for _, to := range tos {
			if g.Present[int(to)] && indeg[int(to)] > 0 {
				importers[int(to)] = append(importers[int(to)], moduleID(from))
			}
		}
	}

	pos := map[ModuleID]int{}
	var walk []ModuleID
	for id := start; ; {
		if at, seen := pos[id]; seen {
			loop := slices.Clone(walk[at:])
			slices.Reverse(loop)
			return append(loop, loop[0])
		}
		pos[id] = len(walk)
		walk = append(walk, id)
		if len(importers[int(id)]) == 0 {
			return nil
		}
		id = importers[int(id)][0]
	}
}
