// Package depgraph records which definitions a translation refers to and
// orders the definitions so that each one is emitted after its
// dependencies. Mutually dependent definitions are condensed into groups.
package depgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type NodeID uint32

type Index struct {
	NameToID map[string]NodeID
	IDToName []string
}

// BuildIndex collects the unique names, sorts them and assigns IDs in order.
func BuildIndex(names []string) Index {
	uniq := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name != "" {
			uniq[name] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(uniq))
	for name := range uniq {
		sorted = append(sorted, name)
	}
	slices.Sort(sorted)

	nameToID := make(map[string]NodeID, len(sorted))
	for i, name := range sorted {
		nameToID[name] = mustID(i)
	}
	return Index{NameToID: nameToID, IDToName: sorted}
}

func (idx Index) Len() int { return len(idx.IDToName) }

func (idx Index) Name(id NodeID) string { return idx.IDToName[int(id)] }

func (idx Index) Names(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.Name(id)
	}
	return out
}

func mustID(i int) NodeID {
	id, err := safecast.Conv[NodeID](i)
	if err != nil {
		panic(fmt.Errorf("definition id overflow: %w", err))
	}
	return id
}
