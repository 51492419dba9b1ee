package lens

import (
	"maps"
	"slices"

	"mirlean/internal/diag"
	"mirlean/internal/mir"
)

// Entry records where an active borrow points.
type Entry struct {
	Source mir.LocalID
	Chain  Chain
	// Parent is the borrow this one was reborrowed from, or NoLocalID.
	Parent mir.LocalID
}

// Table tracks the active borrows of one function translation. Branches
// work on clones so a write-back on one path never leaks into another.
type Table struct {
	entries map[mir.LocalID]Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[mir.LocalID]Entry)}
}

// Borrow records dest as a borrow of base through chain. When base is itself
// an active borrow the result is a reborrow: the chains are spliced and base
// becomes the parent.
func (t *Table) Borrow(dest, base mir.LocalID, chain Chain) (Entry, error) {
	e := Entry{Source: base, Chain: chain, Parent: mir.NoLocalID}
	if parent, ok := t.entries[base]; ok {
		e = Entry{Source: parent.Source, Chain: parent.Chain.Then(chain...), Parent: base}
	}
	if e.Source == dest {
		return Entry{}, diag.Errorf(diag.TransAliasCycle, "L%d borrows from itself", dest)
	}
	for p := e.Parent; p != mir.NoLocalID; {
		if p == dest {
			return Entry{}, diag.Errorf(diag.TransAliasCycle, "borrow chain of L%d loops back", dest)
		}
		next, ok := t.entries[p]
		if !ok {
			break
		}
		p = next.Parent
	}
	t.entries[dest] = e
	return e, nil
}

func (t *Table) Lookup(l mir.LocalID) (Entry, bool) {
	e, ok := t.entries[l]
	return e, ok
}

// Release removes the borrow held in l. Children of l are reparented to
// l's own parent.
func (t *Table) Release(l mir.LocalID) (Entry, bool) {
	e, ok := t.entries[l]
	if !ok {
		return Entry{}, false
	}
	delete(t.entries, l)
	for k, child := range t.entries {
		if child.Parent == l {
			child.Parent = e.Parent
			t.entries[k] = child
		}
	}
	return e, true
}

// Move transfers the borrow held in from to to.
func (t *Table) Move(from, to mir.LocalID) bool {
	e, ok := t.entries[from]
	if !ok || from == to {
		return ok
	}
	delete(t.entries, from)
	t.entries[to] = e
	for k, child := range t.entries {
		if child.Parent == from {
			child.Parent = to
			t.entries[k] = child
		}
	}
	return true
}

func (t *Table) Clone() *Table {
	return &Table{entries: maps.Clone(t.entries)}
}

// Active lists the locals holding a borrow, in canonical order.
func (t *Table) Active() []mir.LocalID {
	return slices.Sorted(maps.Keys(t.entries))
}

// Borrowers lists the active borrows whose ultimate source is src.
func (t *Table) Borrowers(src mir.LocalID) []mir.LocalID {
	var out []mir.LocalID
	for k, e := range t.entries {
		if e.Source == src {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func (t *Table) Len() int { return len(t.entries) }
