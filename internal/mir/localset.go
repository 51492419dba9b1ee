package mir

import "slices"

// LocalSet is an unordered set of locals.
type LocalSet map[LocalID]struct{}

func NewLocalSet(ids ...LocalID) LocalSet {
	s := make(LocalSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s LocalSet) Add(id LocalID) {
	if s == nil || id == NoLocalID {
		return
	}
	s[id] = struct{}{}
}

func (s LocalSet) Has(id LocalID) bool {
	if s == nil {
		return false
	}
	_, ok := s[id]
	return ok
}

func (s LocalSet) Delete(id LocalID) {
	if s == nil {
		return
	}
	delete(s, id)
}

// Sorted returns the members in canonical (declaration) order.
func (s LocalSet) Sorted() []LocalID {
	out := make([]LocalID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Clone creates a copy of a LocalSet.
func (s LocalSet) Clone() LocalSet {
	out := make(LocalSet, len(s))
	for id := range s {
		out.Add(id)
	}
	return out
}

// Union merges src into s and returns s.
func (s LocalSet) Union(src LocalSet) LocalSet {
	if s == nil {
		s = LocalSet{}
	}
	for id := range src {
		s.Add(id)
	}
	return s
}

// Minus returns s without the members of sub.
func (s LocalSet) Minus(sub LocalSet) LocalSet {
	out := LocalSet{}
	for id := range s {
		if sub.Has(id) {
			continue
		}
		out.Add(id)
	}
	return out
}

// Intersect returns the members present in both sets.
func (s LocalSet) Intersect(o LocalSet) LocalSet {
	out := LocalSet{}
	for id := range s {
		if o.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Equal checks if two sets contain the same elements.
func (s LocalSet) Equal(o LocalSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}
