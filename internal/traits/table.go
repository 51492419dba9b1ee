// Package traits decides, for every trait obligation a definition raises,
// whether it is discharged by a concrete impl or by one of the dictionary
// parameters the definition receives.
package traits

import (
	"slices"

	"mirlean/internal/mir"
)

// Candidate is an impl that matches a trait reference.
type Candidate struct {
	Impl string
	// TyArgs instantiate the impl's own type parameters, in declaration order.
	TyArgs []mir.Ty
	// Bounds are the impl's own non-marker bounds under that instantiation.
	Bounds []mir.TraitRef
}

// Oracle answers the questions the resolver needs about the program's
// traits and impls.
type Oracle interface {
	// Select returns every impl whose trait arguments unify with ref.
	Select(ref mir.TraitRef) []Candidate
	// Supers returns the non-marker supertraits of ref in declared order.
	Supers(ref mir.TraitRef) []mir.TraitRef
	IsMarker(trait string) bool
}

// Table is the Oracle backed by a crate bundle. It is read-only after
// construction and safe for concurrent use.
type Table struct {
	crate  *mir.Crate
	marker map[string]bool
}

func NewTable(c *mir.Crate) *Table {
	t := &Table{crate: c, marker: make(map[string]bool)}
	for i := range c.Defs {
		d := &c.Defs[i]
		if d.Kind == mir.DefTrait {
			t.isMarker(d.Name, map[string]bool{})
		}
	}
	return t
}

// isMarker computes marker-ness once per trait; cycles through supertraits
// count as markers.
func (t *Table) isMarker(name string, visiting map[string]bool) bool {
	if m, ok := t.marker[name]; ok {
		return m
	}
	d, ok := t.crate.Lookup(name)
	if !ok || d.Kind != mir.DefTrait || len(d.Methods) > 0 {
		t.marker[name] = false
		return false
	}
	if visiting[name] {
		return true
	}
	visiting[name] = true
	m := true
	for _, s := range d.Supers {
		if s.Trait != name && !t.isMarker(s.Trait, visiting) {
			m = false
			break
		}
	}
	t.marker[name] = m
	return m
}

func (t *Table) IsMarker(trait string) bool {
	return t.marker[trait]
}

func (t *Table) Select(ref mir.TraitRef) []Candidate {
	var out []Candidate
	for _, impl := range t.crate.Impls(ref.Trait) {
		params := impl.Generics.Params
		bind := map[string]mir.Ty{}
		if !unifyAll(impl.Impl.Trait.Args, ref.Args, params, bind) {
			continue
		}
		c := Candidate{Impl: impl.Name, TyArgs: make([]mir.Ty, len(params))}
		for i, p := range params {
			ty, ok := bind[p]
			if !ok {
				ty = mir.Param(p)
			}
			c.TyArgs[i] = ty
		}
		for _, b := range impl.Generics.Bounds {
			if t.IsMarker(b.Trait) {
				continue
			}
			c.Bounds = append(c.Bounds, b.Subst(bind))
		}
		out = append(out, c)
	}
	return out
}

func (t *Table) Supers(ref mir.TraitRef) []mir.TraitRef {
	d, ok := t.crate.Lookup(ref.Trait)
	if !ok || d.Kind != mir.DefTrait {
		return nil
	}
	s := traitSubst(d, ref)
	var out []mir.TraitRef
	for _, sup := range d.Supers {
		if sup.Trait == ref.Trait || t.IsMarker(sup.Trait) {
			continue
		}
		out = append(out, sup.Subst(s))
	}
	return out
}

// traitSubst maps Self and the trait's own parameters to the arguments of ref.
func traitSubst(d *mir.Def, ref mir.TraitRef) map[string]mir.Ty {
	s := map[string]mir.Ty{"Self": ref.Self()}
	params := d.Generics.Params
	if len(params) > 0 && params[0] == "Self" {
		params = params[1:]
	}
	for i, p := range params {
		if i+1 < len(ref.Args) {
			s[p] = ref.Args[i+1]
		}
	}
	return s
}

func unifyAll(pats, tys []mir.Ty, params []string, bind map[string]mir.Ty) bool {
	if len(pats) != len(tys) {
		return false
	}
	for i := range pats {
		if !unify(pats[i], tys[i], params, bind) {
			return false
		}
	}
	return true
}

// unify matches an impl pattern against a concrete type, binding the impl's
// parameters. Parameters of the caller in ty are treated as rigid.
func unify(pat, ty mir.Ty, params []string, bind map[string]mir.Ty) bool {
	if pat.Kind == mir.TyParam && slices.Contains(params, pat.Name) {
		if prev, ok := bind[pat.Name]; ok {
			return prev.Equal(ty)
		}
		bind[pat.Name] = ty
		return true
	}
	if pat.Kind != ty.Kind || pat.Bits != ty.Bits || pat.Name != ty.Name || pat.Mut != ty.Mut || pat.Len != ty.Len {
		return false
	}
	return unifyAll(pat.Args, ty.Args, params, bind)
}
