package traits

import (
	"fmt"
	"strings"

	"mirlean/internal/diag"
	"mirlean/internal/mir"
	"mirlean/internal/target"
)

// maxDepth bounds both nested impl resolution and supertrait search.
const maxDepth = 32

// Bound is a where-clause of the enclosing definition together with the
// dictionary parameter that carries its evidence.
type Bound struct {
	Ref  mir.TraitRef
	Dict string
}

// Env is the explicit trait environment of one definition.
type Env struct {
	Bounds []Bound
}

type Kind uint8

const (
	Static Kind = iota
	Dynamic
)

// Resolution is the evidence chosen for one trait reference.
type Resolution struct {
	Kind Kind
	Ref  mir.TraitRef

	// Static
	Impl   string
	TyArgs []mir.Ty
	Nested []Resolution

	// Dynamic: the environment bound used and the supertrait steps from it
	// down to Ref.
	Bound Bound
	Path  []mir.TraitRef
}

// Render returns the dictionary expression.
func (r Resolution) Render() string {
	if r.Kind == Dynamic {
		d := r.Bound.Dict
		prev := r.Bound.Ref.Trait
		for _, step := range r.Path {
			d = fmt.Sprintf("(%s.to_%s %s)", target.Ident(prev), target.Short(step.Trait), d)
			prev = step.Trait
		}
		return d
	}
	parts := []string{"@" + target.Ident(r.Impl)}
	for _, t := range r.TyArgs {
		parts = append(parts, target.Ty(t))
	}
	for _, n := range r.Nested {
		parts = append(parts, n.Render())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Deps lists the definitions the rendered evidence refers to.
func (r Resolution) Deps() []string {
	var out []string
	var walk func(r Resolution)
	walk = func(r Resolution) {
		if r.Kind == Dynamic {
			prev := r.Bound.Ref.Trait
			for _, step := range r.Path {
				out = append(out, prev)
				prev = step.Trait
			}
			return
		}
		out = append(out, r.Impl)
		for _, t := range r.TyArgs {
			out = t.Adts(out)
		}
		for _, n := range r.Nested {
			walk(n)
		}
	}
	walk(r)
	return out
}

// Resolver resolves trait references against an Oracle. It holds no
// per-call state and may be shared between goroutines when the oracle can.
type Resolver struct {
	oracle Oracle
}

func NewResolver(o Oracle) *Resolver {
	return &Resolver{oracle: o}
}

func (r *Resolver) Oracle() Oracle { return r.oracle }

// Resolve picks the evidence for ref. Receivers that are caller-supplied
// type parameters are resolved from env; everything else from impls.
func (r *Resolver) Resolve(ref mir.TraitRef, env Env) (Resolution, error) {
	return r.resolve(ref, env, 0)
}

func (r *Resolver) resolve(ref mir.TraitRef, env Env, depth int) (Resolution, error) {
	if depth > maxDepth {
		return Resolution{}, diag.Errorf(diag.TransAmbiguousTraitImpl, "resolution of %s does not terminate", ref)
	}
	if ref.Self().Kind == mir.TyParam {
		return r.dynamic(ref, env)
	}

	cands := r.oracle.Select(ref)
	switch len(cands) {
	case 0:
		return Resolution{}, diag.Errorf(diag.TransAmbiguousTraitImpl, "no impl of %s", ref)
	case 1:
	default:
		names := make([]string, len(cands))
		for i, c := range cands {
			names[i] = c.Impl
		}
		return Resolution{}, diag.Errorf(diag.TransAmbiguousTraitImpl, "%d impls of %s: %s", len(cands), ref, strings.Join(names, ", "))
	}
	c := cands[0]
	res := Resolution{Kind: Static, Ref: ref, Impl: c.Impl, TyArgs: c.TyArgs}
	for _, b := range c.Bounds {
		n, err := r.resolve(b, env, depth+1)
		if err != nil {
			return Resolution{}, err
		}
		res.Nested = append(res.Nested, n)
	}
	return res, nil
}

type searchItem struct {
	root int
	ref  mir.TraitRef
	path []mir.TraitRef
}

// dynamic searches the environment breadth-first: depth 0 are the bounds
// themselves, depth k their k-th supertraits. At the shallowest depth with a
// match, all matches must come from a single bound.
func (r *Resolver) dynamic(ref mir.TraitRef, env Env) (Resolution, error) {
	level := make([]searchItem, 0, len(env.Bounds))
	for i, b := range env.Bounds {
		level = append(level, searchItem{root: i, ref: b.Ref})
	}
	seen := map[string]struct{}{}
	for depth := 0; len(level) > 0 && depth <= maxDepth; depth++ {
		var hits []searchItem
		for _, it := range level {
			if it.ref.Equal(ref) {
				hits = append(hits, it)
			}
		}
		if len(hits) > 0 {
			first := hits[0]
			for _, h := range hits[1:] {
				if h.root != first.root && !env.Bounds[h.root].Ref.Equal(env.Bounds[first.root].Ref) {
					return Resolution{}, diag.Errorf(diag.TransAmbiguousTraitImpl,
						"%s is implied by both %s and %s", ref, env.Bounds[first.root].Ref, env.Bounds[h.root].Ref)
				}
			}
			return Resolution{Kind: Dynamic, Ref: ref, Bound: env.Bounds[first.root], Path: first.path}, nil
		}

		var next []searchItem
		for _, it := range level {
			for _, sup := range r.oracle.Supers(it.ref) {
				key := fmt.Sprintf("%d|%s", it.root, sup)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				path := append(append([]mir.TraitRef(nil), it.path...), sup)
				next = append(next, searchItem{root: it.root, ref: sup, path: path})
			}
		}
		level = next
	}
	return Resolution{}, diag.Errorf(diag.TransAmbiguousTraitImpl, "no bound in scope implies %s", ref)
}

// BoundsOf lists the non-marker bounds d requires, in declaration order. A
// trait method additionally requires its own trait on Self first.
func BoundsOf(o Oracle, c *mir.Crate, d *mir.Def) []mir.TraitRef {
	var out []mir.TraitRef
	if d.TraitMethod != "" {
		self := mir.TraitRef{Trait: d.TraitMethod, Args: []mir.Ty{mir.Param("Self")}}
		if tr, ok := c.Lookup(d.TraitMethod); ok {
			for _, p := range tr.Generics.Params {
				if p != "Self" {
					self.Args = append(self.Args, mir.Param(p))
				}
			}
		}
		out = append(out, self)
	}
	for _, b := range d.Generics.Bounds {
		if o.IsMarker(b.Trait) {
			continue
		}
		if len(out) > 0 && d.TraitMethod != "" && b.Equal(out[0]) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// EnvFor builds the environment of d, naming each dictionary parameter
// <Trait>_<Self>, e.g. Ord_T.
func EnvFor(o Oracle, c *mir.Crate, d *mir.Def) Env {
	var env Env
	used := map[string]int{}
	for _, b := range BoundsOf(o, c, d) {
		name := target.Short(b.Trait) + "_" + strings.Trim(target.Ty(b.Self()), "()«»")
		name = strings.Map(func(r rune) rune {
			if r == ' ' || r == '×' {
				return '_'
			}
			return r
		}, name)
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n)
		} else {
			used[name] = 1
		}
		env.Bounds = append(env.Bounds, Bound{Ref: b, Dict: target.Ident(name)})
	}
	return env
}
