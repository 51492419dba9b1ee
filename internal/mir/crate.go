package mir

import (
	"slices"
	"sync"
)

// DefKind enumerates top-level definition kinds.
type DefKind uint8

const (
	DefFn DefKind = iota
	DefStruct
	DefEnum
	DefTrait
	DefImpl
	DefStatic
	DefConst
	DefTypeAlias
)

func (k DefKind) String() string {
	switch k {
	case DefFn:
		return "fn"
	case DefStruct:
		return "struct"
	case DefEnum:
		return "enum"
	case DefTrait:
		return "trait"
	case DefImpl:
		return "impl"
	case DefStatic:
		return "static"
	case DefConst:
		return "const"
	case DefTypeAlias:
		return "type"
	}
	return "unknown"
}

// IsDataType reports whether the kind declares a nominal data type.
func (k DefKind) IsDataType() bool {
	return k == DefStruct || k == DefEnum
}

// TraitRef names a trait applied to arguments; Args[0] is the Self type.
type TraitRef struct {
	Trait string
	Args  []Ty
}

func (r TraitRef) Self() Ty {
	if len(r.Args) == 0 {
		return Unit()
	}
	return r.Args[0]
}

func (r TraitRef) Equal(o TraitRef) bool {
	if r.Trait != o.Trait || len(r.Args) != len(o.Args) {
		return false
	}
	for i := range r.Args {
		if !r.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

func (r TraitRef) Subst(s map[string]Ty) TraitRef {
	out := TraitRef{Trait: r.Trait, Args: make([]Ty, len(r.Args))}
	for i, a := range r.Args {
		out.Args[i] = a.Subst(s)
	}
	return out
}

func (r TraitRef) String() string {
	s := r.Trait
	if len(r.Args) == 0 {
		return s
	}
	s += "<"
	for i, a := range r.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ">"
}

// Generics lists type parameters and where-clause bounds in declaration order.
type Generics struct {
	Params []string
	Bounds []TraitRef
}

type Field struct {
	Name string
	Ty   Ty
}

type Variant struct {
	Name   string
	Fields []Field
}

// FnSig is the declared signature of a function.
type FnSig struct {
	Params []Ty
	Ret    Ty
}

// ImplDecl describes a trait implementation.
type ImplDecl struct {
	Trait   TraitRef
	Methods map[string]string
}

// Def is a top-level definition of a crate bundle.
type Def struct {
	Name     string
	Kind     DefKind
	Crate    string
	Generics Generics

	// DefFn, DefStatic, DefConst
	Sig  FnSig
	Body *Body
	// Set when the function declares a method of that trait.
	TraitMethod string

	// DefStruct, DefEnum
	Variants []Variant

	// DefTrait
	Supers  []TraitRef
	Methods []string

	// DefImpl
	Impl *ImplDecl

	// DefTypeAlias
	Alias Ty
}

// MethodName returns the last path segment of a trait method name.
func (d *Def) MethodName() string {
	name := d.Name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

// Crate is a bundle of definitions produced by an external front-end.
type Crate struct {
	Name string
	Defs []Def

	indexOnce sync.Once
	byName    map[string]int
}

func (c *Crate) index() {
	c.indexOnce.Do(func() {
		c.byName = make(map[string]int, len(c.Defs))
		for i := range c.Defs {
			if _, dup := c.byName[c.Defs[i].Name]; dup {
				continue
			}
			c.byName[c.Defs[i].Name] = i
		}
	})
}

// Lookup finds a definition by name. Safe for concurrent use.
func (c *Crate) Lookup(name string) (*Def, bool) {
	if c == nil {
		return nil, false
	}
	c.index()
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return &c.Defs[i], true
}

// IsLocal reports whether d belongs to this crate rather than a dependency.
func (c *Crate) IsLocal(d *Def) bool {
	return d != nil && (d.Crate == "" || d.Crate == c.Name)
}

// Impls returns the implementations of trait in declaration order.
func (c *Crate) Impls(trait string) []*Def {
	var out []*Def
	for i := range c.Defs {
		d := &c.Defs[i]
		if d.Kind == DefImpl && d.Impl != nil && d.Impl.Trait.Trait == trait {
			out = append(out, d)
		}
	}
	return out
}

// Names returns all definition names, sorted.
func (c *Crate) Names() []string {
	out := make([]string, 0, len(c.Defs))
	for i := range c.Defs {
		out = append(out, c.Defs[i].Name)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
