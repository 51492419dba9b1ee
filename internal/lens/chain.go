// Package lens models mutable borrows as functional accessors. A borrow is
// an ultimate source local plus a chain of accessors; writes through the
// borrow become a lens update of the source.
package lens

import (
	"fmt"
	"strings"
)

// AccessorKind distinguishes the accessor shapes a chain is built from.
type AccessorKind uint8

const (
	// AccessField focuses one field of a structure or tuple.
	AccessField AccessorKind = iota
	// AccessIndex focuses one element of a sequence.
	AccessIndex
	// AccessOpaque is a lens value produced by a call.
	AccessOpaque
)

// Accessor is one step of a chain. Names are already rendered in target
// notation by the caller.
type Accessor struct {
	Kind AccessorKind

	// AccessField. Adt is empty for tuple fields, in which case Arity
	// holds the tuple length.
	Adt   string
	Field string
	Pos   int
	Arity int

	// AccessIndex: rendered index operand.
	Index string

	// AccessOpaque: rendered lens expression.
	Opaque string
}

func FieldOf(adt, field string, pos int) Accessor {
	return Accessor{Kind: AccessField, Adt: adt, Field: field, Pos: pos}
}

func TupleField(pos, arity int) Accessor {
	return Accessor{Kind: AccessField, Pos: pos, Arity: arity}
}

func IndexBy(index string) Accessor {
	return Accessor{Kind: AccessIndex, Index: index}
}

func Opaque(expr string) Accessor {
	return Accessor{Kind: AccessOpaque, Opaque: expr}
}

// Render returns the target expression of a single accessor.
func (a Accessor) Render() string {
	switch a.Kind {
	case AccessField:
		if a.Adt == "" {
			return fmt.Sprintf("lens.proj %d %d", a.Arity, a.Pos)
		}
		return fmt.Sprintf("lens.mk (return ∘ %[1]s.%[2]s) (λ (o : %[1]s) i, return ⦃ %[1]s, %[2]s := i, o ⦄)", a.Adt, a.Field)
	case AccessIndex:
		return "lens.index _ " + a.Index
	case AccessOpaque:
		return a.Opaque
	}
	return "lens.id"
}

func (a Accessor) String() string {
	switch a.Kind {
	case AccessField:
		if a.Field != "" {
			return "." + a.Field
		}
		return fmt.Sprintf(".%d", a.Pos)
	case AccessIndex:
		return "[" + a.Index + "]"
	case AccessOpaque:
		return "<" + a.Opaque + ">"
	}
	return "?"
}

// Chain is an ordered accessor path. The first accessor applies to the
// source value.
type Chain []Accessor

func (c Chain) IsIdentity() bool { return len(c) == 0 }

// Then returns c followed by next. The receiver is not modified.
func (c Chain) Then(next ...Accessor) Chain {
	out := make(Chain, 0, len(c)+len(next))
	out = append(out, c...)
	return append(out, next...)
}

// Render composes the chain with ∘ₗ in function-composition order, so the
// accessor applied last comes first.
func (c Chain) Render() string {
	switch len(c) {
	case 0:
		return "lens.id"
	case 1:
		return "(" + c[0].Render() + ")"
	}
	parts := make([]string, len(c))
	for i, a := range c {
		parts[len(c)-1-i] = a.Render()
	}
	return "(" + strings.Join(parts, " ∘ₗ ") + ")"
}

// RenderGet reads the focus of src.
func (c Chain) RenderGet(src string) string {
	return fmt.Sprintf("lens.get %s %s", c.Render(), src)
}

// RenderSet replaces the focus of src with val.
func (c Chain) RenderSet(src, val string) string {
	return fmt.Sprintf("lens.set %s %s %s", c.Render(), src, val)
}

func (c Chain) String() string {
	var b strings.Builder
	for _, a := range c {
		b.WriteString(a.String())
	}
	return b.String()
}
