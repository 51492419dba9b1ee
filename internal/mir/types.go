package mir

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

type BlockID int32
type LocalID int32

// BlockAt returns the id of the block at position i of Body.Blocks.
func BlockAt(i int) BlockID {
	id, err := safecast.Conv[BlockID](i)
	if err != nil {
		panic(fmt.Errorf("block id overflow: %w", err))
	}
	return id
}

// LocalAt returns the id of the local at position i of Body.Locals.
func LocalAt(i int) LocalID {
	id, err := safecast.Conv[LocalID](i)
	if err != nil {
		panic(fmt.Errorf("local id overflow: %w", err))
	}
	return id
}

const (
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1

	// ReturnLocal is the slot holding the function result.
	ReturnLocal LocalID = 0
)

// LocalKind classifies a local slot of a body.
type LocalKind uint8

const (
	LocalReturn LocalKind = iota
	LocalArg
	LocalVar
	LocalTemp
)

type Local struct {
	Name string
	Kind LocalKind
	Ty   Ty
}

// TyKind enumerates the type shapes the translator understands.
type TyKind uint8

const (
	TyTuple TyKind = iota
	TyBool
	TyInt
	TyUint
	TyAdt
	TyRef
	TySlice
	TyArray
	TyStr
	TyParam
	TyNever
	TyFn
)

// Ty is a structural type. The empty tuple is the unit type.
//
// Args holds tuple elements, ADT generic arguments, the element of a
// reference/slice/array, or function parameters followed by the result.
type Ty struct {
	Kind TyKind
	Bits uint8 // 0 means pointer-sized
	Name string
	Args []Ty
	Mut  bool
	Len  uint64
}

func Unit() Ty { return Ty{Kind: TyTuple} }
func Bool() Ty { return Ty{Kind: TyBool} }
func Int(bits uint8) Ty { return Ty{Kind: TyInt, Bits: bits} }
func Uint(bits uint8) Ty { return Ty{Kind: TyUint, Bits: bits} }
func Param(name string) Ty { return Ty{Kind: TyParam, Name: name} }
func Adt(name string, args ...Ty) Ty { return Ty{Kind: TyAdt, Name: name, Args: args} }
func Tuple(elems ...Ty) Ty { return Ty{Kind: TyTuple, Args: elems} }
func Slice(elem Ty) Ty { return Ty{Kind: TySlice, Args: []Ty{elem}} }

func RefTo(elem Ty, mut bool) Ty {
	return Ty{Kind: TyRef, Mut: mut, Args: []Ty{elem}}
}

func (t Ty) IsUnit() bool { return t.Kind == TyTuple && len(t.Args) == 0 }

func (t Ty) IsMutRef() bool { return t.Kind == TyRef && t.Mut }

func (t Ty) IsInteger() bool { return t.Kind == TyInt || t.Kind == TyUint }

// Elem returns the pointee or element type, or unit when there is none.
func (t Ty) Elem() Ty {
	switch t.Kind {
	case TyRef, TySlice, TyArray:
		if len(t.Args) > 0 {
			return t.Args[0]
		}
	}
	return Unit()
}

// Deref strips every reference layer.
func (t Ty) Deref() Ty {
	for t.Kind == TyRef {
		t = t.Elem()
	}
	return t
}

func (t Ty) Equal(o Ty) bool {
	if t.Kind != o.Kind || t.Bits != o.Bits || t.Name != o.Name || t.Mut != o.Mut || t.Len != o.Len {
		return false
	}
	if len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// HasParams reports whether a generic parameter occurs anywhere in t.
func (t Ty) HasParams() bool {
	if t.Kind == TyParam {
		return true
	}
	for _, a := range t.Args {
		if a.HasParams() {
			return true
		}
	}
	return false
}

// Subst replaces generic parameters by name.
func (t Ty) Subst(s map[string]Ty) Ty {
	if len(s) == 0 {
		return t
	}
	if t.Kind == TyParam {
		if r, ok := s[t.Name]; ok {
			return r
		}
		return t
	}
	if len(t.Args) == 0 {
		return t
	}
	out := t
	out.Args = make([]Ty, len(t.Args))
	for i, a := range t.Args {
		out.Args[i] = a.Subst(s)
	}
	return out
}

// Adts collects every ADT name mentioned by t.
func (t Ty) Adts(dst []string) []string {
	if t.Kind == TyAdt {
		dst = append(dst, t.Name)
	}
	for _, a := range t.Args {
		dst = a.Adts(dst)
	}
	return dst
}

func (t Ty) String() string {
	switch t.Kind {
	case TyTuple:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case TyBool:
		return "bool"
	case TyInt:
		if t.Bits == 0 {
			return "isize"
		}
		return fmt.Sprintf("i%d", t.Bits)
	case TyUint:
		if t.Bits == 0 {
			return "usize"
		}
		return fmt.Sprintf("u%d", t.Bits)
	case TyAdt:
		if len(t.Args) == 0 {
			return t.Name
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return t.Name + "<" + strings.Join(parts, ", ") + ">"
	case TyRef:
		if t.Mut {
			return "&mut " + t.Elem().String()
		}
		return "&" + t.Elem().String()
	case TySlice:
		return "[" + t.Elem().String() + "]"
	case TyArray:
		return fmt.Sprintf("[%s; %d]", t.Elem().String(), t.Len)
	case TyStr:
		return "str"
	case TyParam:
		return t.Name
	case TyNever:
		return "!"
	case TyFn:
		parts := make([]string, 0, len(t.Args))
		for _, a := range t.Args {
			parts = append(parts, a.String())
		}
		if len(parts) == 0 {
			return "fn()"
		}
		return "fn(" + strings.Join(parts[:len(parts)-1], ", ") + ") -> " + parts[len(parts)-1]
	}
	return "?"
}

type PlaceProjKind uint8

const (
	PlaceProjDeref PlaceProjKind = iota
	PlaceProjField
	PlaceProjIndex
	PlaceProjDowncast
)

type PlaceProj struct {
	Kind PlaceProjKind

	Field      int
	IndexLocal LocalID
	Variant    int
}

type PlaceKind uint8

const (
	PlaceLocal PlaceKind = iota
	PlaceStatic
)

// Place is a local or static with projections applied innermost first.
type Place struct {
	Kind   PlaceKind
	Local  LocalID
	Static string
	Proj   []PlaceProj
}

func LocalPlace(id LocalID, proj ...PlaceProj) Place {
	return Place{Kind: PlaceLocal, Local: id, Proj: proj}
}

func DerefProj() PlaceProj { return PlaceProj{Kind: PlaceProjDeref} }
func FieldProj(i int) PlaceProj { return PlaceProj{Kind: PlaceProjField, Field: i} }
func IndexProj(l LocalID) PlaceProj { return PlaceProj{Kind: PlaceProjIndex, IndexLocal: l} }
func DowncastProj(v int) PlaceProj { return PlaceProj{Kind: PlaceProjDowncast, Variant: v} }

func (p Place) IsValid() bool {
	switch p.Kind {
	case PlaceStatic:
		return p.Static != ""
	default:
		return p.Local != NoLocalID
	}
}

// Root returns the base local, or NoLocalID for statics.
func (p Place) Root() LocalID {
	if p.Kind != PlaceLocal {
		return NoLocalID
	}
	return p.Local
}

func (p Place) IsPlainLocal() bool {
	return p.Kind == PlaceLocal && len(p.Proj) == 0
}
