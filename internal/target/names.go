package target

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"mirlean/internal/mir"
)

var keywords = map[string]struct{}{
	"at": {}, "begin": {}, "by": {}, "definition": {}, "do": {}, "end": {}, "else": {},
	"fun": {}, "have": {}, "if": {}, "in": {}, "inductive": {}, "let": {}, "match": {},
	"parameters": {}, "section": {}, "show": {}, "structure": {}, "then": {}, "with": {},
	"from": {}, "using": {}, "theorem": {}, "variable": {}, "variables": {}, "open": {},
	"instance": {}, "class": {}, "mutual": {}, "return": {}, "loop": {}, "Type": {},
}

// Ident renders an identifier, quoting it with «» when it is a keyword or
// contains characters outside the plain identifier alphabet. Dots separate
// namespaces and are kept.
func Ident(name string) string {
	name = norm.NFC.String(name)
	if name == "" {
		return "«»"
	}
	if _, kw := keywords[name]; kw {
		return "«" + name + "»"
	}
	for i, seg := range strings.Split(name, ".") {
		if seg == "" || !plainSegment(seg, i == 0) {
			return "«" + name + "»"
		}
	}
	return name
}

func plainSegment(seg string, first bool) bool {
	for i, r := range seg {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case unicode.IsDigit(r) || r == '\'':
			if i == 0 && first {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Short returns the last namespace segment of a definition name.
func Short(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// LocalNames assigns a distinct target name to every local of body: ret for
// the return slot, declared names for arguments and variables, t<index> for
// temporaries.
func LocalNames(body *mir.Body) []string {
	names := make([]string, len(body.Locals))
	used := make(map[string]struct{}, len(body.Locals))
	for i, l := range body.Locals {
		var n string
		switch {
		case l.Kind == mir.LocalReturn:
			n = "ret"
		case l.Name == "" || l.Kind == mir.LocalTemp:
			n = "t" + strconv.Itoa(i)
		default:
			n = Ident(l.Name)
		}
		if _, dup := used[n]; dup {
			n = Ident(fmt.Sprintf("%s_%d", strings.Trim(n, "«»"), i))
		}
		used[n] = struct{}{}
		names[i] = n
	}
	return names
}

// Ty renders a type. References are erased: a shared reference is its
// pointee, a mutable one is threaded as a value.
func Ty(t mir.Ty) string {
	switch t.Kind {
	case mir.TyBool:
		return "bool"
	case mir.TyInt, mir.TyUint:
		return t.String()
	case mir.TyTuple:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = Ty(a)
		}
		return MkTupleTy(parts)
	case mir.TyAdt:
		if len(t.Args) == 0 {
			return Ident(t.Name)
		}
		parts := []string{Ident(t.Name)}
		for _, a := range t.Args {
			parts = append(parts, Ty(a))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case mir.TyRef:
		return Ty(t.Elem())
	case mir.TySlice, mir.TyArray:
		return "(list " + Ty(t.Elem()) + ")"
	case mir.TyStr:
		return "string"
	case mir.TyParam:
		return Ident(t.Name)
	case mir.TyNever:
		return "empty"
	case mir.TyFn:
		if len(t.Args) == 0 {
			return "(unit → sem unit)"
		}
		parts := make([]string, 0, len(t.Args))
		for _, a := range t.Args[:len(t.Args)-1] {
			parts = append(parts, Ty(a))
		}
		parts = append(parts, "sem "+Ty(t.Args[len(t.Args)-1]))
		return "(" + strings.Join(parts, " → ") + ")"
	}
	return "_"
}

// Const renders a literal. Item constants are rendered by the caller, which
// also records the dependency.
func Const(c mir.Const) string {
	switch c.Kind {
	case mir.ConstInt:
		return fmt.Sprintf("(%d : %s)", c.Int, Ty(c.Ty))
	case mir.ConstUint:
		return fmt.Sprintf("(%d : %s)", c.Uint, Ty(c.Ty))
	case mir.ConstBool:
		if c.Bool {
			return "bool.tt"
		}
		return "bool.ff"
	case mir.ConstStr:
		return strconv.Quote(c.Str)
	case mir.ConstUnit:
		return "⋆"
	case mir.ConstItem:
		return Ident(c.Item)
	case mir.ConstPromoted:
		return fmt.Sprintf("promoted_%d", c.Promoted)
	}
	return "_"
}
