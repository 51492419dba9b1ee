// Package target holds the small vocabulary the emitter writes in: values
// that may fail, tuples, bindings, identifiers and types.
package target

import (
	"fmt"
	"strings"
)

// Value is a translated expression. A partial value lives in the failure
// monad and must be bound with `do`; a total one is a pure term.
type Value struct {
	Text    string
	Partial bool
}

func Total(text string) Value { return Value{Text: text} }

func Partial(text string) Value { return Value{Text: text, Partial: true} }

// Monadic returns the value as a computation.
func (v Value) Monadic() string {
	if v.Partial {
		return v.Text
	}
	return "return " + Paren(v.Text)
}

// Paren wraps text in parentheses unless it is a single token.
func Paren(text string) string {
	if !strings.ContainsAny(text, " \n") || enclosed(text) {
		return text
	}
	return "(" + text + ")"
}

// enclosed reports whether the outermost parentheses span all of text.
func enclosed(text string) bool {
	if !strings.HasPrefix(text, "(") || !strings.HasSuffix(text, ")") {
		return false
	}
	depth := 0
	for i, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(text)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// group parenthesizes a multi-line computation so it can be bound.
func group(text string) string {
	if strings.Contains(strings.TrimRight(text, "\n"), "\n") {
		return "(" + strings.TrimRight(text, "\n") + ")"
	}
	return text
}

// MkTuple builds a tuple term: unit for no items, the item itself for one.
func MkTuple(items []string) string {
	switch len(items) {
	case 0:
		return "⋆"
	case 1:
		return items[0]
	}
	return "(" + strings.Join(items, ", ") + ")"
}

// MkTupleTy builds the matching product type.
func MkTupleTy(items []string) string {
	switch len(items) {
	case 0:
		return "unit"
	case 1:
		return items[0]
	}
	return "(" + strings.Join(items, " × ") + ")"
}

// Bind binds name to v and continues with cont.
func Bind(name string, v Value, cont string) string {
	if v.Partial {
		return fmt.Sprintf("do %s ← %s;\n%s", name, group(v.Text), cont)
	}
	if name == v.Text {
		return cont
	}
	return fmt.Sprintf("let' %s ← %s;\n%s", name, v.Text, cont)
}

// Detuple destructures val into pat and continues with cont.
func Detuple(val string, pat []string, cont string) string {
	switch len(pat) {
	case 0:
		return cont
	case 1:
		return Bind(pat[0], Total(val), cont)
	}
	return fmt.Sprintf("match %s with (%s) :=\n%send\n", val, strings.Join(pat, ", "), cont)
}

// Seq sequences vals left to right. Total values are passed to f as-is,
// partial ones are bound to fresh temporaries numbered from depth.
func Seq(depth int, vals []Value, f func(args []string) Value) Value {
	args := make([]string, 0, len(vals))
	var rec func(depth int, rest []Value) Value
	rec = func(depth int, rest []Value) Value {
		if len(rest) == 0 {
			return f(args)
		}
		v := rest[0]
		if !v.Partial {
			args = append(args, Paren(v.Text))
			return rec(depth+1, rest[1:])
		}
		tmp := fmt.Sprintf("«$tmp%d»", depth)
		args = append(args, tmp)
		inner := rec(depth+1, rest[1:])
		return Partial(fmt.Sprintf("do %s ← %s;\n%s", tmp, group(v.Text), inner.Monadic()))
	}
	return rec(depth, vals)
}

// Map sequences vals and returns f's text, which must be a computation.
func Map(depth int, vals []Value, f func(args []string) string) string {
	return Seq(depth, vals, func(args []string) Value { return Partial(f(args)) }).Text
}
