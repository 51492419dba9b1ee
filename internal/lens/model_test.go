package lens

import (
	"errors"
	"fmt"
)

// ValueKind classifies reference values.
type ValueKind uint8

const (
	ValScalar ValueKind = iota
	ValRecord
	ValSeq
)

// Value is a reference model of target values. It gives chains an
// executable meaning that translated code must agree with.
type Value struct {
	Kind   ValueKind
	Scalar int64
	// Elems are record fields by position or sequence elements.
	Elems []Value
}

func Scalar(v int64) Value { return Value{Kind: ValScalar, Scalar: v} }

func Record(fields ...Value) Value { return Value{Kind: ValRecord, Elems: fields} }

func Seq(elems ...Value) Value { return Value{Kind: ValSeq, Elems: elems} }

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Scalar != o.Scalar || len(v.Elems) != len(o.Elems) {
		return false
	}
	for i := range v.Elems {
		if !v.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	switch v.Kind {
	case ValScalar:
		return fmt.Sprint(v.Scalar)
	case ValRecord:
		return fmt.Sprint("{", v.Elems, "}")
	default:
		return fmt.Sprint(v.Elems)
	}
}

// Env resolves rendered index operands to positions.
type Env map[string]int

// ErrOutOfRange is returned when an accessor does not fit the value.
var ErrOutOfRange = errors.New("lens: focus out of range")

var errOpaque = errors.New("lens: opaque accessor has no reference meaning")

func (a Accessor) slot(v Value, env Env) (int, error) {
	var i int
	switch a.Kind {
	case AccessField:
		if v.Kind != ValRecord {
			return 0, fmt.Errorf("%w: field %s of non-record", ErrOutOfRange, a)
		}
		i = a.Pos
	case AccessIndex:
		if v.Kind != ValSeq {
			return 0, fmt.Errorf("%w: index %s of non-sequence", ErrOutOfRange, a)
		}
		pos, ok := env[a.Index]
		if !ok {
			return 0, fmt.Errorf("lens: unbound index %q", a.Index)
		}
		i = pos
	default:
		return 0, errOpaque
	}
	if i < 0 || i >= len(v.Elems) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, a)
	}
	return i, nil
}

// Get returns the focus of v.
func (a Accessor) Get(v Value, env Env) (Value, error) {
	i, err := a.slot(v, env)
	if err != nil {
		return Value{}, err
	}
	return v.Elems[i], nil
}

// Set returns a copy of v with the focus replaced by x.
func (a Accessor) Set(v Value, env Env, x Value) (Value, error) {
	i, err := a.slot(v, env)
	if err != nil {
		return Value{}, err
	}
	out := v
	out.Elems = append([]Value(nil), v.Elems...)
	out.Elems[i] = x
	return out, nil
}

// Get applies the chain from the source outwards.
func (c Chain) Get(v Value, env Env) (Value, error) {
	cur := v
	for _, a := range c {
		next, err := a.Get(cur, env)
		if err != nil {
			return Value{}, err
		}
		cur = next
	}
	return cur, nil
}

// Set rebuilds v with the focus of the whole chain replaced by x.
func (c Chain) Set(v Value, env Env, x Value) (Value, error) {
	if len(c) == 0 {
		return x, nil
	}
	inner, err := c[0].Get(v, env)
	if err != nil {
		return Value{}, err
	}
	updated, err := c[1:].Set(inner, env, x)
	if err != nil {
		return Value{}, err
	}
	return c[0].Set(v, env, updated)
}
