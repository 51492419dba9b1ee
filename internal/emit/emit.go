// Package emit translates definitions of a crate bundle into the target
// notation. Functions go through a recursive descent over their blocks;
// data types, traits and impls are rendered declaratively.
package emit

import (
	"fmt"
	"slices"
	"strings"

	"mirlean/internal/diag"
	"mirlean/internal/mir"
	"mirlean/internal/traits"
)

// ExitMode controls loops that leave to more than one block.
type ExitMode uint8

const (
	// ExitReject fails the definition with TransMultipleLoopExits.
	ExitReject ExitMode = iota
	// ExitTag folds an exit index into the loop result and matches on it.
	ExitTag
)

func (m ExitMode) String() string {
	if m == ExitTag {
		return "tag"
	}
	return "reject"
}

// ParseExitMode accepts "reject" and "tag".
func ParseExitMode(s string) (ExitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return ExitReject, nil
	case "tag":
		return ExitTag, nil
	}
	return ExitReject, fmt.Errorf("unknown multi-exit mode %q (want reject or tag)", s)
}

type Options struct {
	MultiExit ExitMode
	// TraitOnly restricts the methods emitted for a trait and its impls.
	TraitOnly map[string][]string
}

func (o Options) methodAllowed(trait, method string) bool {
	only, ok := o.TraitOnly[trait]
	if !ok {
		return true
	}
	return slices.Contains(only, method)
}

// Item is the translation of one definition.
type Item struct {
	Name string
	Kind mir.DefKind
	// Text is empty for definitions with no counterpart, such as marker traits.
	Text string
	// Deps are the local definitions the text refers to, sorted.
	Deps []string
	// CrateDeps are the other crates the text refers to, sorted.
	CrateDeps []string
}

// Translator holds what every definition translation shares. It is
// read-only and safe for concurrent use.
type Translator struct {
	crate    *mir.Crate
	resolver *traits.Resolver
	opts     Options
}

func New(c *mir.Crate, r *traits.Resolver, opts Options) *Translator {
	return &Translator{crate: c, resolver: r, opts: opts}
}

// Translate renders d. Errors are *diag.Error attributed to d.
func (t *Translator) Translate(d *mir.Def) (Item, error) {
	item, err := t.translate(d)
	if err != nil {
		return Item{Name: d.Name, Kind: d.Kind}, diag.Locate(err, d.Name, -1, -1)
	}
	return item, nil
}

func (t *Translator) translate(d *mir.Def) (Item, error) {
	deps := newDepSet(t.crate, d.Name)
	var (
		text string
		err  error
	)
	switch d.Kind {
	case mir.DefFn:
		text, err = t.translateFn(d, deps)
	case mir.DefStatic, mir.DefConst:
		text, err = t.translateStatic(d, deps)
	case mir.DefStruct:
		text, err = t.translateStruct(d, deps)
	case mir.DefEnum:
		text, err = t.translateEnum(d, deps)
	case mir.DefTrait:
		text, err = t.translateTrait(d, deps)
	case mir.DefImpl:
		text, err = t.translateImpl(d, deps)
	case mir.DefTypeAlias:
		text, err = t.translateAlias(d, deps)
	default:
		err = diag.Errorf(diag.TransUnsupportedConstruct, "definition kind %s", d.Kind)
	}
	if err != nil {
		return Item{}, err
	}
	return Item{
		Name:      d.Name,
		Kind:      d.Kind,
		Text:      text,
		Deps:      deps.Local(),
		CrateDeps: deps.Crates(),
	}, nil
}

// depSet accumulates the names a translation refers to.
type depSet struct {
	crate  *mir.Crate
	self   string
	local  map[string]struct{}
	crates map[string]struct{}
}

func newDepSet(c *mir.Crate, self string) *depSet {
	return &depSet{crate: c, self: self, local: map[string]struct{}{}, crates: map[string]struct{}{}}
}

func (s *depSet) Add(names ...string) {
	for _, name := range names {
		d, ok := s.crate.Lookup(name)
		switch {
		case ok && s.crate.IsLocal(d):
			s.local[name] = struct{}{}
		case ok:
			s.crates[d.Crate] = struct{}{}
		default:
			if i := strings.IndexByte(name, '.'); i > 0 {
				s.crates[name[:i]] = struct{}{}
			}
		}
	}
}

func (s *depSet) AddTy(t mir.Ty) {
	s.Add(t.Adts(nil)...)
}

// Recursive reports whether the translation referred to itself.
func (s *depSet) Recursive() bool {
	_, ok := s.local[s.self]
	return ok
}

func (s *depSet) Local() []string {
	out := make([]string, 0, len(s.local))
	for n := range s.local {
		if n != s.self {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

func (s *depSet) Crates() []string {
	out := make([]string, 0, len(s.crates))
	for n := range s.crates {
		if n != s.crate.Name {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}
