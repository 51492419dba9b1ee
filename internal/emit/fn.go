package emit

import (
	"fmt"
	"strings"

	"mirlean/internal/diag"
	"mirlean/internal/lens"
	"mirlean/internal/mir"
	"mirlean/internal/region"
	"mirlean/internal/target"
	"mirlean/internal/traits"
)

// fnTranslator translates one body. Loop definitions it synthesizes are
// collected in prelude and emitted ahead of the function.
type fnTranslator struct {
	t     *Translator
	def   *mir.Def
	body  *mir.Body
	name  string
	names []string
	an    *region.Analyzer
	env   traits.Env
	deps  *depSet

	prelude []string
	loops   map[mir.BlockID]*loopDef
}

// state is what a path through the body knows. Branches work on copies.
type state struct {
	alias *lens.Table
	bound mir.LocalSet
}

func (s *state) clone() *state {
	return &state{alias: s.alias.Clone(), bound: s.bound.Clone()}
}

func (t *Translator) newFnTranslator(d *mir.Def, body *mir.Body, deps *depSet) (*fnTranslator, error) {
	if err := mir.Validate(body); err != nil {
		return nil, diag.Wrap(diag.TransInvalidIR, err, "invalid body")
	}
	an, err := region.NewAnalyzer(body)
	if err != nil {
		return nil, err
	}
	return &fnTranslator{
		t:     t,
		def:   d,
		body:  body,
		name:  target.Ident(d.Name),
		names: target.LocalNames(body),
		an:    an,
		env:   traits.EnvFor(t.resolver.Oracle(), t.crate, d),
		deps:  deps,
		loops: map[mir.BlockID]*loopDef{},
	}, nil
}

func (f *fnTranslator) initialState() *state {
	st := &state{alias: lens.NewTable(), bound: mir.NewLocalSet(f.body.Args()...)}
	return st
}

// translateBody renders the whole body as a computation.
func (f *fnTranslator) translateBody() (string, error) {
	var promoted []string
	for i := range f.body.Promoted {
		text, err := f.translatePromoted(i)
		if err != nil {
			return "", err
		}
		promoted = append(promoted, text)
	}

	comp, err := f.an.Function()
	if err != nil {
		return "", err
	}
	text, err := f.block(f.body.Start, comp, f.initialState())
	if err != nil {
		return "", err
	}
	return strings.Join(append(promoted, text), ""), nil
}

func (f *fnTranslator) translatePromoted(i int) (string, error) {
	pb := &f.body.Promoted[i]
	sub, err := f.t.newFnTranslator(&mir.Def{Name: fmt.Sprintf("%s.promoted_%d", f.def.Name, i), Kind: mir.DefConst, Generics: f.def.Generics}, pb, f.deps)
	if err != nil {
		return "", err
	}
	sub.env = f.env
	text, err := sub.translateBody()
	if err != nil {
		return "", err
	}
	f.prelude = append(f.prelude, sub.prelude...)
	return fmt.Sprintf("do promoted_%d ←\n%s;\n", i, strings.TrimRight(text, "\n")), nil
}

// returnExpr is the final value of the function: the result plus the
// final values of every &mut argument.
func (f *fnTranslator) returnExpr() string {
	items := []string{f.retValue()}
	for _, a := range f.body.MutRefArgs() {
		items = append(items, f.names[a])
	}
	return "return " + target.Paren(target.MkTuple(items)) + "\n"
}

func (f *fnTranslator) retValue() string {
	if f.body.LocalTy(mir.ReturnLocal).IsUnit() {
		return "⋆"
	}
	return f.names[mir.ReturnLocal]
}

// retTy renders the result type including threaded &mut arguments. A
// returned &mut becomes a lens into the first argument.
func (f *fnTranslator) retTy(sig mir.FnSig) (string, error) {
	return fnRetTy(sig, f.deps)
}

// sigOf returns the declared signature, falling back to the body's locals.
func sigOf(d *mir.Def) mir.FnSig {
	sig := d.Sig
	if len(sig.Params) == 0 && d.Body != nil && d.Body.ArgCount > 0 {
		for _, a := range d.Body.Args() {
			sig.Params = append(sig.Params, d.Body.LocalTy(a))
		}
		sig.Ret = d.Body.LocalTy(mir.ReturnLocal)
	}
	return sig
}

func fnRetTy(sig mir.FnSig, deps *depSet) (string, error) {
	deps.AddTy(sig.Ret)
	out := target.Ty(sig.Ret)
	if sig.Ret.IsMutRef() {
		if len(sig.Params) == 0 || !sig.Params[0].IsMutRef() {
			return "", diag.Errorf(diag.TransUnsupportedConstruct, "returning a mutable reference not derived from the first argument")
		}
		out = fmt.Sprintf("(lens %s %s)", target.Ty(sig.Params[0].Elem()), target.Ty(sig.Ret.Elem()))
	}
	items := []string{out}
	for _, p := range sig.Params {
		if p.IsMutRef() {
			items = append(items, target.Ty(p.Elem()))
		}
	}
	return target.MkTupleTy(items), nil
}

// binders renders type, dictionary and value parameters of the function.
func (f *fnTranslator) binders() (tys, dicts, params []string) {
	for _, p := range genericParams(f.def) {
		tys = append(tys, fmt.Sprintf("{%s : Type₁}", target.Ident(p)))
	}
	for _, b := range f.env.Bounds {
		f.deps.Add(b.Ref.Trait)
		dicts = append(dicts, fmt.Sprintf("[%s : %s]", b.Dict, renderTraitRef(b.Ref)))
	}
	for _, a := range f.body.Args() {
		ty := f.body.LocalTy(a)
		f.deps.AddTy(ty)
		params = append(params, fmt.Sprintf("(%s : %s)", f.names[a], target.Ty(ty)))
	}
	return tys, dicts, params
}

func renderTraitRef(r mir.TraitRef) string {
	parts := []string{target.Ident(r.Trait)}
	for _, a := range r.Args {
		parts = append(parts, target.Ty(a))
	}
	return strings.Join(parts, " ")
}

func (t *Translator) translateFn(d *mir.Def, deps *depSet) (string, error) {
	if d.Body == nil {
		if d.TraitMethod != "" {
			// Required trait methods live in the trait structure.
			return "", nil
		}
		return "", diag.Errorf(diag.TransUnsupportedConstruct, "function without a body")
	}
	f, err := t.newFnTranslator(d, d.Body, deps)
	if err != nil {
		return "", err
	}
	body, err := f.translateBody()
	if err != nil {
		return "", err
	}
	ret, err := f.retTy(sigOf(d))
	if err != nil {
		return "", err
	}
	if deps.Recursive() {
		body = fmt.Sprintf("fix_opt (λ %s, %s)", f.name, strings.TrimRight(body, "\n"))
	}
	tys, dicts, params := f.binders()

	if len(f.prelude) == 0 {
		head := append([]string{f.name}, tys...)
		head = append(head, dicts...)
		head = append(head, params...)
		return fmt.Sprintf("definition %s : sem %s :=\n%s", strings.Join(head, " "), ret, body), nil
	}

	var b strings.Builder
	b.WriteString("section\n")
	for _, group := range [][]string{tys, dicts, params} {
		if len(group) > 0 {
			fmt.Fprintf(&b, "parameters %s\n", strings.Join(group, " "))
		}
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(f.prelude, "\n\n"))
	fmt.Fprintf(&b, "\n\ndefinition %s : sem %s :=\n%s", f.name, ret, body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("end")
	return b.String(), nil
}

func (t *Translator) translateStatic(d *mir.Def, deps *depSet) (string, error) {
	if d.Body == nil {
		return "", diag.Errorf(diag.TransUnsupportedConstruct, "%s without a body", d.Kind)
	}
	f, err := t.newFnTranslator(d, d.Body, deps)
	if err != nil {
		return "", err
	}
	body, err := f.translateBody()
	if err != nil {
		return "", err
	}
	ty := d.Sig.Ret
	if ty.IsUnit() {
		ty = d.Body.LocalTy(mir.ReturnLocal)
	}
	deps.AddTy(ty)
	text := fmt.Sprintf("definition %s : sem %s :=\n%s", f.name, target.Ty(ty), body)
	if len(f.prelude) > 0 {
		text = strings.Join(f.prelude, "\n\n") + "\n\n" + text
	}
	return text, nil
}
