package emit

import (
	"fmt"
	"slices"
	"strings"

	"mirlean/internal/lens"
	"mirlean/internal/mir"
	"mirlean/internal/region"
	"mirlean/internal/target"
	"mirlean/internal/traits"
)

// call translates a call terminator. The callee returns its result followed
// by the final values of its &mut arguments; those are rebound in the
// caller.
func (f *fnTranslator) call(bb mir.BlockID, comp *region.Component, st *state, c *mir.CallTerm) (string, error) {
	if c.Target == mir.NoBlockID {
		return "mzero\n", nil
	}
	callee, err := f.callee(&c.Func)
	if err != nil {
		return "", err
	}
	vals, err := f.operands(c.Args)
	if err != nil {
		return "", err
	}

	var pre strings.Builder
	args := []string{callee}
	for i, v := range vals {
		if !v.Partial {
			args = append(args, target.Paren(v.Text))
			continue
		}
		tmp := fmt.Sprintf("«$arg%d»", i)
		pre.WriteString(target.Bind(tmp, v, ""))
		args = append(args, tmp)
	}

	var muts, moved []mir.LocalID
	for i := range c.Args {
		a := &c.Args[i]
		if !f.operandTy(a).IsMutRef() {
			continue
		}
		p, ok := a.UsedPlace()
		if !ok || !p.IsPlainLocal() {
			return "", unsupported("mutable reference argument %s is not a local", mir.FormatOperand(*a))
		}
		muts = append(muts, p.Local)
		if a.Kind == mir.OperandMove {
			moved = append(moved, p.Local)
		}
	}

	var post []wrap
	first := "_"
	retLens := false
	if c.HasDest {
		destTy, err := f.placeTy(c.Dest)
		if err != nil {
			return "", err
		}
		switch {
		case destTy.IsMutRef():
			retLens = true
			first = fmt.Sprintf("«$lens%d»", bb)
		case c.Dest.IsPlainLocal():
			first = f.names[c.Dest.Local]
			st.bound.Add(c.Dest.Local)
		default:
			first = "«$ret»"
		}
	}
	for _, l := range muts {
		st.bound.Add(l)
	}

	if retLens {
		w, err := f.lensResult(st, c, muts, first)
		if err != nil {
			return "", err
		}
		post = append(post, w)
	} else {
		for _, l := range moved {
			if w := f.release(st, l); w != nil {
				post = append(post, w)
			}
		}
		if c.HasDest && !c.Dest.IsPlainLocal() {
			w, err := f.writePlace(st, c.Dest, target.Total(first))
			if err != nil {
				return "", err
			}
			post = append(post, w)
		}
	}

	cont, err := f.block(c.Target, comp, st)
	if err != nil {
		return "", err
	}
	cont = apply(cont, post)

	pat := append([]string{first}, f.localNames(muts)...)
	call := strings.Join(args, " ")
	if len(pat) == 1 {
		return fmt.Sprintf("%sdostep %s ← %s;\n%s", pre.String(), pat[0], call, cont), nil
	}
	return fmt.Sprintf("%sdostep «$tmp» ← %s;\n%s", pre.String(), call, target.Detuple("«$tmp»", pat, cont)), nil
}

// lensResult binds the destination of a call returning a mutable reference.
// The returned lens focuses into the first argument.
func (f *fnTranslator) lensResult(st *state, c *mir.CallTerm, muts []mir.LocalID, lensName string) (wrap, error) {
	if !c.Dest.IsPlainLocal() {
		return nil, unsupported("mutable reference result stored in %s", mir.FormatPlace(c.Dest))
	}
	if len(c.Args) == 0 || len(muts) == 0 {
		return nil, unsupported("mutable reference result without a mutable reference argument")
	}
	p, _ := c.Args[0].UsedPlace()
	if !p.IsPlainLocal() || p.Local != muts[0] {
		return nil, unsupported("mutable reference result not derived from the first argument")
	}
	base := p.Local
	if _, err := st.alias.Borrow(c.Dest.Local, base, lens.Chain{lens.Opaque(lensName)}); err != nil {
		return nil, err
	}
	st.bound.Add(c.Dest.Local)
	d, s := f.names[c.Dest.Local], f.names[base]
	return func(cont string) string {
		return target.Bind(d, target.Partial(lens.Chain{lens.Opaque(lensName)}.RenderGet(s)), cont)
	}, nil
}

// callee renders the function a call refers to.
func (f *fnTranslator) callee(op *mir.Operand) (string, error) {
	if op.Kind != mir.OperandConst || op.Const.Kind != mir.ConstItem {
		v, err := f.operand(op)
		if err != nil {
			return "", err
		}
		if v.Partial {
			return "", unsupported("call through %s", mir.FormatOperand(*op))
		}
		return target.Paren(v.Text), nil
	}
	name, substs := op.Const.Item, op.Const.Substs
	d, ok := f.t.crate.Lookup(name)
	if !ok {
		f.deps.Add(name)
		return target.Ident(name), nil
	}
	if d.Kind != mir.DefFn {
		return "", unsupported("call of %s %s", d.Kind, name)
	}
	if d.TraitMethod != "" {
		return f.traitCallee(d, substs)
	}
	return f.genericCallee(d, substs)
}

// traitCallee dispatches a trait method call: to the impl's method when the
// receiver type is known, otherwise through the dictionary in scope.
func (f *fnTranslator) traitCallee(d *mir.Def, substs []mir.Ty) (string, error) {
	nTrait := 1
	if tr, ok := f.t.crate.Lookup(d.TraitMethod); ok {
		for _, p := range tr.Generics.Params {
			if p != "Self" {
				nTrait++
			}
		}
	}
	if len(substs) < nTrait {
		return "", unsupported("call of %s with %d type arguments, want at least %d", d.Name, len(substs), nTrait)
	}
	ref := mir.TraitRef{Trait: d.TraitMethod, Args: substs[:nTrait]}
	res, err := f.t.resolver.Resolve(ref, f.env)
	if err != nil {
		return "", err
	}
	if res.Kind == traits.Static {
		if impl, ok := f.t.crate.Lookup(res.Impl); ok && impl.Impl != nil {
			if method, ok := impl.Impl.Methods[d.MethodName()]; ok {
				md, ok := f.t.crate.Lookup(method)
				if !ok {
					f.deps.Add(method)
					return target.Ident(method), nil
				}
				return f.genericCallee(md, append(slices.Clone(res.TyArgs), substs[nTrait:]...))
			}
		}
	}
	// Dictionary dispatch, or a default method the impl does not override.
	return f.genericCallee(d, substs)
}

// genericParams lists the type parameters a call supplies for cd. Trait
// methods take Self first.
func genericParams(cd *mir.Def) []string {
	params := cd.Generics.Params
	if cd.TraitMethod != "" && (len(params) == 0 || params[0] != "Self") {
		params = append([]string{"Self"}, params...)
	}
	return params
}

func (f *fnTranslator) genericCallee(cd *mir.Def, substs []mir.Ty) (string, error) {
	f.deps.Add(cd.Name)
	params := genericParams(cd)
	bounds := traits.BoundsOf(f.t.resolver.Oracle(), f.t.crate, cd)
	if len(params) == 0 && len(bounds) == 0 {
		return target.Ident(cd.Name), nil
	}
	subst := make(map[string]mir.Ty, len(params))
	for i, p := range params {
		if i < len(substs) {
			subst[p] = substs[i]
		}
	}
	parts := []string{"@" + target.Ident(cd.Name)}
	for range params {
		parts = append(parts, "_")
	}
	for _, b := range bounds {
		res, err := f.t.resolver.Resolve(b.Subst(subst), f.env)
		if err != nil {
			return "", err
		}
		f.deps.Add(res.Deps()...)
		parts = append(parts, res.Render())
	}
	return "(" + strings.Join(parts, " ") + ")", nil
}
