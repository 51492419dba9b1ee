package emit

import (
	"fmt"
	"slices"
	"strings"

	"mirlean/internal/diag"
	"mirlean/internal/mir"
	"mirlean/internal/target"
	"mirlean/internal/traits"
)

// typeParams renders the explicit type parameters of a data type or trait.
func typeParams(params []string) string {
	var b strings.Builder
	for _, p := range params {
		fmt.Fprintf(&b, " (%s : Type₁)", target.Ident(p))
	}
	return b.String()
}

func fieldName(fl mir.Field, i int, positional bool) string {
	if positional {
		return fmt.Sprintf("field%d", i)
	}
	return target.Ident(fl.Name)
}

func (t *Translator) translateStruct(d *mir.Def, deps *depSet) (string, error) {
	if len(d.Variants) != 1 {
		return "", diag.Errorf(diag.TransInvalidIR, "struct with %d variants", len(d.Variants))
	}
	fields := d.Variants[0].Fields
	positional := isPositional(fields)
	var b strings.Builder
	fmt.Fprintf(&b, "structure %s%s :=\nmk ::", target.Ident(d.Name), typeParams(d.Generics.Params))
	for i, fl := range fields {
		deps.AddTy(fl.Ty)
		fmt.Fprintf(&b, " (%s : %s)", fieldName(fl, i, positional), target.Ty(fl.Ty))
	}
	return b.String(), nil
}

func (t *Translator) translateEnum(d *mir.Def, deps *depSet) (string, error) {
	name := target.Ident(d.Name)
	applied := name
	for _, p := range d.Generics.Params {
		applied += " " + target.Ident(p)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "inductive %s%s", name, typeParams(d.Generics.Params))
	fieldless := true
	for _, v := range d.Variants {
		parts := make([]string, 0, len(v.Fields)+1)
		for _, fl := range v.Fields {
			deps.AddTy(fl.Ty)
			parts = append(parts, target.Ty(fl.Ty))
		}
		if len(v.Fields) > 0 {
			fieldless = false
		}
		parts = append(parts, applied)
		fmt.Fprintf(&b, "\n| %s : %s", target.Ident(v.Name), strings.Join(parts, " → "))
	}
	if !fieldless || len(d.Variants) == 0 {
		return b.String(), nil
	}

	self := target.Paren(applied)
	var implicit string
	for _, p := range d.Generics.Params {
		implicit += fmt.Sprintf(" {%s : Type₁}", target.Ident(p))
	}
	fmt.Fprintf(&b, "\n\ndefinition %s%s : %s → isize", target.Ident(d.Name+".discr"), implicit, self)
	for i, v := range d.Variants {
		fmt.Fprintf(&b, "\n| %s := %d", target.Ident(d.Name+"."+v.Name), i)
	}
	return b.String(), nil
}

// traitParams returns the parameters of a trait structure, Self first.
func traitParams(d *mir.Def) []string {
	out := []string{"Self"}
	for _, p := range d.Generics.Params {
		if p != "Self" {
			out = append(out, p)
		}
	}
	return out
}

// supersOf lists the non-marker supertraits of ref.
func (t *Translator) supersOf(ref mir.TraitRef) []mir.TraitRef {
	var out []mir.TraitRef
	for _, sup := range t.resolver.Oracle().Supers(ref) {
		if !t.resolver.Oracle().IsMarker(sup.Trait) {
			out = append(out, sup)
		}
	}
	return out
}

func (t *Translator) translateTrait(d *mir.Def, deps *depSet) (string, error) {
	if t.resolver.Oracle().IsMarker(d.Name) {
		return "", nil
	}
	params := traitParams(d)
	self := mir.TraitRef{Trait: d.Name}
	for _, p := range params {
		self.Args = append(self.Args, mir.Param(p))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "structure %s%s", target.Ident(d.Name), typeParams(params))
	if supers := t.supersOf(self); len(supers) > 0 {
		parts := make([]string, len(supers))
		for i, sup := range supers {
			deps.Add(sup.Trait)
			parts[i] = renderTraitRef(sup)
		}
		fmt.Fprintf(&b, " extends %s", strings.Join(parts, ", "))
	}
	b.WriteString(" :=")

	wrote := false
	for _, m := range d.Methods {
		if !t.opts.methodAllowed(d.Name, m) {
			continue
		}
		md, ok := t.crate.Lookup(d.Name + "." + m)
		if !ok {
			return "", diag.Errorf(diag.TransInvalidIR, "trait %s declares %s without a signature", d.Name, m)
		}
		ty, err := methodTy(md, params, deps)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n(%s : %s)", target.Ident(m), ty)
		wrote = true
	}
	if !wrote {
		b.WriteString("\nmk ::")
	}
	return b.String(), nil
}

// methodTy renders the type of a trait method field. Parameters bound by
// the trait itself are not repeated.
func methodTy(md *mir.Def, traitParams []string, deps *depSet) (string, error) {
	sig := sigOf(md)
	ret, err := fnRetTy(sig, deps)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(sig.Params)+1)
	for _, p := range sig.Params {
		deps.AddTy(p)
		parts = append(parts, target.Ty(p))
	}
	parts = append(parts, "sem "+ret)
	ty := strings.Join(parts, " → ")

	var own []string
	for _, p := range md.Generics.Params {
		if p == "Self" || slices.Contains(traitParams, p) {
			continue
		}
		own = append(own, fmt.Sprintf("{%s : Type₁}", target.Ident(p)))
	}
	if len(own) > 0 {
		ty = fmt.Sprintf("Π %s, %s", strings.Join(own, " "), ty)
	}
	return ty, nil
}

func (t *Translator) translateImpl(d *mir.Def, deps *depSet) (string, error) {
	if d.Impl == nil {
		return "", diag.Errorf(diag.TransInvalidIR, "impl without a trait reference")
	}
	ref := d.Impl.Trait
	tr, ok := t.crate.Lookup(ref.Trait)
	if !ok || tr.Kind != mir.DefTrait {
		return "", diag.Errorf(diag.TransInvalidIR, "impl of unknown trait %s", ref.Trait)
	}
	if t.resolver.Oracle().IsMarker(tr.Name) {
		return "", nil
	}
	deps.Add(tr.Name)
	for _, a := range ref.Args {
		deps.AddTy(a)
	}

	// Method references are rendered like calls made from inside the impl.
	f := &fnTranslator{t: t, def: d, deps: deps, env: traits.EnvFor(t.resolver.Oracle(), t.crate, d)}
	own := make([]mir.Ty, len(d.Generics.Params))
	for i, p := range d.Generics.Params {
		own[i] = mir.Param(p)
	}

	var fields []string
	for _, m := range tr.Methods {
		if !t.opts.methodAllowed(tr.Name, m) {
			continue
		}
		var (
			text string
			err  error
		)
		if name, ok := d.Impl.Methods[m]; ok {
			md, found := t.crate.Lookup(name)
			if !found {
				return "", diag.Errorf(diag.TransInvalidIR, "impl %s names missing method %s", d.Name, name)
			}
			text, err = f.genericCallee(md, own)
		} else {
			md, found := t.crate.Lookup(tr.Name + "." + m)
			if !found || md.Body == nil {
				return "", diag.Errorf(diag.TransInvalidIR, "impl %s does not provide %s", d.Name, m)
			}
			text, err = f.genericCallee(md, ref.Args)
		}
		if err != nil {
			return "", err
		}
		fields = append(fields, fmt.Sprintf("%s := %s", target.Ident(m), text))
	}
	for _, sup := range t.supersOf(ref) {
		res, err := t.resolver.Resolve(sup, f.env)
		if err != nil {
			return "", err
		}
		deps.Add(res.Deps()...)
		fields = append(fields, fmt.Sprintf("to_%s := %s", target.Short(sup.Trait), res.Render()))
	}

	tys, dicts := implBinders(d, f.env, deps)
	head := append([]string{target.Ident(d.Name)}, tys...)
	head = append(head, dicts...)
	body := fmt.Sprintf("⦃ %s ⦄", renderTraitRef(ref))
	if len(fields) > 0 {
		body = fmt.Sprintf("⦃ %s,\n  %s ⦄", renderTraitRef(ref), strings.Join(fields, ",\n  "))
	}
	return fmt.Sprintf("definition %s : %s :=\n%s", strings.Join(head, " "), renderTraitRef(ref), body), nil
}

func implBinders(d *mir.Def, env traits.Env, deps *depSet) (tys, dicts []string) {
	for _, p := range d.Generics.Params {
		tys = append(tys, fmt.Sprintf("{%s : Type₁}", target.Ident(p)))
	}
	for _, b := range env.Bounds {
		deps.Add(b.Ref.Trait)
		dicts = append(dicts, fmt.Sprintf("[%s : %s]", b.Dict, renderTraitRef(b.Ref)))
	}
	return tys, dicts
}

func (t *Translator) translateAlias(d *mir.Def, deps *depSet) (string, error) {
	deps.AddTy(d.Alias)
	return fmt.Sprintf("definition %s%s : Type₁ :=\n%s", target.Ident(d.Name), typeParams(d.Generics.Params), target.Ty(d.Alias)), nil
}
