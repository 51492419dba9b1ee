package emit

import (
	"fmt"
	"slices"
	"strings"

	"mirlean/internal/diag"
	"mirlean/internal/lens"
	"mirlean/internal/mir"
	"mirlean/internal/region"
	"mirlean/internal/target"
)

// loopDef is a loop lifted into its own definition. One exists per header,
// however many paths enter the loop.
type loopDef struct {
	name   string
	comp   *region.Component
	params []mir.LocalID
	state  []mir.LocalID
	tagged bool
	// outer are the borrows already held when the loop was entered.
	outer mir.LocalSet
}

func (f *fnTranslator) localNames(ids []mir.LocalID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = f.names[id]
	}
	return out
}

func (ld *loopDef) statePat(f *fnTranslator) string {
	if len(ld.state) == 0 {
		return "_"
	}
	return target.MkTuple(f.localNames(ld.state))
}

// block translates control reaching bb inside comp.
func (f *fnTranslator) block(bb mir.BlockID, comp *region.Component, st *state) (string, error) {
	if comp.IsLoop() {
		ld := f.loops[comp.Header]
		if bb == comp.Header {
			return fmt.Sprintf("return (sum.inl %s)\n", target.MkTuple(f.localNames(ld.state))), nil
		}
		if !comp.Contains(bb) {
			k := comp.ExitIndex(bb)
			if k < 0 {
				return "mzero\n", nil
			}
			payload := target.MkTuple(f.localNames(ld.state))
			if ld.tagged {
				payload = fmt.Sprintf("(%d, %s)", k, payload)
			}
			// Borrows taken inside the loop end when it is left.
			flush := f.releaseWhere(st, func(l mir.LocalID) bool { return !ld.outer.Has(l) })
			return apply(fmt.Sprintf("return (sum.inr %s)\n", payload), flush), nil
		}
	}
	if blocks, ok := comp.LoopContaining(bb); ok {
		return f.enterLoop(bb, blocks, comp, st)
	}
	return f.blockBody(bb, comp, st)
}

// enterLoop lifts the loop entered at header and continues after it.
func (f *fnTranslator) enterLoop(header mir.BlockID, blocks []mir.BlockID, comp *region.Component, st *state) (string, error) {
	ld, ok := f.loops[header]
	if !ok {
		var err error
		ld, err = f.liftLoop(header, blocks, comp, st)
		if err != nil {
			return "", err
		}
	}

	init := make([]string, len(ld.state))
	for i, l := range ld.state {
		init[i] = f.names[l]
		if !st.bound.Has(l) {
			init[i] = "default"
		}
	}
	call := fmt.Sprintf("loop %s %s", target.Paren(strings.Join(append([]string{ld.name}, f.localNames(ld.params)...), " ")), target.Paren(target.MkTuple(init)))

	after := st.clone()
	for _, l := range ld.state {
		after.bound.Add(l)
	}
	exits := ld.comp.Exits

	if !ld.tagged {
		if len(exits) == 0 {
			return fmt.Sprintf("do _ ← %s;\nmzero\n", call), nil
		}
		cont, err := f.block(exits[0], comp, after)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("do %s ← %s;\n%s", ld.statePat(f), call, cont), nil
	}

	var b strings.Builder
	b.WriteString("match k__ with\n")
	for k, exit := range exits {
		cont, err := f.block(exit, comp, after.clone())
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "| %d :=\n%s", k, cont)
	}
	b.WriteString("| _ :=\nmzero\nend\n")
	return fmt.Sprintf("do «$exit» ← %s;\n%s", call, target.Detuple("«$exit»", []string{"k__", ld.statePat(f)}, b.String())), nil
}

func (f *fnTranslator) liftLoop(header mir.BlockID, blocks []mir.BlockID, comp *region.Component, st *state) (*loopDef, error) {
	lc, err := f.an.Loop(comp, header, blocks)
	if err != nil {
		return nil, err
	}
	if len(lc.Exits) > 1 && f.t.opts.MultiExit == ExitReject {
		return nil, diag.Errorf(diag.TransMultipleLoopExits, "loop at bb%d leaves to %d blocks", header, len(lc.Exits)).At(int32(header), -1)
	}
	ld := &loopDef{
		name:   target.Ident(fmt.Sprintf("%s_loop_%d", f.def.Name, len(f.loops))),
		comp:   lc,
		params: lc.Params,
		state:  lc.State,
		tagged: len(lc.Exits) > 1,
		outer:  mir.NewLocalSet(st.alias.Active()...),
	}
	f.loops[header] = ld

	inner := &state{alias: st.alias.Clone(), bound: mir.NewLocalSet(ld.params...).Union(mir.NewLocalSet(ld.state...))}
	body, err := f.blockBody(header, lc, inner)
	if err != nil {
		return nil, err
	}

	var sig []string
	for _, p := range ld.params {
		ty := f.body.LocalTy(p)
		f.deps.AddTy(ty)
		sig = append(sig, fmt.Sprintf("(%s : %s)", f.names[p], target.Ty(ty)))
	}
	tys := make([]string, len(ld.state))
	for i, l := range ld.state {
		ty := f.body.LocalTy(l)
		f.deps.AddTy(ty)
		tys[i] = target.Ty(ty)
	}
	stateTy := target.MkTupleTy(tys)
	leave := stateTy
	if ld.tagged {
		leave = fmt.Sprintf("(nat × %s)", stateTy)
	}
	sig = append(sig, fmt.Sprintf("(state__ : %s)", stateTy))
	text := fmt.Sprintf("definition %s %s : sem (sum %s %s) :=\n%s",
		ld.name, strings.Join(sig, " "), stateTy, leave,
		target.Detuple("state__", f.localNames(ld.state), body))
	f.prelude = append(f.prelude, strings.TrimRight(text, "\n"))
	return ld, nil
}

// blockBody translates the statements and terminator of bb.
func (f *fnTranslator) blockBody(bb mir.BlockID, comp *region.Component, st *state) (string, error) {
	blk := f.body.Block(bb)
	if blk == nil {
		return "", diag.Errorf(diag.TransInvalidIR, "jump to missing block").At(int32(bb), -1)
	}
	var wraps []wrap
	for i := range blk.Stmts {
		w, err := f.statement(st, &blk.Stmts[i])
		if err != nil {
			return "", diag.Locate(err, "", int32(bb), i)
		}
		if w != nil {
			wraps = append(wraps, w)
		}
	}
	text, err := f.terminator(bb, comp, st, &blk.Term)
	if err != nil {
		return "", diag.Locate(err, "", int32(bb), -1)
	}
	for _, w := range slices.Backward(wraps) {
		text = w(text)
	}
	return text, nil
}

func (f *fnTranslator) statement(st *state, s *mir.Statement) (wrap, error) {
	switch s.Kind {
	case mir.StmtStorageLive, mir.StmtStorageDead, mir.StmtNop:
		return nil, nil
	case mir.StmtAssign:
		return f.assign(st, s.Assign.Dst, &s.Assign.Src)
	}
	return nil, unsupported("statement %s", mir.FormatStmt(s))
}

func (f *fnTranslator) assign(st *state, dst mir.Place, rv *mir.RValue) (wrap, error) {
	if rv.Kind == mir.RValueRef && rv.Ref.Mut {
		return f.borrow(st, dst, rv.Ref.Place)
	}
	if rv.Kind == mir.RValueUse && dst.IsPlainLocal() && f.body.LocalTy(dst.Local).IsMutRef() {
		if src, ok := rv.Use.UsedPlace(); ok && src.IsPlainLocal() {
			if _, active := st.alias.Lookup(src.Local); active {
				st.alias.Move(src.Local, dst.Local)
				return f.writePlace(st, dst, target.Total(f.names[src.Local]))
			}
			if f.body.LocalTy(src.Local).IsMutRef() {
				if _, err := st.alias.Borrow(dst.Local, src.Local, nil); err != nil {
					return nil, err
				}
				return f.writePlace(st, dst, target.Total(f.names[src.Local]))
			}
		}
	}
	v, err := f.rvalue(rv)
	if err != nil {
		return nil, err
	}
	return f.writePlace(st, dst, v)
}

// borrow binds dst to the value behind place and records where it must be
// written back.
func (f *fnTranslator) borrow(st *state, dst, place mir.Place) (wrap, error) {
	if !dst.IsPlainLocal() {
		return nil, unsupported("mutable borrow stored in %s", mir.FormatPlace(dst))
	}
	src, chain, err := f.lensPath(place)
	if err != nil {
		return nil, err
	}
	var flush wrap
	if parent, ok := st.alias.Lookup(src); ok {
		flush = f.writeBack(st, parent, src)
	}
	if _, err := st.alias.Borrow(dst.Local, src, chain); err != nil {
		return nil, err
	}
	st.bound.Add(dst.Local)
	d, s := f.names[dst.Local], f.names[src]
	bind := func(cont string) string {
		if chain.IsIdentity() {
			return target.Bind(d, target.Total(s), cont)
		}
		return target.Bind(d, target.Partial(chain.RenderGet(s)), cont)
	}
	if flush == nil {
		return bind, nil
	}
	return func(cont string) string { return flush(bind(cont)) }, nil
}

// writeBack stores the value held in l into the source of its entry.
func (f *fnTranslator) writeBack(st *state, e lens.Entry, l mir.LocalID) wrap {
	st.bound.Add(e.Source)
	s, v := f.names[e.Source], f.names[l]
	return func(cont string) string {
		if e.Chain.IsIdentity() {
			return target.Bind(s, target.Total(v), cont)
		}
		return target.Bind(s, target.Partial(e.Chain.RenderSet(s, v)), cont)
	}
}

// release ends the borrow held in l: its value is written back once and a
// parent borrow still in use is refreshed from the source.
func (f *fnTranslator) release(st *state, l mir.LocalID) wrap {
	e, ok := st.alias.Release(l)
	if !ok {
		return nil
	}
	back := f.writeBack(st, e, l)
	if e.Parent == mir.NoLocalID {
		return back
	}
	pe, ok := st.alias.Lookup(e.Parent)
	if !ok {
		return back
	}
	p, s := f.names[e.Parent], f.names[pe.Source]
	return func(cont string) string {
		refresh := target.Bind(p, target.Partial(pe.Chain.RenderGet(s)), cont)
		if pe.Chain.IsIdentity() {
			refresh = target.Bind(p, target.Total(s), cont)
		}
		return back(refresh)
	}
}

// releaseWhere ends the active borrows selected by keep, most recent
// first, and returns their write-backs.
func (f *fnTranslator) releaseWhere(st *state, keep func(l mir.LocalID) bool) []wrap {
	var out []wrap
	for _, l := range slices.Backward(st.alias.Active()) {
		if !keep(l) {
			continue
		}
		if w := f.release(st, l); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// argBorrows lists the active borrows that write into a &mut argument. At
// a return only those are written back: the result carries the arguments'
// final values, and any other borrow reaching a return was never dropped
// on that path.
func (f *fnTranslator) argBorrows(st *state) mir.LocalSet {
	out := mir.LocalSet{}
	for _, a := range f.body.MutRefArgs() {
		for _, l := range st.alias.Borrowers(a) {
			out.Add(l)
		}
	}
	return out
}

func apply(text string, ws []wrap) string {
	for _, w := range slices.Backward(ws) {
		text = w(text)
	}
	return text
}

func (f *fnTranslator) terminator(bb mir.BlockID, comp *region.Component, st *state, t *mir.Terminator) (string, error) {
	switch t.Kind {
	case mir.TermGoto:
		return f.block(t.Goto.Target, comp, st)
	case mir.TermAssert:
		return f.block(t.Assert.Target, comp, st)
	case mir.TermResume, mir.TermUnreachable:
		return "mzero\n", nil
	case mir.TermReturn:
		return apply(f.returnExpr(), f.releaseWhere(st, f.argBorrows(st).Has)), nil
	case mir.TermDrop:
		var w wrap
		if t.Drop.Place.IsPlainLocal() {
			w = f.release(st, t.Drop.Place.Local)
		}
		cont, err := f.block(t.Drop.Target, comp, st)
		if err != nil {
			return "", err
		}
		if w != nil {
			cont = w(cont)
		}
		return cont, nil
	case mir.TermIf:
		return f.ifTerm(comp, st, &t.If)
	case mir.TermSwitch:
		return f.switchTerm(comp, st, &t.Switch)
	case mir.TermSwitchInt:
		return f.switchIntTerm(comp, st, &t.SwitchInt)
	case mir.TermCall:
		return f.call(bb, comp, st, &t.Call)
	}
	return "", diag.Errorf(diag.TransInvalidIR, "block bb%d has no terminator", bb)
}

func (f *fnTranslator) ifTerm(comp *region.Component, st *state, t *mir.IfTerm) (string, error) {
	cond, err := f.operand(&t.Cond)
	if err != nil {
		return "", err
	}
	then, err := f.block(t.Then, comp, st.clone())
	if err != nil {
		return "", err
	}
	els, err := f.block(t.Else, comp, st.clone())
	if err != nil {
		return "", err
	}
	return target.Map(0, []target.Value{cond}, func(args []string) string {
		return fmt.Sprintf("if %s = bool.tt then\n%selse\n%s", args[0], then, els)
	}), nil
}

func (f *fnTranslator) switchTerm(comp *region.Component, st *state, t *mir.SwitchTerm) (string, error) {
	if t.Discr.Kind != mir.PlaceLocal {
		return "", unsupported("switch on static %s", t.Discr.Static)
	}
	ty, err := f.placeTy(t.Discr)
	if err != nil {
		return "", err
	}
	ty = ty.Deref()
	name := t.Adt
	if name == "" {
		name = ty.Name
	}
	d, ok := f.t.crate.Lookup(name)
	if !ok || d.Kind != mir.DefEnum {
		return "", unsupported("switch on %s, which is not an enum", name)
	}
	if len(t.Targets) != len(d.Variants) {
		return "", diag.Errorf(diag.TransInvalidIR, "switch on %s has %d targets for %d variants", name, len(t.Targets), len(d.Variants))
	}
	f.deps.Add(d.Name)
	discr, err := f.readPlace(t.Discr)
	if err != nil {
		return "", err
	}
	root := f.names[t.Discr.Root()]

	var arms strings.Builder
	for i, v := range d.Variants {
		arm, err := f.block(t.Targets[i], comp, st.clone())
		if err != nil {
			return "", err
		}
		head := []string{target.Ident(d.Name + "." + v.Name)}
		for j := range v.Fields {
			head = append(head, fmt.Sprintf("%s_%d", root, j))
		}
		fmt.Fprintf(&arms, "| %s :=\n%s", strings.Join(head, " "), arm)
	}
	return target.Map(0, []target.Value{discr}, func(args []string) string {
		return fmt.Sprintf("match %s with\n%send\n", args[0], arms.String())
	}), nil
}

func (f *fnTranslator) switchIntTerm(comp *region.Component, st *state, t *mir.SwitchIntTerm) (string, error) {
	if len(t.Targets) != len(t.Values)+1 {
		return "", diag.Errorf(diag.TransInvalidIR, "switch with %d values needs %d targets, has %d", len(t.Values), len(t.Values)+1, len(t.Targets))
	}
	discr, err := f.operand(&t.Discr)
	if err != nil {
		return "", err
	}
	var arms strings.Builder
	for i, v := range t.Values {
		arm, err := f.block(t.Targets[i], comp, st.clone())
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&arms, "| %s :=\n%s", target.Const(v), arm)
	}
	otherwise, err := f.block(t.Targets[len(t.Values)], comp, st.clone())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&arms, "| _ :=\n%s", otherwise)
	return target.Map(0, []target.Value{discr}, func(args []string) string {
		return fmt.Sprintf("match %s with\n%send\n", args[0], arms.String())
	}), nil
}
