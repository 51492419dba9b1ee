package mir

type TermKind uint8

const (
	TermNone TermKind = iota
	TermGoto
	TermIf
	TermSwitch
	TermSwitchInt
	TermCall
	TermReturn
	TermDrop
	TermAssert
	TermResume
	TermUnreachable
)

type Terminator struct {
	Kind TermKind

	Goto      GotoTerm
	If        IfTerm
	Switch    SwitchTerm
	SwitchInt SwitchIntTerm
	Call      CallTerm
	Drop      DropTerm
	Assert    AssertTerm
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Cond Operand
	Then BlockID
	Else BlockID
}

// SwitchTerm branches on the variant of an enum place, one target per variant.
type SwitchTerm struct {
	Discr   Place
	Adt     string
	Targets []BlockID
}

// SwitchIntTerm branches on an integer or bool; the last target is the otherwise arm.
type SwitchIntTerm struct {
	Discr   Operand
	Values  []Const
	Targets []BlockID
}

// CallTerm calls Func. A NoBlockID Target marks a diverging call.
type CallTerm struct {
	Func    Operand
	Args    []Operand
	HasDest bool
	Dest    Place
	Target  BlockID
}

type DropTerm struct {
	Place  Place
	Target BlockID
}

type AssertTerm struct {
	Cond     Operand
	Expected bool
	Target   BlockID
}

// Successors lists the blocks control may flow to, in terminator order.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermGoto:
		return []BlockID{t.Goto.Target}
	case TermIf:
		return []BlockID{t.If.Then, t.If.Else}
	case TermSwitch:
		return t.Switch.Targets
	case TermSwitchInt:
		return t.SwitchInt.Targets
	case TermCall:
		if t.Call.Target == NoBlockID {
			return nil
		}
		return []BlockID{t.Call.Target}
	case TermDrop:
		return []BlockID{t.Drop.Target}
	case TermAssert:
		return []BlockID{t.Assert.Target}
	}
	return nil
}

// Diverges reports whether control never continues past the terminator.
func (t *Terminator) Diverges() bool {
	switch t.Kind {
	case TermResume, TermUnreachable:
		return true
	case TermCall:
		return t.Call.Target == NoBlockID
	}
	return false
}
