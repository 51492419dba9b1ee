package mir

// StmtKind enumerates statement kinds in MIR.
type StmtKind uint8

const (
	// StmtAssign represents an assignment statement.
	StmtAssign StmtKind = iota
	// StmtStorageLive marks the start of a local's storage.
	StmtStorageLive
	// StmtStorageDead marks the end of a local's storage.
	StmtStorageDead
	// StmtSetDiscriminant overwrites an enum tag in place.
	StmtSetDiscriminant
	// StmtNop represents a no-op statement.
	StmtNop
)

// Statement represents a MIR statement.
type Statement struct {
	Kind StmtKind

	Assign  AssignStmt
	Local   LocalID
	Variant int
	Place   Place
}

// AssignStmt represents an assignment statement.
type AssignStmt struct {
	Dst Place
	Src RValue
}

// OperandKind distinguishes operand types.
type OperandKind uint8

const (
	// OperandConst represents a constant operand.
	OperandConst OperandKind = iota
	// OperandCopy represents a copy operand.
	OperandCopy
	// OperandMove represents a move operand; translated like a copy.
	OperandMove
)

// Operand represents a MIR operand.
type Operand struct {
	Kind OperandKind

	Const Const
	Place Place
}

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	// ConstInt represents a signed integer constant.
	ConstInt ConstKind = iota
	// ConstUint represents an unsigned integer constant.
	ConstUint
	// ConstBool represents a bool constant.
	ConstBool
	// ConstStr represents a string constant.
	ConstStr
	// ConstUnit represents the unit value.
	ConstUnit
	// ConstItem names a top-level item, possibly generic.
	ConstItem
	// ConstPromoted refers to a promoted constant of the body.
	ConstPromoted
)

// Const represents a MIR constant.
type Const struct {
	Kind ConstKind
	Ty   Ty

	Int      int64
	Uint     uint64
	Bool     bool
	Str      string
	Item     string
	Substs   []Ty
	Promoted int
}

// RValueKind distinguishes right-hand value kinds.
type RValueKind uint8

const (
	// RValueUse represents a use of a value.
	RValueUse RValueKind = iota
	// RValueRef takes a shared or mutable reference.
	RValueRef
	// RValueUnaryOp represents a unary operation.
	RValueUnaryOp
	// RValueBinaryOp represents a binary operation.
	RValueBinaryOp
	// RValueCheckedBinaryOp yields (value, ok) for an overflow-checked operation.
	RValueCheckedBinaryOp
	// RValueCast represents a cast operation.
	RValueCast
	// RValueAggregate builds a tuple, array or ADT value.
	RValueAggregate
	// RValueLen reads the length of a slice or array.
	RValueLen
	// RValueDiscriminant reads an enum tag.
	RValueDiscriminant
)

// RValue represents a right-hand value in MIR.
type RValue struct {
	Kind RValueKind

	Use       Operand
	Ref       RefOp
	Unary     UnaryOp
	Binary    BinaryOp
	Cast      CastOp
	Aggregate Aggregate
	Place     Place
}

// RefOp represents a borrow.
type RefOp struct {
	Mut   bool
	Place Place
}

type UnOp uint8

const (
	UnNot UnOp = iota
	UnNeg
)

type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

// UnaryOp represents a unary operation.
type UnaryOp struct {
	Op      UnOp
	Operand Operand
}

// BinaryOp represents a binary operation.
type BinaryOp struct {
	Op    BinOp
	Left  Operand
	Right Operand
}

type CastKind uint8

const (
	CastMisc CastKind = iota
	CastUnsize
	CastReifyFnPointer
)

// CastOp represents a cast operation.
type CastOp struct {
	Kind  CastKind
	Value Operand
	From  Ty
	To    Ty
}

type AggregateKind uint8

const (
	AggTuple AggregateKind = iota
	AggArray
	AggAdt
)

// Aggregate represents an aggregate construction.
type Aggregate struct {
	Kind    AggregateKind
	Adt     string
	Variant int
	Elems   []Operand
}

func Copy(p Place) Operand { return Operand{Kind: OperandCopy, Place: p} }

func Move(p Place) Operand { return Operand{Kind: OperandMove, Place: p} }

func ConstOperand(c Const) Operand { return Operand{Kind: OperandConst, Const: c} }

func UintConst(v uint64, bits uint8) Const {
	return Const{Kind: ConstUint, Uint: v, Ty: Uint(bits)}
}

func IntConst(v int64, bits uint8) Const {
	return Const{Kind: ConstInt, Int: v, Ty: Int(bits)}
}

func BoolConst(v bool) Const { return Const{Kind: ConstBool, Bool: v, Ty: Bool()} }

func ItemConst(name string, substs ...Ty) Const {
	return Const{Kind: ConstItem, Item: name, Substs: substs}
}

// UsedPlace returns the place read by a non-constant operand.
func (o *Operand) UsedPlace() (Place, bool) {
	if o == nil || o.Kind == OperandConst {
		return Place{}, false
	}
	return o.Place, true
}
