package diag

import "fmt"

// Location points at a definition and optionally at a block and statement
// of its body. Block and Stmt are -1 when absent.
type Location struct {
	Def   string
	Block int32
	Stmt  int
}

// NoLocation is the zero location with no block or statement.
var NoLocation = Location{Block: -1, Stmt: -1}

// At returns a location inside def.
func At(def string, block int32, stmt int) Location {
	return Location{Def: def, Block: block, Stmt: stmt}
}

// InDef returns a location naming only def.
func InDef(def string) Location {
	return Location{Def: def, Block: -1, Stmt: -1}
}

func (l Location) String() string {
	s := l.Def
	if l.Block >= 0 {
		if s != "" {
			s += " "
		}
		s += fmt.Sprintf("bb%d", l.Block)
		if l.Stmt >= 0 {
			s += fmt.Sprintf("[%d]", l.Stmt)
		}
	}
	return s
}

type Note struct {
	Loc Location
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}
