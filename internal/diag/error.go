package diag

import (
	"errors"
	"fmt"
)

// Error is a located translation failure. It fails the definition it is
// attributed to and nothing else.
type Error struct {
	Code Code
	Loc  Location
	Msg  string
	Err  error
}

// Errorf builds an Error without location; callers attach one with At/In.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Loc: NoLocation, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{Code: code, Loc: NoLocation, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if loc := e.Loc.String(); loc != "" {
		return fmt.Sprintf("%s %s: %s", e.Code.ID(), loc, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code.ID(), msg)
}

func (e *Error) Unwrap() error { return e.Err }

// At returns a copy located at block/stmt, keeping an already known block.
func (e *Error) At(block int32, stmt int) *Error {
	out := *e
	if out.Loc.Block < 0 {
		out.Loc.Block = block
		out.Loc.Stmt = stmt
	}
	return &out
}

// In returns a copy attributed to def, keeping an already known def.
func (e *Error) In(def string) *Error {
	out := *e
	if out.Loc.Def == "" {
		out.Loc.Def = def
	}
	return &out
}

// Diagnostic converts the error into a bag entry.
func (e *Error) Diagnostic() Diagnostic {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return NewError(e.Code, e.Loc, msg)
}

// CodeOf extracts the code of the first Error in err's chain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return UnknownCode
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Locate attaches def and block to any Error in err's chain, or wraps a
// plain error as an invalid input failure.
func Locate(err error, def string, block int32, stmt int) *Error {
	var de *Error
	if !errors.As(err, &de) {
		de = Wrap(TransInvalidIR, err, "")
	}
	return de.In(def).At(block, stmt)
}
