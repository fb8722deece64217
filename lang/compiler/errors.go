package compiler

import (
	"fmt"

	"github.com/andrewtimmins/oakscript/lang/token"
)

// ParseError reports a syntactic error: an unexpected token. The parser
// does not attempt recovery; compilation halts on the first one.
type ParseError struct {
	Pos  token.Position
	Msg  string
	Tok  token.Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s (found %s)", e.Pos, e.Msg, e.Tok)
}

// EmitError reports a compile-time semantic error caught during code
// generation: an unbound label, a const reassignment, break/continue
// outside a loop, return outside a function, or a reference to an
// undefined function.
type EmitError struct {
	Pos token.Position
	Msg string
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}
