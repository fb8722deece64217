package machine

import "fmt"

// Each runtime error kind below is a distinct Go type, not a shared struct
// with a Kind field, so a host embedding the machine can type-switch on the
// concrete error to distinguish failure classes.
type TypeError struct {
	Line int
	Msg  string
}

func (e *TypeError) Error() string { return fmt.Sprintf("line %d: type error: %s", e.Line, e.Msg) }

type DivisionByZero struct{ Line int }

func (e *DivisionByZero) Error() string { return fmt.Sprintf("line %d: division by zero", e.Line) }

type NameError struct {
	Line int
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("line %d: undefined name %q", e.Line, e.Name)
}

type IndexError struct {
	Line  int
	Index int64
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("line %d: index %d out of range [0,%d)", e.Line, e.Index, e.Len)
}

// StackOverflow and CallStackOverflow are fatal: the dispatch loop never
// offers them to a pending handler even if one exists.
type StackOverflow struct{ Limit int }

func (e *StackOverflow) Error() string { return fmt.Sprintf("operand stack overflow (limit %d)", e.Limit) }

type CallStackOverflow struct{ Limit int }

func (e *CallStackOverflow) Error() string {
	return fmt.Sprintf("call stack overflow (limit %d)", e.Limit)
}

// UserThrown wraps a script-level `throw expr` that reached the top of the
// call stack uncaught. Message is the value's print form.
type UserThrown struct {
	Line    int
	Message string
}

func (e *UserThrown) Error() string { return fmt.Sprintf("line %d: uncaught throw: %s", e.Line, e.Message) }

// Abort reports that the host-settable cooperative-cancellation flag was
// observed set; the VM unwinds its handler stack and halts without offering
// Abort to any catch block.
type Abort struct{}

func (e *Abort) Error() string { return "execution aborted" }
