package machine

import "github.com/andrewtimmins/oakscript/lang/value"

// Frame is a call-site record for one active user-procedure invocation,
// matching the call frame shape: a return address, a local
// variable mapping, and the operand-stack depth recorded at call entry.
// RETURN does not compare the stack depth against entryDepth.
type Frame struct {
	returnPC   int
	locals     map[string]value.Value
	localConst map[string]bool
	entryDepth int
}

func newFrame(returnPC, entryDepth int) *Frame {
	return &Frame{
		returnPC:   returnPC,
		locals:     make(map[string]value.Value),
		localConst: make(map[string]bool),
		entryDepth: entryDepth,
	}
}

// handlerFrame is the exception-handler record: the catch
// address plus the operand- and call-stack depths to restore to when this
// handler is triggered.
type handlerFrame struct {
	catchAddr  int
	stackDepth int
	callDepth  int
}
