package compiler

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/slices"
)

// label identifies a not-yet-bound (or just-bound) jump target. Labels are
// created on demand by the parser and bound exactly once; every patch site
// referencing a label is overwritten with the label's resolved absolute
// offset when it is bound. See Emitter.NewLabel / Bind.
type label int

// patch is a single placeholder site in the code buffer awaiting a label's
// resolved offset.
type patch struct {
	labelID label
	codeOff int // offset of the 4-byte placeholder within code
}

// Emitter owns the growable code buffer, the deduplicated string-data
// buffer, and the label/patch table used to back-patch forward jumps. It is
// discarded once compilation completes; only the serialized code and data
// sections survive into a Program.
//
// The growable-buffer-plus-patch-table shape favors direct single-pass
// emission over basic-block/CFG linearization, since OakScript's grammar
// drives code generation statement by statement with no intervening tree.
type Emitter struct {
	code []byte
	data [][]byte // one entry per data-section record (names and string constants)

	strIndex map[string]uint32 // dedup map: decoded string -> data index

	labels  []int // label id -> resolved code offset, or -1 if still pending
	patches []patch
}

// NewEmitter returns a ready-to-use Emitter.
func NewEmitter() *Emitter {
	return &Emitter{strIndex: make(map[string]uint32)}
}

// DataIndex returns the data-section index for s, adding a new record only
// if s has not been interned yet.
func (e *Emitter) DataIndex(s string) uint32 {
	if idx, ok := e.strIndex[s]; ok {
		return idx
	}
	idx := uint32(len(e.data))
	e.data = append(e.data, []byte(s))
	e.strIndex[s] = idx
	return idx
}

// Offset returns the current end of the code buffer -- the address the next
// emitted instruction will occupy.
func (e *Emitter) Offset() int { return len(e.code) }

// Emit appends an instruction with no immediate operand.
func (e *Emitter) Emit(op Opcode) int {
	pos := len(e.code)
	e.code = append(e.code, byte(op))
	return pos
}

// EmitU32 appends an instruction with a 4-byte little-endian immediate
// (name/data index, or a resolved jump/handler offset).
func (e *Emitter) EmitU32(op Opcode, arg uint32) int {
	pos := len(e.code)
	e.code = append(e.code, byte(op))
	e.code = binary.LittleEndian.AppendUint32(e.code, arg)
	return pos
}

// EmitI64 appends a PUSHI instruction.
func (e *Emitter) EmitI64(v int64) int {
	pos := len(e.code)
	e.code = append(e.code, byte(PUSHI))
	e.code = binary.LittleEndian.AppendUint64(e.code, uint64(v))
	return pos
}

// EmitF64 appends a PUSHF instruction.
func (e *Emitter) EmitF64(v float64) int {
	pos := len(e.code)
	e.code = append(e.code, byte(PUSHF))
	e.code = binary.LittleEndian.AppendUint64(e.code, math.Float64bits(v))
	return pos
}

// EmitByte appends an instruction with a single-byte immediate (PUSHB,
// RETURN's hasValue flag).
func (e *Emitter) EmitByte(op Opcode, b byte) int {
	pos := len(e.code)
	e.code = append(e.code, byte(op), b)
	return pos
}

// EmitCall appends a CALL builtin_id,argc instruction.
func (e *Emitter) EmitCall(builtinID uint16, argc byte) int {
	pos := len(e.code)
	e.code = append(e.code, byte(CALL))
	e.code = binary.LittleEndian.AppendUint16(e.code, builtinID)
	e.code = append(e.code, argc)
	return pos
}

// EmitCallUser appends a CALLUSER addr,argc instruction. addr is written as
// given; no patch site is recorded for it.
func (e *Emitter) EmitCallUser(addr uint32, argc byte) int {
	pos := len(e.code)
	e.code = append(e.code, byte(CALLUSER))
	e.code = binary.LittleEndian.AppendUint32(e.code, addr)
	e.code = append(e.code, argc)
	return pos
}

// PatchU32 overwrites the 4-byte operand at codeOff+1 (i.e. right after the
// opcode byte at codeOff) with arg.
func (e *Emitter) PatchU32(codeOff int, arg uint32) {
	binary.LittleEndian.PutUint32(e.code[codeOff+1:codeOff+5], arg)
}

// NewLabel creates a pending label with no resolved offset yet.
func (e *Emitter) NewLabel() label {
	e.labels = append(e.labels, -1)
	return label(len(e.labels) - 1)
}

// EmitJump appends a jump-class instruction targeting l, recording a patch
// site if l is not yet bound.
func (e *Emitter) EmitJump(op Opcode, l label) int {
	pos := e.EmitU32(op, 0)
	if off := e.labels[l]; off >= 0 {
		e.PatchU32(pos, uint32(off))
	} else {
		e.patches = append(e.patches, patch{labelID: l, codeOff: pos})
	}
	return pos
}

// Bind resolves l to the current code offset, patching every pending site
// that referenced it. Invariant: by the end of compilation
// every label must be bound and every patch site filled; UnresolvedLabels
// checks this.
func (e *Emitter) Bind(l label) {
	off := e.Offset()
	e.labels[l] = off
	kept := e.patches[:0]
	for _, p := range e.patches {
		if p.labelID == l {
			e.PatchU32(p.codeOff, uint32(off))
			continue
		}
		kept = append(kept, p)
	}
	e.patches = kept
}

// UnresolvedLabels reports whether any label was never bound -- an internal
// compiler invariant violation that should never be reachable from valid
// source, since every label created by the parser is bound before the
// enclosing construct finishes parsing.
func (e *Emitter) UnresolvedLabels() bool {
	return slices.Contains(e.labels, -1)
}

// Code returns the finished code buffer.
func (e *Emitter) Code() []byte { return e.code }

// StringData returns the finished, ordered data-section records.
func (e *Emitter) StringData() [][]byte { return e.data }
