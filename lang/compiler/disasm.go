package compiler

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Disassemble writes a human-readable listing of prog's code section to w:
// one line per instruction, its byte offset, mnemonic and decoded
// immediate, with jump-class operands resolved to synthesized "L<n>"
// labels instead of raw offsets, targeted at this package's flat opcode
// encoding rather than a CFG-linearized one.
//
// Label numbering must not depend on Go's randomized map iteration, so the
// first pass collects every distinct jump/call target into a set and
// assigns label numbers by sorted offset (golang.org/x/exp/maps.Keys +
// golang.org/x/exp/slices.Sort).
func Disassemble(prog *Program, w io.Writer) error {
	targets := make(map[int]bool)
	walk(prog.Code, func(off int, op Opcode, operand []byte) {
		if IsJump(op) || op == CALLUSER {
			addr := int(binary.LittleEndian.Uint32(operand[:4]))
			targets[addr] = true
		}
	})

	offsets := maps.Keys(targets)
	slices.Sort(offsets)
	labelOf := make(map[int]int, len(offsets))
	for i, off := range offsets {
		labelOf[off] = i
	}

	var werr error
	walk(prog.Code, func(off int, op Opcode, operand []byte) {
		if werr != nil {
			return
		}
		if label, ok := labelOf[off]; ok {
			if _, err := fmt.Fprintf(w, "L%d:\n", label); err != nil {
				werr = err
				return
			}
		}
		_, werr = fmt.Fprintf(w, "%06d  %-10s%s\n", off, op, operandText(op, operand, prog.Data, labelOf))
	})
	return werr
}

// walk decodes code instruction by instruction, invoking fn with each
// instruction's starting offset, opcode, and raw immediate-operand bytes
// (empty for zero-operand opcodes).
func walk(code []byte, fn func(off int, op Opcode, operand []byte)) {
	pc := 0
	for pc < len(code) {
		op := Opcode(code[pc])
		size := OperandSize(op)
		operand := code[pc+1 : pc+1+size]
		fn(pc, op, operand)
		pc += 1 + size
	}
}

func operandText(op Opcode, operand []byte, data [][]byte, labelOf map[int]int) string {
	switch op {
	case PUSHI:
		return fmt.Sprintf("%d", int64(binary.LittleEndian.Uint64(operand)))
	case PUSHF:
		return fmt.Sprintf("%g", math.Float64frombits(binary.LittleEndian.Uint64(operand)))
	case PUSHB:
		return fmt.Sprintf("%t", operand[0] != 0)
	case PUSHSTR, LOAD, STORE, STOREC, DELETE, STORELOCAL, LOADLOCAL:
		idx := binary.LittleEndian.Uint32(operand)
		if int(idx) < len(data) {
			return fmt.Sprintf("%d %q", idx, string(data[idx]))
		}
		return fmt.Sprintf("%d", idx)
	case JUMP, JUMPF, JUMPT, PUSHH:
		addr := int(binary.LittleEndian.Uint32(operand))
		return fmt.Sprintf("L%d", labelOf[addr])
	case CALL:
		id := binary.LittleEndian.Uint16(operand[:2])
		argc := operand[2]
		return fmt.Sprintf("builtin#%d argc=%d", id, argc)
	case CALLUSER:
		addr := int(binary.LittleEndian.Uint32(operand[:4]))
		argc := operand[4]
		return fmt.Sprintf("L%d argc=%d", labelOf[addr], argc)
	case RETURN:
		return fmt.Sprintf("hasValue=%t", operand[0] != 0)
	default:
		return ""
	}
}
