// Package machine implements OakScript's stack-based virtual machine: the
// operand stack, variable table, call stack, exception-handler stack and
// built-in registry, interpreting the flat instruction stream a
// compiler.Program carries. The fetch/decode/dispatch loop (a program
// counter indexing a code byte slice, a switch over the opcode, error
// handling that first consults a handler stack before surfacing a fatal
// error to the caller) uses explicit PUSHH/POPH/THROW opcodes rather than
// CFG-driven defer/catch ranges, since OakScript has no closures to make a
// CFG worth building. The global variable table is backed by
// github.com/dolthub/swiss, repurposed here as the scope table rather than a
// user-visible dictionary type.
package machine

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/dolthub/swiss"

	"github.com/andrewtimmins/oakscript/lang/builtin"
	"github.com/andrewtimmins/oakscript/lang/compiler"
	"github.com/andrewtimmins/oakscript/lang/value"
)

// BuiltinFunc is the signature every registry entry implements: built-ins
// are installed, not special-cased, so the dispatcher never scatters
// `if name == "..."` checks through its hot path.
type BuiltinFunc func(m *Machine, args []value.Value) (value.Value, error)

// Options configures a Machine's bounded resources and I/O sinks.
type Options struct {
	MaxStack     int
	MaxCallStack int
	Stdout       io.Writer
	Trace        io.Writer
}

// DefaultOptions returns a 1024-deep operand stack and a 256-deep call
// stack.
func DefaultOptions() Options {
	return Options{MaxStack: 1024, MaxCallStack: 256, Stdout: io.Discard}
}

// Machine is a single-use stack interpreter: it executes one program to
// completion and is not safe to reuse or call into concurrently.
type Machine struct {
	code []byte
	data []string

	globals     *swiss.Map[string, value.Value]
	globalConst map[string]bool
	builtins    map[uint16]BuiltinFunc

	stack []value.Value
	calls []*Frame

	handlers []handlerFrame

	opts Options

	aborted atomic.Bool
}

// New builds a Machine ready to execute prog. The data section's raw byte
// records are decoded to strings once here rather than on every LOAD or
// PUSHSTR, since the data section is fixed for the lifetime of one
// execution.
func New(prog *compiler.Program, opts Options) *Machine {
	data := make([]string, len(prog.Data))
	for i, rec := range prog.Data {
		data[i] = string(rec)
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	return &Machine{
		code:        prog.Code,
		data:        data,
		globals:     swiss.NewMap[string, value.Value](64),
		globalConst: make(map[string]bool),
		builtins:    make(map[uint16]BuiltinFunc),
		opts:        opts,
	}
}

// RegisterBuiltin installs fn as the implementation of the built-in
// identified by id. internal/builtins.Install calls this once per table
// entry before Run begins; the registry is read-only once execution starts.
func (m *Machine) RegisterBuiltin(id uint16, fn BuiltinFunc) {
	m.builtins[id] = fn
}

// Abort cooperatively cancels an in-progress Run; the dispatch loop checks
// it between instructions.
func (m *Machine) Abort() { m.aborted.Store(true) }

// Stdout exposes the configured output sink so built-ins can share it.
func (m *Machine) Stdout() io.Writer { return m.opts.Stdout }

func (m *Machine) push(v value.Value) error {
	if len(m.stack) >= m.opts.MaxStack {
		return &StackOverflow{Limit: m.opts.MaxStack}
	}
	m.stack = append(m.stack, v)
	return nil
}

func (m *Machine) pop() value.Value {
	n := len(m.stack) - 1
	v := m.stack[n]
	m.stack = m.stack[:n]
	return v
}

func (m *Machine) top() value.Value { return m.stack[len(m.stack)-1] }

func (m *Machine) frame() *Frame {
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// Run executes the program from its first instruction to HALT, or until an
// unrecovered runtime error or abort occurs.
func (m *Machine) Run() error {
	pc := 0

	for {
		if m.aborted.Load() {
			return &Abort{}
		}
		if pc >= len(m.code) {
			return fmt.Errorf("machine: program counter ran off the end of the code section")
		}
		op := compiler.Opcode(m.code[pc])
		if m.opts.Trace != nil {
			m.traceStep(pc, op)
		}

		switch op {
		case compiler.NOP:
			pc++

		case compiler.PUSHI:
			v := int64(binary.LittleEndian.Uint64(m.code[pc+1 : pc+9]))
			if err := m.push(value.Int(v)); err != nil {
				return err
			}
			pc += 9

		case compiler.PUSHF:
			bits := binary.LittleEndian.Uint64(m.code[pc+1 : pc+9])
			if err := m.push(value.Float(math.Float64frombits(bits))); err != nil {
				return err
			}
			pc += 9

		case compiler.PUSHB:
			if err := m.push(value.Bool(m.code[pc+1] != 0)); err != nil {
				return err
			}
			pc += 2

		case compiler.PUSHNIL:
			if err := m.push(value.Nil); err != nil {
				return err
			}
			pc++

		case compiler.PUSHSTR:
			idx := binary.LittleEndian.Uint32(m.code[pc+1 : pc+5])
			if err := m.push(value.String(m.data[idx])); err != nil {
				return err
			}
			pc += 5

		case compiler.LOAD:
			name := m.data[binary.LittleEndian.Uint32(m.code[pc+1:pc+5])]
			v, ok := m.globals.Get(name)
			if !ok {
				if newPC, handled := m.raise(&NameError{Name: name}); handled {
					pc = newPC
					continue
				}
				return &NameError{Name: name}
			}
			if err := m.push(v); err != nil {
				return err
			}
			pc += 5

		case compiler.LOADLOCAL:
			name := m.data[binary.LittleEndian.Uint32(m.code[pc+1:pc+5])]
			v, ok := m.frame().locals[name]
			if !ok {
				if newPC, handled := m.raise(&NameError{Name: name}); handled {
					pc = newPC
					continue
				}
				return &NameError{Name: name}
			}
			if err := m.push(v); err != nil {
				return err
			}
			pc += 5

		case compiler.STORE:
			name := m.data[binary.LittleEndian.Uint32(m.code[pc+1:pc+5])]
			m.globals.Put(name, m.pop())
			pc += 5

		case compiler.STOREC:
			name := m.data[binary.LittleEndian.Uint32(m.code[pc+1:pc+5])]
			m.globals.Put(name, m.pop())
			m.globalConst[name] = true
			pc += 5

		case compiler.STORELOCAL:
			name := m.data[binary.LittleEndian.Uint32(m.code[pc+1:pc+5])]
			m.frame().locals[name] = m.pop()
			pc += 5

		case compiler.DELETE:
			name := m.data[binary.LittleEndian.Uint32(m.code[pc+1:pc+5])]
			m.globals.Delete(name)
			delete(m.globalConst, name)
			pc += 5

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD,
			compiler.EQ, compiler.NE, compiler.LT, compiler.LE, compiler.GT, compiler.GE,
			compiler.AND, compiler.OR, compiler.INDEX:
			y := m.pop()
			x := m.pop()
			res, err := m.binary(op, x, y)
			if err != nil {
				if newPC, handled := m.raise(err); handled {
					pc = newPC
					continue
				}
				return err
			}
			if err := m.push(res); err != nil {
				return err
			}
			pc++

		case compiler.NEG, compiler.NOT:
			x := m.pop()
			res, err := m.unary(op, x)
			if err != nil {
				if newPC, handled := m.raise(err); handled {
					pc = newPC
					continue
				}
				return err
			}
			if err := m.push(res); err != nil {
				return err
			}
			pc++

		case compiler.JUMP:
			pc = int(binary.LittleEndian.Uint32(m.code[pc+1 : pc+5]))

		case compiler.JUMPF:
			v := m.pop()
			target := int(binary.LittleEndian.Uint32(m.code[pc+1 : pc+5]))
			if !v.Truth() {
				pc = target
			} else {
				pc += 5
			}

		case compiler.JUMPT:
			v := m.pop()
			target := int(binary.LittleEndian.Uint32(m.code[pc+1 : pc+5]))
			if v.Truth() {
				pc = target
			} else {
				pc += 5
			}

		case compiler.CALL:
			id := binary.LittleEndian.Uint16(m.code[pc+1 : pc+3])
			argc := int(m.code[pc+3])
			spec, known := builtin.ByID(id)
			fn, registered := m.builtins[id]
			if !known || !registered {
				if newPC, handled := m.raise(&NameError{Name: spec.Name}); handled {
					pc = newPC
					continue
				}
				return &NameError{Name: spec.Name}
			}
			if argc < spec.MinArity || (spec.MaxArity >= 0 && argc > spec.MaxArity) {
				terr := &TypeError{Msg: fmt.Sprintf("%s expects %d-%d argument(s), got %d", spec.Name, spec.MinArity, spec.MaxArity, argc)}
				if newPC, handled := m.raise(terr); handled {
					pc = newPC
					continue
				}
				return terr
			}
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = m.pop()
			}
			res, err := fn(m, args)
			if err != nil {
				if newPC, handled := m.raise(err); handled {
					pc = newPC
					continue
				}
				return err
			}
			if err := m.push(res); err != nil {
				return err
			}
			pc += 4

		case compiler.CALLUSER:
			addr := int(binary.LittleEndian.Uint32(m.code[pc+1 : pc+5]))
			argc := int(m.code[pc+5])
			if len(m.calls) >= m.opts.MaxCallStack {
				return &CallStackOverflow{Limit: m.opts.MaxCallStack}
			}
			fr := newFrame(pc+6, len(m.stack)-argc)
			m.calls = append(m.calls, fr)
			pc = addr

		case compiler.RETURN:
			hasValue := m.code[pc+1] != 0
			var retVal value.Value
			if hasValue {
				retVal = m.pop()
			} else {
				retVal = value.Nil
			}
			fr := m.calls[len(m.calls)-1]
			m.calls = m.calls[:len(m.calls)-1]
			pc = fr.returnPC
			if err := m.push(retVal); err != nil {
				return err
			}

		case compiler.PUSHH:
			addr := int(binary.LittleEndian.Uint32(m.code[pc+1 : pc+5]))
			m.handlers = append(m.handlers, handlerFrame{catchAddr: addr, stackDepth: len(m.stack), callDepth: len(m.calls)})
			pc += 5

		case compiler.POPH:
			m.handlers = m.handlers[:len(m.handlers)-1]
			pc++

		case compiler.THROW:
			v := m.pop()
			if newPC, handled := m.raiseValue(v); handled {
				pc = newPC
				continue
			}
			return &UserThrown{Message: v.Print()}

		case compiler.PRINT:
			v := m.pop()
			fmt.Fprintln(m.opts.Stdout, v.Print())
			pc++

		case compiler.POP:
			m.pop()
			pc++

		case compiler.DUP:
			if err := m.push(m.top()); err != nil {
				return err
			}
			pc++

		case compiler.HALT:
			return nil

		default:
			return fmt.Errorf("machine: unknown opcode %d at offset %d", op, pc)
		}
	}
}

// raise offers a runtime error to the topmost handler, if any. The value a
// catch block receives is a String holding the error's message, since the
// tagged union has no dedicated exception/record variant. StackOverflow,
// CallStackOverflow and Abort never reach this function: they have no local
// recovery.
func (m *Machine) raise(err error) (int, bool) {
	return m.raiseValue(value.String(err.Error()))
}

// raiseValue is raise's primitive: v is the value bound in the catch block.
// It unwinds the operand and call stacks to the depths recorded when the
// handler was pushed handler-frame shape.
func (m *Machine) raiseValue(v value.Value) (int, bool) {
	if len(m.handlers) == 0 {
		return 0, false
	}
	h := m.handlers[len(m.handlers)-1]
	m.handlers = m.handlers[:len(m.handlers)-1]
	if len(m.stack) > h.stackDepth {
		m.stack = m.stack[:h.stackDepth]
	}
	if len(m.calls) > h.callDepth {
		m.calls = m.calls[:h.callDepth]
	}
	m.stack = append(m.stack, v)
	return h.catchAddr, true
}

func (m *Machine) binary(op compiler.Opcode, x, y value.Value) (value.Value, error) {
	switch op {
	case compiler.ADD:
		v, err := value.Add(x, y)
		return v, wrapValueErr(err)
	case compiler.SUB:
		v, err := value.Sub(x, y)
		return v, wrapValueErr(err)
	case compiler.MUL:
		v, err := value.Mul(x, y)
		return v, wrapValueErr(err)
	case compiler.DIV:
		v, err := value.Div(x, y)
		return v, wrapValueErr(err)
	case compiler.MOD:
		v, err := value.Mod(x, y)
		return v, wrapValueErr(err)
	case compiler.EQ:
		return value.Bool(value.Equal(x, y)), nil
	case compiler.NE:
		return value.Bool(!value.Equal(x, y)), nil
	case compiler.LT, compiler.LE, compiler.GT, compiler.GE:
		c, err := value.Compare(x, y)
		if err != nil {
			return value.Value{}, wrapValueErr(err)
		}
		switch op {
		case compiler.LT:
			return value.Bool(c < 0), nil
		case compiler.LE:
			return value.Bool(c <= 0), nil
		case compiler.GT:
			return value.Bool(c > 0), nil
		default:
			return value.Bool(c >= 0), nil
		}
	case compiler.AND:
		return value.Bool(x.Truth() && y.Truth()), nil
	case compiler.OR:
		return value.Bool(x.Truth() || y.Truth()), nil
	case compiler.INDEX:
		v, err := value.Index(x, y)
		return v, wrapValueErr(err)
	default:
		return value.Value{}, fmt.Errorf("machine: not a binary opcode %s", op)
	}
}

func (m *Machine) unary(op compiler.Opcode, x value.Value) (value.Value, error) {
	switch op {
	case compiler.NEG:
		v, err := value.Neg(x)
		return v, wrapValueErr(err)
	case compiler.NOT:
		return value.Not(x), nil
	default:
		return value.Value{}, fmt.Errorf("machine: not a unary opcode %s", op)
	}
}

// wrapValueErr translates lang/value's plain errors into the machine's own
// typed error kinds, keeping lang/value free of any dependency on this
// package.
func wrapValueErr(err error) error {
	switch e := err.(type) {
	case nil:
		return nil
	case *value.KindError:
		return &TypeError{Msg: e.Error()}
	case *value.DivisionByZeroError:
		return &DivisionByZero{}
	case *value.IndexErr:
		return &IndexError{Index: e.Index, Len: e.Len}
	default:
		return &TypeError{Msg: err.Error()}
	}
}

func (m *Machine) traceStep(pc int, op compiler.Opcode) {
	top := "<empty>"
	if len(m.stack) > 0 {
		top = m.stack[len(m.stack)-1].Print()
	}
	fmt.Fprintf(m.opts.Trace, "%06d %-10s stack-top=%s\n", pc, op.String(), top)
}
