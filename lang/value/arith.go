package value

import (
	"fmt"
	"math"
)

// KindError reports an operator applied to operand kinds it does not
// support. The VM wraps this in a machine.TypeError at the call site.
type KindError struct {
	Op   string
	X, Y Kind
}

func (e *KindError) Error() string {
	if e.Y == NilKind && e.X != NilKind {
		return fmt.Sprintf("unsupported operand type for %s: %s", e.Op, e.X)
	}
	return fmt.Sprintf("unsupported operand types for %s: %s and %s", e.Op, e.X, e.Y)
}

// DivisionByZeroError reports integer or float division/modulo by zero.
type DivisionByZeroError struct{ Op string }

func (e *DivisionByZeroError) Error() string { return "division by zero" }

// numericPair reports whether x and y are both numeric (Int or Float),
// promoting to Float if either operand is Float: "arithmetic
// mixing Int and Float promotes to Float".
func numericPair(x, y Value) (xf, yf float64, bothInt bool, ok bool) {
	switch {
	case x.kind == IntKind && y.kind == IntKind:
		return 0, 0, true, true
	case x.kind == IntKind && y.kind == FloatKind:
		return float64(x.i), y.f, false, true
	case x.kind == FloatKind && y.kind == IntKind:
		return x.f, float64(y.i), false, true
	case x.kind == FloatKind && y.kind == FloatKind:
		return x.f, y.f, false, true
	default:
		return 0, 0, false, false
	}
}

// Add implements the "+" operator: numeric addition, string concatenation,
// and string-plus-anything coercion to the non-string operand's print form
//.
func Add(x, y Value) (Value, error) {
	if x.kind == StringKind || y.kind == StringKind {
		if x.kind == StringKind && y.kind == StringKind {
			return String(x.s + y.s), nil
		}
		if x.kind == StringKind {
			return String(x.s + y.Print()), nil
		}
		return String(x.Print() + y.s), nil
	}
	if _, _, bothInt, ok := numericPair(x, y); ok {
		if bothInt {
			return Int(x.i + y.i), nil
		}
		xf, yf, _, _ := numericPair(x, y)
		return Float(xf + yf), nil
	}
	return Value{}, &KindError{Op: "+", X: x.kind, Y: y.kind}
}

// Sub implements "-".
func Sub(x, y Value) (Value, error) {
	xf, yf, bothInt, ok := numericPair(x, y)
	if !ok {
		return Value{}, &KindError{Op: "-", X: x.kind, Y: y.kind}
	}
	if bothInt {
		return Int(x.i - y.i), nil
	}
	return Float(xf - yf), nil
}

// Mul implements "*". String repetition is explicitly not defined.
func Mul(x, y Value) (Value, error) {
	xf, yf, bothInt, ok := numericPair(x, y)
	if !ok {
		return Value{}, &KindError{Op: "*", X: x.kind, Y: y.kind}
	}
	if bothInt {
		return Int(x.i * y.i), nil
	}
	return Float(xf * yf), nil
}

// Div implements "/": integer division truncates toward zero (Go's native
// int division semantics), float division follows IEEE-754.
func Div(x, y Value) (Value, error) {
	xf, yf, bothInt, ok := numericPair(x, y)
	if !ok {
		return Value{}, &KindError{Op: "/", X: x.kind, Y: y.kind}
	}
	if bothInt {
		if y.i == 0 {
			return Value{}, &DivisionByZeroError{Op: "/"}
		}
		return Int(x.i / y.i), nil
	}
	if yf == 0 {
		return Value{}, &DivisionByZeroError{Op: "/"}
	}
	return Float(xf / yf), nil
}

// Mod implements "%": for integers the result follows the sign of the
// dividend (Go's native "%", which already does this); floats use math.Mod
// semantics via Go's "%"-equivalent, math.Mod.
func Mod(x, y Value) (Value, error) {
	if x.kind == IntKind && y.kind == IntKind {
		if y.i == 0 {
			return Value{}, &DivisionByZeroError{Op: "%"}
		}
		return Int(x.i % y.i), nil
	}
	xf, yf, _, ok := numericPair(x, y)
	if !ok {
		return Value{}, &KindError{Op: "%", X: x.kind, Y: y.kind}
	}
	if yf == 0 {
		return Value{}, &DivisionByZeroError{Op: "%"}
	}
	return Float(math.Mod(xf, yf)), nil
}

// Neg implements unary "-".
func Neg(x Value) (Value, error) {
	switch x.kind {
	case IntKind:
		return Int(-x.i), nil
	case FloatKind:
		return Float(-x.f), nil
	default:
		return Value{}, &KindError{Op: "unary -", X: x.kind, Y: NilKind}
	}
}

// Not implements unary "not": operates on any value via Truth, never fails.
func Not(x Value) Value {
	return Bool(!x.Truth())
}

// Compare implements the relational operators "< <= > >=". Numeric operands
// promote like Add; strings compare lexicographically by byte value
//.
func Compare(x, y Value) (int, error) {
	if x.kind == StringKind && y.kind == StringKind {
		switch {
		case x.s < y.s:
			return -1, nil
		case x.s > y.s:
			return 1, nil
		default:
			return 0, nil
		}
	}
	xf, yf, _, ok := numericPair(x, y)
	if !ok {
		return 0, &KindError{Op: "comparison", X: x.kind, Y: y.kind}
	}
	switch {
	case xf < yf:
		return -1, nil
	case xf > yf:
		return 1, nil
	default:
		return 0, nil
	}
}

// Index implements OakScript's sole indexing operation, s[i]: single-byte
// character access into a string, the only Value variant with elements (the
// tagged union has no array/list type). i must be an Int;
// out-of-range access is reported via IndexErr, not IndexError directly, to
// keep this package free of the machine package's error-kind types.
func Index(s, i Value) (Value, error) {
	if s.kind != StringKind {
		return Value{}, &KindError{Op: "index", X: s.kind, Y: i.kind}
	}
	if i.kind != IntKind {
		return Value{}, &KindError{Op: "index", X: s.kind, Y: i.kind}
	}
	if i.i < 0 || i.i >= int64(len(s.s)) {
		return Value{}, &IndexErr{Index: i.i, Len: len(s.s)}
	}
	return String(string(s.s[i.i])), nil
}

// IndexErr reports an out-of-range index; the VM wraps it in a
// machine.IndexError.
type IndexErr struct {
	Index int64
	Len   int
}

func (e *IndexErr) Error() string {
	return fmt.Sprintf("index %d out of range [0,%d)", e.Index, e.Len)
}
