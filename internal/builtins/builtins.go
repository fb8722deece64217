// Package builtins attaches real Go implementations to the built-in ids
// declared in lang/builtin's registry: readfile/writefile/appendfile/exists
// do real os package I/O and time() calls the real clock, so every one of
// them can actually be exercised by a test. Every function here follows the
// registry's calling convention (machine.BuiltinFunc): a plain function of
// the machine and the argument slice over lang/value.Value, installed once
// at startup, never an
// `if name == "..."` special case in the dispatcher.
package builtins

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andrewtimmins/oakscript/lang/builtin"
	"github.com/andrewtimmins/oakscript/lang/machine"
	"github.com/andrewtimmins/oakscript/lang/value"
)

// Install registers every built-in against m's
// registry. internal/maincmd calls this once per Machine before Run.
func Install(m *machine.Machine) {
	m.RegisterBuiltin(builtin.Abs, abs)
	m.RegisterBuiltin(builtin.Min, min_)
	m.RegisterBuiltin(builtin.Max, max_)
	m.RegisterBuiltin(builtin.Len, length)
	m.RegisterBuiltin(builtin.Upper, upper)
	m.RegisterBuiltin(builtin.Lower, lower)
	m.RegisterBuiltin(builtin.Trim, trim)
	m.RegisterBuiltin(builtin.StartsWith, startsWith)
	m.RegisterBuiltin(builtin.EndsWith, endsWith)
	m.RegisterBuiltin(builtin.Contains, contains)
	m.RegisterBuiltin(builtin.ParseInt, parseInt)
	m.RegisterBuiltin(builtin.Exists, exists)
	m.RegisterBuiltin(builtin.ReadFile, readFile)
	m.RegisterBuiltin(builtin.WriteFile, writeFile)
	m.RegisterBuiltin(builtin.AppendFile, appendFile)
	m.RegisterBuiltin(builtin.Time, clockTime)
}

func typeErr(name string, args []value.Value) error {
	kinds := make([]string, len(args))
	for i, a := range args {
		kinds[i] = a.Kind().String()
	}
	return &machine.TypeError{Msg: name + ": unexpected argument type(s) " + strings.Join(kinds, ", ")}
}

func abs(_ *machine.Machine, args []value.Value) (value.Value, error) {
	switch args[0].Kind() {
	case value.IntKind:
		n := args[0].AsInt()
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	case value.FloatKind:
		f := args[0].AsFloat()
		if f < 0 {
			f = -f
		}
		return value.Float(f), nil
	default:
		return value.Value{}, typeErr("abs", args)
	}
}

func min_(_ *machine.Machine, args []value.Value) (value.Value, error) {
	c, err := value.Compare(args[0], args[1])
	if err != nil {
		return value.Value{}, typeErr("min", args)
	}
	if c <= 0 {
		return args[0], nil
	}
	return args[1], nil
}

func max_(_ *machine.Machine, args []value.Value) (value.Value, error) {
	c, err := value.Compare(args[0], args[1])
	if err != nil {
		return value.Value{}, typeErr("max", args)
	}
	if c >= 0 {
		return args[0], nil
	}
	return args[1], nil
}

func length(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind {
		return value.Value{}, typeErr("len", args)
	}
	return value.Int(int64(len(args[0].AsString()))), nil
}

func upper(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind {
		return value.Value{}, typeErr("upper", args)
	}
	return value.String(strings.ToUpper(args[0].AsString())), nil
}

func lower(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind {
		return value.Value{}, typeErr("lower", args)
	}
	return value.String(strings.ToLower(args[0].AsString())), nil
}

func trim(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind {
		return value.Value{}, typeErr("trim", args)
	}
	return value.String(strings.TrimSpace(args[0].AsString())), nil
}

func startsWith(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind || args[1].Kind() != value.StringKind {
		return value.Value{}, typeErr("startswith", args)
	}
	return value.Bool(strings.HasPrefix(args[0].AsString(), args[1].AsString())), nil
}

func endsWith(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind || args[1].Kind() != value.StringKind {
		return value.Value{}, typeErr("endswith", args)
	}
	return value.Bool(strings.HasSuffix(args[0].AsString(), args[1].AsString())), nil
}

func contains(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind || args[1].Kind() != value.StringKind {
		return value.Value{}, typeErr("contains", args)
	}
	return value.Bool(strings.Contains(args[0].AsString(), args[1].AsString())), nil
}

func parseInt(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind {
		return value.Value{}, typeErr("parseint", args)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(args[0].AsString()), 10, 64)
	if err != nil {
		return value.Value{}, &machine.TypeError{Msg: "parseint: not an integer: " + args[0].AsString()}
	}
	return value.Int(n), nil
}

func exists(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind {
		return value.Value{}, typeErr("exists", args)
	}
	_, err := os.Stat(args[0].AsString())
	return value.Bool(err == nil), nil
}

func readFile(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind {
		return value.Value{}, typeErr("readfile", args)
	}
	b, err := os.ReadFile(args[0].AsString())
	if err != nil {
		return value.Value{}, &machine.NameError{Name: args[0].AsString()}
	}
	return value.String(string(b)), nil
}

func writeFile(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind || args[1].Kind() != value.StringKind {
		return value.Value{}, typeErr("writefile", args)
	}
	if err := os.WriteFile(args[0].AsString(), []byte(args[1].AsString()), 0o644); err != nil {
		return value.Value{}, &machine.TypeError{Msg: "writefile: " + err.Error()}
	}
	return value.Nil, nil
}

func appendFile(_ *machine.Machine, args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.StringKind || args[1].Kind() != value.StringKind {
		return value.Value{}, typeErr("appendfile", args)
	}
	f, err := os.OpenFile(args[0].AsString(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return value.Value{}, &machine.TypeError{Msg: "appendfile: " + err.Error()}
	}
	defer f.Close()
	if _, err := f.WriteString(args[1].AsString()); err != nil {
		return value.Value{}, &machine.TypeError{Msg: "appendfile: " + err.Error()}
	}
	return value.Nil, nil
}

func clockTime(_ *machine.Machine, _ []value.Value) (value.Value, error) {
	return value.Int(time.Now().Unix()), nil
}
