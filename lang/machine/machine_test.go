package machine_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andrewtimmins/oakscript/lang/builtin"
	"github.com/andrewtimmins/oakscript/lang/compiler"
	"github.com/andrewtimmins/oakscript/lang/container"
	"github.com/andrewtimmins/oakscript/lang/machine"
	"github.com/andrewtimmins/oakscript/lang/scanner"
	"github.com/andrewtimmins/oakscript/lang/value"
	"github.com/stretchr/testify/require"
)

// runSource compiles and executes src, returning everything written via
// `print`: OakScript has no global-inspection surface, so print is the only
// observable channel a script has.
func runSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	prog, err := compiler.Parse(toks)
	require.NoError(t, err)

	var out bytes.Buffer
	opts := machine.DefaultOptions()
	opts.Stdout = &out
	m := machine.New(prog, opts)
	installTestBuiltins(m)
	require.NoError(t, m.Run())
	return out.String()
}

// installTestBuiltins wires a handful of pure built-ins so CALL-exercising
// tests don't depend on internal/builtins' filesystem-touching entries.
func installTestBuiltins(m *machine.Machine) {
	m.RegisterBuiltin(builtin.Abs, func(_ *machine.Machine, args []value.Value) (value.Value, error) {
		v, err := value.Neg(args[0])
		if err != nil {
			return value.Value{}, err
		}
		c, err := value.Compare(args[0], value.Int(0))
		if err != nil {
			return value.Value{}, err
		}
		if c < 0 {
			return v, nil
		}
		return args[0], nil
	})
	m.RegisterBuiltin(builtin.Len, func(_ *machine.Machine, args []value.Value) (value.Value, error) {
		return value.Int(int64(len(args[0].AsString()))), nil
	})
	m.RegisterBuiltin(builtin.Upper, func(_ *machine.Machine, args []value.Value) (value.Value, error) {
		return value.String(strings.ToUpper(args[0].AsString())), nil
	})
}

func TestArithmeticPrecedence(t *testing.T) {
	out := runSource(t, "print 1 + 2 * 3\n")
	require.Equal(t, "7\n", out)
}

func TestWhileLoopCountdown(t *testing.T) {
	out := runSource(t, "x = 3\nwhile x > 0 do\n  print x\n  x = x - 1\nend\n")
	require.Equal(t, "3\n2\n1\n", out)
}

func TestForLoopRange(t *testing.T) {
	out := runSource(t, "for i = 1 to 5 do print i end\n")
	require.Equal(t, "1\n2\n3\n4\n5\n", out)
}

func TestForInRangeMatchesForTo(t *testing.T) {
	a := runSource(t, "for i in 1..3 do print i end\n")
	b := runSource(t, "for i = 1 to 3 do print i end\n")
	require.Equal(t, b, a)
}

func TestRecursiveFactorial(t *testing.T) {
	out := runSource(t, `
function fact(n)
  if n <= 1 then
    return 1
  else
    return n * fact(n - 1)
  end
end
print fact(5)
`)
	require.Equal(t, "120\n", out)
}

func TestTryCatchDivisionByZero(t *testing.T) {
	out := runSource(t, `
try
  print 10 / 0
catch e
  print "caught: " + e
end
`)
	require.True(t, strings.HasPrefix(out, "caught: "))
}

func TestTryFinallyRunsOnBothPaths(t *testing.T) {
	out := runSource(t, `
try
  print "try"
finally
  print "cleanup"
end
`)
	require.Equal(t, "try\ncleanup\n", out)

	out = runSource(t, `
try
  throw "boom"
catch e
  print "caught"
finally
  print "cleanup"
end
`)
	require.Equal(t, "caught\ncleanup\n", out)
}

func TestAndOrShortCircuit(t *testing.T) {
	out := runSource(t, `
x = 0
if x != 0 and 10 / x > 0 then
  print "unreachable"
else
  print "short-circuited and"
end
`)
	require.Equal(t, "short-circuited and\n", out)

	out = runSource(t, `
x = 0
if x == 0 or 10 / x > 0 then
  print "short-circuited or"
else
  print "unreachable"
end
`)
	require.Equal(t, "short-circuited or\n", out)
}

func TestStringIntCoercion(t *testing.T) {
	out := runSource(t, `print "count: " + 42`)
	require.Equal(t, "count: 42\n", out)
}

func TestStringIndexing(t *testing.T) {
	out := runSource(t, `
s = "hello"
print s[1]
`)
	require.Equal(t, "e\n", out)
}

func TestStringIndexOutOfRangeIsCatchable(t *testing.T) {
	out := runSource(t, `
s = "hi"
try
  print s[10]
catch e
  print "index error"
end
`)
	require.Equal(t, "index error\n", out)
}

func TestUndefinedGlobalIsCatchableNameError(t *testing.T) {
	out := runSource(t, `
try
  print nope
catch e
  print "name error"
end
`)
	require.Equal(t, "name error\n", out)
}

func TestConstReassignIsCompileError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte("const x = 1\nx = 2\n"), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	_, err = compiler.Parse(toks)
	require.Error(t, err)
}

func TestBuiltinDispatch(t *testing.T) {
	out := runSource(t, `
print abs(-5)
print len("hello")
print upper("hi")
`)
	require.Equal(t, "5\n5\nHI\n", out)
}

// TestCompileContainerRunRoundTrip checks that compiling to the bytecode
// container and loading it back executes identically to running the
// freshly compiled program directly.
func TestCompileContainerRunRoundTrip(t *testing.T) {
	const src = "for i = 1 to 3 do print i * i end\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	prog, err := compiler.Parse(toks)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, container.Write(&buf, prog))
	loaded, err := container.Read(buf.Bytes())
	require.NoError(t, err)

	var direct, fromContainer bytes.Buffer
	opts1 := machine.DefaultOptions()
	opts1.Stdout = &direct
	require.NoError(t, machine.New(prog, opts1).Run())

	opts2 := machine.DefaultOptions()
	opts2.Stdout = &fromContainer
	require.NoError(t, machine.New(loaded, opts2).Run())

	require.Equal(t, direct.String(), fromContainer.String())
}

func TestCallStackOverflowIsFatal(t *testing.T) {
	src := `
function loop(n)
  return loop(n + 1)
end
try
  print loop(0)
catch e
  print "never reached by a fatal error"
end
`
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	prog, err := compiler.Parse(toks)
	require.NoError(t, err)

	var out bytes.Buffer
	opts := machine.DefaultOptions()
	opts.Stdout = &out
	m := machine.New(prog, opts)
	installTestBuiltins(m)

	err = m.Run()
	require.Error(t, err)
	var overflow *machine.CallStackOverflow
	require.ErrorAs(t, err, &overflow)
	require.Empty(t, out.String())
}
