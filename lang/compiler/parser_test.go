package compiler_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andrewtimmins/oakscript/lang/compiler"
	"github.com/andrewtimmins/oakscript/lang/scanner"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, src string) *compiler.Program {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	prog, err := compiler.Parse(toks)
	require.NoError(t, err)
	return prog
}

func TestCompileEndsInHalt(t *testing.T) {
	prog := mustCompile(t, `print 1 + 2`)
	require.NotEmpty(t, prog.Code)
	require.Equal(t, byte(compiler.HALT), prog.Code[len(prog.Code)-1])
}

func TestCompileArithmeticPrecedence(t *testing.T) {
	prog := mustCompile(t, `print 1 + 2 * 3`)
	require.Contains(t, string(opcodeNames(prog.Code)), "pushi,pushi,pushi,mul,add,print,halt")
}

func TestCompileStringDedup(t *testing.T) {
	prog := mustCompile(t, "print \"hi\"\nprint \"hi\"\n")
	require.Len(t, prog.Data, 1)
	require.Equal(t, "hi", string(prog.Data[0]))
}

func TestCompileIfElse(t *testing.T) {
	mustCompile(t, "if 1 < 2 then\n print 1\nelse\n print 2\nend\n")
}

func TestCompileWhileLoop(t *testing.T) {
	mustCompile(t, "x = 10\nwhile x > 0 do\n  print x\n  x = x - 1\nend\n")
}

func TestCompileForLoop(t *testing.T) {
	mustCompile(t, "for i = 1 to 5 do print i end\n")
}

func TestCompileForInRange(t *testing.T) {
	mustCompile(t, "for i in 1..5 do print i end\n")
}

func TestCompileRecursiveFunction(t *testing.T) {
	mustCompile(t, "function f(n)\n if n <= 1 then return 1 else return n * f(n-1) end\nend\nprint f(5)\n")
}

func TestCompileTryCatch(t *testing.T) {
	mustCompile(t, "try\n print 10 / 0\ncatch\n print \"caught\"\nend\n")
}

func TestCompileTryCatchFinally(t *testing.T) {
	mustCompile(t, "try\n throw \"boom\"\ncatch e\n print e\nfinally\n print \"done\"\nend\n")
}

func TestCompileSwitch(t *testing.T) {
	mustCompile(t, "x = 2\nswitch x\ncase 1\n print \"one\"\ncase 2\n print \"two\"\ndefault\n print \"other\"\nend\n")
}

func TestCompileBreakOutsideLoopIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte("break\n"), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	_, err = compiler.Parse(toks)
	require.Error(t, err)
}

func TestCompileReturnOutsideFunctionIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte("return 1\n"), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	_, err = compiler.Parse(toks)
	require.Error(t, err)
}

func TestCompileUndefinedFunctionIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte("print nope(1)\n"), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	_, err = compiler.Parse(toks)
	require.Error(t, err)
}

func TestCompileDuplicateConstIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte("const x = 1\nconst x = 2\n"), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	_, err = compiler.Parse(toks)
	require.Error(t, err)
}

// opcodeNames decodes a code buffer into a comma-separated mnemonic string
// for precedence/shape assertions, skipping over each opcode's immediate
// operand bytes.
func opcodeNames(code []byte) []byte {
	var out []byte
	pc := 0
	for pc < len(code) {
		op := compiler.Opcode(code[pc])
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, []byte(op.String())...)
		pc += 1 + compiler.OperandSize(op)
	}
	return out
}
