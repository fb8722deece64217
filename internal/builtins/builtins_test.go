package builtins_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrewtimmins/oakscript/internal/builtins"
	"github.com/andrewtimmins/oakscript/lang/compiler"
	"github.com/andrewtimmins/oakscript/lang/machine"
	"github.com/andrewtimmins/oakscript/lang/scanner"
	"github.com/stretchr/testify/require"
)

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
	builtins.Install(m)
	require.NoError(t, m.Run())
	return out.String()
}

func TestStringBuiltins(t *testing.T) {
	out := runSource(t, `
print upper("hi")
print lower("HI")
print trim("  hi  ")
print startswith("hello", "he")
print endswith("hello", "lo")
print contains("hello", "ell")
print len("hello")
`)
	require.Equal(t, "HI\nhi\nhi\ntrue\ntrue\ntrue\n5\n", out)
}

func TestNumericBuiltins(t *testing.T) {
	out := runSource(t, `
print abs(-5)
print abs(5)
print min(3, 7)
print max(3, 7)
print parseint("42")
`)
	require.Equal(t, "5\n5\n3\n7\n42\n", out)
}

func TestFileBuiltinsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	path = filepath.ToSlash(path)

	out := runSource(t, `
writefile("`+path+`", "hello")
appendfile("`+path+`", " world")
print exists("`+path+`")
print readfile("`+path+`")
`)
	require.Equal(t, "true\nhello world\n", out)
}

func TestTimeBuiltinReturnsPositiveInt(t *testing.T) {
	out := runSource(t, `print time() > 0`)
	require.Equal(t, "true\n", out)
}
