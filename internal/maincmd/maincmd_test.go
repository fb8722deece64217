package maincmd_test

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/andrewtimmins/oakscript/internal/filetest"
	"github.com/andrewtimmins/oakscript/internal/maincmd"
)

var testUpdateTokenizeTests = flag.Bool("test.update-tokenize-tests", false, "If set, replace expected tokenize test results with actual results.")

// TestTokenize drives internal/filetest's golden-file diff harness against
// the tokenize subcommand end to end.
func TestTokenize(t *testing.T) {
	for _, fi := range filetest.SourceFiles(t, "testdata", ".oak") {
		t.Run(fi.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			stdio := mainer.Stdio{Stdout: &buf, Stderr: &bytes.Buffer{}}
			c := &maincmd.Cmd{}
			c.SetArgs([]string{"tokenize", filepath.Join("testdata", fi.Name())})
			require.NoError(t, c.Validate())
			err := c.Tokenize(context.Background(), stdio, []string{filepath.Join("testdata", fi.Name())})
			require.NoError(t, err)
			filetest.DiffOutput(t, fi, buf.String(), "testdata", testUpdateTokenizeTests)
		})
	}
}

func TestRunPrintsArithmeticResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte("print 1 + 2 * 3\n"), 0o644))

	var out, errOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &errOut}
	c := &maincmd.Cmd{}
	require.NoError(t, c.Run(context.Background(), stdio, []string{path}))
	require.Equal(t, "7\n", out.String())
	require.Empty(t, errOut.String())
}

func TestCompileThenRunbytecodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "fact.oak")
	outPath := filepath.Join(dir, "fact.oakc")
	src := `
function f(n)
  if n <= 1 then return 1 else return n * f(n-1) end
end
print f(5)
`
	require.NoError(t, os.WriteFile(srcPath, []byte(src), 0o644))

	var compileOut bytes.Buffer
	stdio := mainer.Stdio{Stdout: &compileOut, Stderr: &bytes.Buffer{}}
	c := &maincmd.Cmd{}
	require.NoError(t, c.Compile(context.Background(), stdio, []string{srcPath, outPath}))

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))

	var runOut bytes.Buffer
	stdio2 := mainer.Stdio{Stdout: &runOut, Stderr: &bytes.Buffer{}}
	require.NoError(t, c.Runbytecode(context.Background(), stdio2, []string{outPath}))
	require.Equal(t, "120\n", runOut.String())
}

func TestDisasmPrintsListing(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "main.oak")
	outPath := filepath.Join(dir, "main.oakc")
	require.NoError(t, os.WriteFile(srcPath, []byte("print 1 + 2\n"), 0o644))

	c := &maincmd.Cmd{}
	require.NoError(t, c.Compile(context.Background(), mainer.Stdio{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}, []string{srcPath, outPath}))

	var out bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &bytes.Buffer{}}
	require.NoError(t, c.Disasm(context.Background(), stdio, []string{outPath}))
	require.Contains(t, out.String(), "halt")
}

func TestValidateRejectsUnknownCommand(t *testing.T) {
	c := &maincmd.Cmd{}
	c.SetArgs([]string{"frobnicate", "x"})
	require.Error(t, c.Validate())
}

func TestValidateRejectsWrongArgCount(t *testing.T) {
	c := &maincmd.Cmd{}
	c.SetArgs([]string{"compile", "onlyone.oak"})
	require.Error(t, c.Validate())
}
