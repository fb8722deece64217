package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andrewtimmins/oakscript/lang/scanner"
	"github.com/andrewtimmins/oakscript/lang/token"
	"github.com/stretchr/testify/require"
)

func scanString(t *testing.T, src string) []scanner.TokenAndValue {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	toks, err := scanner.ScanFile(path)
	require.NoError(t, err)
	return toks
}

func tokens(toks []scanner.TokenAndValue) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tv := range toks {
		out[i] = tv.Token
	}
	return out
}

func TestScanArithmetic(t *testing.T) {
	toks := scanString(t, "1 + 2 * 3")
	require.Equal(t, []token.Token{token.INT, token.PLUS, token.INT, token.STAR, token.INT, token.EOF}, tokens(toks))
	require.EqualValues(t, 1, toks[0].Value.Int)
	require.EqualValues(t, 2, toks[2].Value.Int)
}

func TestScanNewlineSignificant(t *testing.T) {
	toks := scanString(t, "x = 1\ny = 2\n")
	require.Equal(t, []token.Token{
		token.IDENT, token.EQ, token.INT, token.NEWLINE,
		token.IDENT, token.EQ, token.INT, token.NEWLINE,
		token.EOF,
	}, tokens(toks))
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks := scanString(t, "while x do end")
	require.Equal(t, []token.Token{token.WHILE, token.IDENT, token.DO, token.END, token.EOF}, tokens(toks))
}

func TestScanFloatAndHex(t *testing.T) {
	toks := scanString(t, "3.5 0x1F")
	require.Equal(t, []token.Token{token.FLOAT, token.INT, token.EOF}, tokens(toks))
	require.InDelta(t, 3.5, toks[0].Value.Float, 0.0001)
	require.EqualValues(t, 31, toks[1].Value.Int)
}

func TestScanStringEscapes(t *testing.T) {
	toks := scanString(t, `"hi\nthere"`)
	require.Equal(t, token.STRING, toks[0].Token)
	require.Equal(t, "hi\nthere", toks[0].Value.Str)
}

func TestScanUnterminatedString(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(path, []byte(`"no closing quote`), 0o644))
	_, err := scanner.ScanFile(path)
	require.Error(t, err)
}

func TestScanLineComment(t *testing.T) {
	toks := scanString(t, "1 // this is ignored\n+ 2")
	require.Equal(t, []token.Token{token.INT, token.NEWLINE, token.PLUS, token.INT, token.EOF}, tokens(toks))
}

func TestScanInclude(t *testing.T) {
	dir := t.TempDir()
	inc := filepath.Join(dir, "inc.oak")
	require.NoError(t, os.WriteFile(inc, []byte("print 1"), 0o644))
	main := filepath.Join(dir, "main.oak")
	require.NoError(t, os.WriteFile(main, []byte(`#include "inc.oak"`+"\nprint 2"), 0o644))

	toks, err := scanner.ScanFile(main)
	require.NoError(t, err)
	require.Equal(t, []token.Token{
		token.PRINT, token.INT, token.NEWLINE,
		token.PRINT, token.INT, token.EOF,
	}, tokens(toks))
}

func TestScanIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.oak")
	b := filepath.Join(dir, "b.oak")
	require.NoError(t, os.WriteFile(a, []byte(`#include "b.oak"`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`#include "a.oak"`), 0o644))

	_, err := scanner.ScanFile(a)
	require.Error(t, err)
}
