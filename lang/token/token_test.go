package token_test

import (
	"testing"

	"github.com/andrewtimmins/oakscript/lang/token"
	"github.com/stretchr/testify/require"
)

func TestLookupIdent(t *testing.T) {
	cases := []struct {
		lit  string
		want token.Token
	}{
		{"if", token.IF},
		{"end", token.END},
		{"function", token.FUNCTION},
		{"include", token.INCLUDE},
		{"print", token.PRINT},
		{"notakeyword", token.IDENT},
		{"x", token.IDENT},
	}
	for _, c := range cases {
		require.Equal(t, c.want, token.LookupIdent(c.lit), c.lit)
	}
}

func TestTokenString(t *testing.T) {
	require.Equal(t, "+", token.PLUS.String())
	require.Equal(t, "while", token.WHILE.String())
	require.Equal(t, "end of file", token.EOF.String())
}

func TestPositionString(t *testing.T) {
	p := token.Position{Filename: "a.oak", Line: 3}
	require.Equal(t, "a.oak:3", p.String())
	require.True(t, p.IsValid())
	require.False(t, (token.Position{}).IsValid())
}
