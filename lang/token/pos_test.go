package token_test

import (
	"testing"

	"github.com/andrewtimmins/oakscript/lang/token"
	"github.com/stretchr/testify/require"
)

func TestPositionUnknownFilename(t *testing.T) {
	p := token.Position{Line: 7}
	require.Equal(t, "line 7", p.String())
}
