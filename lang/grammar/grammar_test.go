package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

// TestEBNF verifies that the documentation grammar in grammar.ebnf is a
// well-formed, self-consistent EBNF grammar: every referenced production is
// defined, and every production is reachable from Chunk. It does not check
// that the grammar matches lang/compiler/parser.go byte for byte; the parser
// remains the executable source of truth.
func TestEBNF(t *testing.T) {
	const filename = "grammar.ebnf"

	f, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse(filename, f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Chunk"); err != nil {
		t.Fatal(err)
	}
}
