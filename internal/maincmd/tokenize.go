package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/andrewtimmins/oakscript/lang/scanner"
)

// Tokenize implements `oakscript tokenize <source>`: print the lexer's
// token stream, one token per line (a debugging aid grounded in the
// teacher's own `tokenize` subcommand, adapted to OakScript's scanner).
func (c *Cmd) Tokenize(_ context.Context, stdio mainer.Stdio, args []string) error {
	toks, err := scanner.ScanFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}
	for _, tv := range toks {
		fmt.Fprintf(stdio.Stdout, "%s: %s", tv.Value.Pos, tv.Token)
		switch {
		case tv.Token.String() == "identifier", tv.Token.String() == "int literal",
			tv.Token.String() == "float literal", tv.Token.String() == "string literal":
			fmt.Fprintf(stdio.Stdout, " %q", tv.Value.Raw)
		}
		fmt.Fprintln(stdio.Stdout)
	}
	return nil
}
