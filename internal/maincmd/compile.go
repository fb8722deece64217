package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"

	"github.com/andrewtimmins/oakscript/lang/compiler"
	"github.com/andrewtimmins/oakscript/lang/container"
	"github.com/andrewtimmins/oakscript/lang/scanner"
)

// Compile implements `oakscript compile <source> <output>`: compile
// <source> and write the resulting container to <output>.
func (c *Cmd) Compile(_ context.Context, stdio mainer.Stdio, args []string) error {
	toks, err := scanner.ScanFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}
	prog, err := compiler.Parse(toks)
	if err != nil {
		return printError(stdio, err)
	}

	f, err := os.Create(args[1])
	if err != nil {
		return printError(stdio, err)
	}
	defer f.Close()

	if err := container.Write(f, prog); err != nil {
		return printError(stdio, err)
	}
	return nil
}
