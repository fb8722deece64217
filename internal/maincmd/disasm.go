package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"

	"github.com/andrewtimmins/oakscript/lang/compiler"
	"github.com/andrewtimmins/oakscript/lang/container"
)

// Disasm implements `oakscript disasm <path>`: print a disassembly of a
// compiled container's code section.
func (c *Cmd) Disasm(_ context.Context, stdio mainer.Stdio, args []string) error {
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}
	prog, err := container.Read(buf)
	if err != nil {
		return printError(stdio, err)
	}
	if err := compiler.Disassemble(prog, stdio.Stdout); err != nil {
		return printError(stdio, err)
	}
	return nil
}
