package maincmd

import (
	"context"

	"github.com/mna/mainer"

	"github.com/andrewtimmins/oakscript/internal/config"
	"github.com/andrewtimmins/oakscript/lang/compiler"
	"github.com/andrewtimmins/oakscript/lang/scanner"
)

// Run implements `oakscript run <source>`: compile in memory and execute
// without ever touching disk for the compiled form.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return printError(stdio, err)
	}

	toks, err := scanner.ScanFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}
	prog, err := compiler.Parse(toks)
	if err != nil {
		return printError(stdio, err)
	}

	opts, cleanup, err := machineOptions(cfg, c, stdio)
	if err != nil {
		return printError(stdio, err)
	}
	defer cleanup()

	if err := runProgram(ctx, prog, opts); err != nil {
		return printError(stdio, err)
	}
	return nil
}
