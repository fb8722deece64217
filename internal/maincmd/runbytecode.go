package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"

	"github.com/andrewtimmins/oakscript/internal/config"
	"github.com/andrewtimmins/oakscript/lang/container"
)

// Runbytecode implements `oakscript runbytecode <path>`: load a container
// previously produced by `compile` and execute it.
func (c *Cmd) Runbytecode(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return printError(stdio, err)
	}

	buf, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}
	prog, err := container.Read(buf)
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
