package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"

	"github.com/andrewtimmins/oakscript/internal/builtins"
	"github.com/andrewtimmins/oakscript/internal/config"
	"github.com/andrewtimmins/oakscript/lang/compiler"
	"github.com/andrewtimmins/oakscript/lang/machine"
)

// machineOptions builds a machine.Options from the process configuration
// and the command's --trace flag.
func machineOptions(cfg config.Config, c *Cmd, stdio mainer.Stdio) (machine.Options, func(), error) {
	opts := machine.DefaultOptions()
	opts.Stdout = stdio.Stdout
	if cfg.MaxStack > 0 {
		opts.MaxStack = cfg.MaxStack
	}
	if cfg.MaxCallStack > 0 {
		opts.MaxCallStack = cfg.MaxCallStack
	}

	cleanup := func() {}
	switch {
	case c.Trace:
		opts.Trace = stdio.Stderr
	case cfg.TraceLogPath != "":
		f, err := os.Create(cfg.TraceLogPath)
		if err != nil {
			return opts, cleanup, err
		}
		opts.Trace = f
		cleanup = func() { f.Close() }
	}
	return opts, cleanup, nil
}

// runProgram executes prog to completion, wiring ctx cancellation to the
// machine's cooperative Abort flag.
func runProgram(ctx context.Context, prog *compiler.Program, opts machine.Options) error {
	m := machine.New(prog, opts)
	builtins.Install(m)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			m.Abort()
		case <-done:
		}
	}()
	err := m.Run()
	close(done)
	return err
}
