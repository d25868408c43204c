package bldsys

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

var defaultExecHandler = interp.DefaultExecHandler(2 * time.Second)

func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "mv", "rm", "mkdir":
			// always use our cross-platform implementations for these
			// operations to make sure they behave consistently
			args = append([]string{"bld"}, args...)
		}
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// runShell parses command as POSIX shell and executes it synchronously in
// the given directory with the project's environment.
func (p *Project) runShell(ctx context.Context, dir, command string, stdout, stderr io.Writer) error {
	parser := syntax.NewParser()
	script, err := parser.Parse(strings.NewReader(command), "command")
	if err != nil {
		return eris.Wrapf(err, "failed to parse command %s", command)
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(p.shellEnv()...)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, stdout, stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize the shell runner")
	}

	return runner.Run(ctx, script)
}

// Run executes the given command in the project's current working directory
// and blocks until it finishes. The command's output is passed through to
// the orchestrator's own streams unmodified. A nonzero exit status is
// reported as a CommandFailedError; there is no retry and no timeout.
func (p *Project) Run(ctx context.Context, command string) error {
	if p.dryRun {
		log(ctx).Info().Bool("command", true).Msg(command)
		return nil
	}

	log(ctx).Debug().Msgf("running %s", command)
	if err := p.runShell(ctx, p.workDir, command, p.stdout, p.stderr); err != nil {
		status := 1
		if code, ok := interp.IsExitStatus(err); ok {
			status = int(code)
		}
		return CommandFailedError{Command: command, ExitStatus: status}
	}

	return nil
}
