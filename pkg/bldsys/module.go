package bldsys

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// ScriptDirName is the directory holding module build scripts, relative to
// the project root.
const ScriptDirName = "bld"

// scriptCtx travels with the Starlark thread executing a module script.
type scriptCtx struct {
	ctx     context.Context
	project *Project
	path    string
	module  string
}

func getScriptCtx(thread *starlark.Thread) *scriptCtx {
	return thread.Local("scriptCtx").(*scriptCtx)
}

func newScriptThread(sctx *scriptCtx) *starlark.Thread {
	thread := &starlark.Thread{
		Name: sctx.module,
		Print: func(thread *starlark.Thread, msg string) {
			log(sctx.ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	thread.SetLocal("scriptCtx", sctx)
	return thread
}

// ModuleHandle is a freshly loaded module build script.
type ModuleHandle struct {
	name    string
	path    string
	globals starlark.StringDict
}

// LoadModule loads the build script for the given module from
// <root>/bld/<name>.star. Scripts are re-read on every call, so edits
// between runs are always picked up.
func LoadModule(ctx context.Context, project *Project, name string) (*ModuleHandle, error) {
	path := filepath.Join(project.RootDir(), ScriptDirName, name+".star")
	if _, err := os.Stat(path); err != nil {
		return nil, ModuleNotFoundError{Module: name, Path: path}
	}

	sctx := &scriptCtx{ctx: ctx, project: project, path: path, module: name}
	thread := newScriptThread(sctx)

	globals, err := starlark.ExecFile(thread, path, nil, scriptBuiltins())
	if err != nil {
		return nil, eris.Wrapf(scriptError(err), "failed to load module %s", name)
	}

	// every build script has to provide at least a build entry point
	if !isCallable(globals, "build") {
		return nil, InvalidModuleError{Module: name, Func: "build"}
	}

	return &ModuleHandle{name: name, path: path, globals: globals}, nil
}

// Call invokes the entry point selected by op with the shared project
// context and the collected option values.
func (m *ModuleHandle) Call(ctx context.Context, op string, project *Project, options map[string]string) error {
	fn, ok := m.globals[op].(starlark.Callable)
	if !ok {
		return InvalidModuleError{Module: m.name, Func: op}
	}

	sctx := &scriptCtx{ctx: ctx, project: project, path: m.path, module: m.name}
	thread := newScriptThread(sctx)

	args := starlark.NewDict(len(options))
	for name, value := range options {
		if err := args.SetKey(starlark.String(name), starlark.String(value)); err != nil {
			return eris.Wrap(err, "failed to build the args dict")
		}
	}

	_, err := starlark.Call(thread, fn, starlark.Tuple{&starProject{sctx: sctx}, args}, nil)
	if err != nil {
		return scriptError(err)
	}
	return nil
}

func isCallable(globals starlark.StringDict, name string) bool {
	_, ok := globals[name].(starlark.Callable)
	return ok
}

// scriptError keeps the Starlark backtrace for failures raised by the script
// itself. Failures coming out of builtins (a failed command, for example)
// are passed through untouched so callers can still inspect them.
func scriptError(err error) error {
	var evalErr *starlark.EvalError
	if eris.As(err, &evalErr) && evalErr.Unwrap() == nil {
		return eris.New(evalErr.Backtrace())
	}
	return err
}
