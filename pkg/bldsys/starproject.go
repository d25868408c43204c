package bldsys

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// starProject exposes the shared Project to module build scripts as the
// first argument of every entry point.
type starProject struct {
	sctx *scriptCtx
}

var _ starlark.HasAttrs = (*starProject)(nil)

func (s *starProject) String() string {
	return fmt.Sprintf("<project %s>", s.sctx.project.Name())
}

func (s *starProject) Type() string { return "project" }

func (s *starProject) Freeze() {}

func (s *starProject) Truth() starlark.Bool { return starlark.True }

func (s *starProject) Hash() (uint32, error) {
	return 0, eris.New("project is not a hashable type")
}

func (s *starProject) Attr(name string) (starlark.Value, error) {
	project := s.sctx.project

	switch name {
	case "name":
		return starlark.String(project.Name()), nil
	case "version":
		return starlark.String(project.Version().String()), nil
	case "root_dir":
		return starlark.String(project.RootDir()), nil
	case "build_dir":
		return starlark.String(project.BuildDir()), nil
	case "install_dir":
		return starlark.String(project.InstallDir()), nil
	case "dist_dir":
		return starlark.String(project.DistDir()), nil
	case "report_dir":
		return starlark.String(project.ReportDir()), nil
	case "work_dir":
		return starlark.String(project.WorkDir()), nil
	case "run":
		return starlark.NewBuiltin("run", s.run), nil
	case "step":
		return starlark.NewBuiltin("step", s.step), nil
	case "chdir":
		return starlark.NewBuiltin("chdir", s.chdir), nil
	}

	return nil, nil
}

func (s *starProject) AttrNames() []string {
	return []string{
		"build_dir", "chdir", "dist_dir", "install_dir", "name", "report_dir",
		"root_dir", "run", "step", "version", "work_dir",
	}
}

// run(command) executes a shell command in the current working directory and
// fails the build script on a nonzero exit status.
func (s *starProject) run(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var command string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &command)
	if err != nil {
		return nil, err
	}

	if err = s.sctx.project.Run(s.sctx.ctx, command); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

// step(key, label, body) times the execution of body and records the result
// under key. The duration is recorded even when body fails; the failure
// still aborts the script.
func (s *starProject) step(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key, label string
	var body starlark.Callable

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "key", &key, "label", &label, "body", &body)
	if err != nil {
		return nil, err
	}

	done := s.sctx.project.Step(s.sctx.ctx, key, label)
	defer done()

	_, err = starlark.Call(thread, body, nil, nil)
	return starlark.None, err
}

// chdir(path, body) runs body with the working directory switched to path
// and restores the previous directory afterwards, even when body fails.
func (s *starProject) chdir(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	var body starlark.Callable

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path", &path, "body", &body)
	if err != nil {
		return nil, err
	}

	restore := s.sctx.project.Chdir(s.sctx.ctx, path)
	defer restore()

	_, err = starlark.Call(thread, body, nil, nil)
	return starlark.None, err
}
