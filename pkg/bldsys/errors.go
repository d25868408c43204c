package bldsys

import "fmt"

// ProjectNotConfiguredError indicates that the project root or its
// declaration file could not be loaded. Nothing has run at this point.
type ProjectNotConfiguredError struct {
	Path   string
	Reason string
}

var _ error = (*ProjectNotConfiguredError)(nil)

func (e ProjectNotConfiguredError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("project is not configured: %s", e.Reason)
	}
	return fmt.Sprintf("project at %s is not configured: %s", e.Path, e.Reason)
}

// UnknownModuleError indicates that a requested module is not listed in the
// project declaration.
type UnknownModuleError struct {
	Module string
}

var _ error = (*UnknownModuleError)(nil)

func (e UnknownModuleError) Error() string {
	return fmt.Sprintf("the module %s is not declared in the projectfile", e.Module)
}

// ModuleNotFoundError indicates that a declared module has no build script.
type ModuleNotFoundError struct {
	Module string
	Path   string
}

var _ error = (*ModuleNotFoundError)(nil)

func (e ModuleNotFoundError) Error() string {
	return fmt.Sprintf("no build script for module %s (expected %s)", e.Module, e.Path)
}

// InvalidModuleError indicates that a build script does not expose the
// requested entry point.
type InvalidModuleError struct {
	Module string
	Func   string
}

var _ error = (*InvalidModuleError)(nil)

func (e InvalidModuleError) Error() string {
	return fmt.Sprintf("module %s does not define a %q function", e.Module, e.Func)
}

// CommandFailedError indicates that a command started through Run exited
// with a nonzero status.
type CommandFailedError struct {
	Command    string
	ExitStatus int
}

var _ error = (*CommandFailedError)(nil)

func (e CommandFailedError) Error() string {
	return fmt.Sprintf("command %q failed with exit status %d", e.Command, e.ExitStatus)
}
