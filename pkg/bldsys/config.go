package bldsys

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// ProjectFileName is the project declaration expected at the project root.
const ProjectFileName = "projectfile.star"

// Option describes a name=value option that a project accepts on the
// command line and forwards to its build scripts.
type Option struct {
	Name    string
	Default string
	Help    string
}

// Config is the parsed, validated project declaration.
type Config struct {
	Name     string
	Version  *semver.Version
	Modules  []string
	BuildDir string
	Options  []Option
}

// HasModule reports whether the given module is declared.
func (c *Config) HasModule(name string) bool {
	for _, module := range c.Modules {
		if module == name {
			return true
		}
	}
	return false
}

// Option looks up a declared command line option by name.
func (c *Config) Option(name string) (Option, bool) {
	for _, option := range c.Options {
		if option.Name == name {
			return option, true
		}
	}
	return Option{}, false
}

// LoadConfig reads and validates the project declaration at the given root.
// The declaration is a Starlark file defining NAME, VERSION and MODULES,
// plus the optional BUILD_DIR (default "build") and OPTIONS.
func LoadConfig(ctx context.Context, rootDir string) (*Config, error) {
	info, err := os.Stat(rootDir)
	if err != nil || !info.IsDir() {
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: "project directory does not exist"}
	}

	path := filepath.Join(rootDir, ProjectFileName)
	if _, err = os.Stat(path); err != nil {
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: "no project declaration (" + ProjectFileName + ")"}
	}

	thread := &starlark.Thread{
		Name: "projectfile",
		Print: func(thread *starlark.Thread, msg string) {
			log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	predeclared := starlark.StringDict{
		"OS":     starlark.String(runtime.GOOS),
		"ARCH":   starlark.String(runtime.GOARCH),
		"getenv": starlark.NewBuiltin("getenv", envBuiltin),
	}

	globals, err := starlark.ExecFile(thread, path, nil, predeclared)
	if err != nil {
		var evalErr *starlark.EvalError
		if eris.As(err, &evalErr) {
			return nil, ProjectNotConfiguredError{Path: rootDir, Reason: evalErr.Backtrace()}
		}
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: err.Error()}
	}

	config := &Config{BuildDir: "build"}

	name, err := requiredString(globals, "NAME")
	if err != nil {
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: err.Error()}
	}
	config.Name = name

	rawVersion, err := requiredString(globals, "VERSION")
	if err != nil {
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: err.Error()}
	}
	config.Version, err = semver.NewVersion(rawVersion)
	if err != nil {
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: "invalid version: " + rawVersion}
	}

	rawModules, present := globals["MODULES"]
	if !present {
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: "no MODULES attribute in project declaration"}
	}
	config.Modules, err = stringsFromSequence(rawModules, "MODULES")
	if err != nil {
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: err.Error()}
	}
	if len(config.Modules) == 0 {
		return nil, ProjectNotConfiguredError{Path: rootDir, Reason: "at least one module must be defined"}
	}

	if rawBuildDir, present := globals["BUILD_DIR"]; present {
		buildDir, ok := starlark.AsString(rawBuildDir)
		if !ok {
			return nil, ProjectNotConfiguredError{Path: rootDir, Reason: "BUILD_DIR must be a string"}
		}
		config.BuildDir = buildDir
	}

	if rawOptions, present := globals["OPTIONS"]; present {
		config.Options, err = parseOptions(rawOptions)
		if err != nil {
			return nil, ProjectNotConfiguredError{Path: rootDir, Reason: err.Error()}
		}
	}

	return config, nil
}

func envBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &key)
	if err != nil {
		return nil, err
	}

	return starlark.String(os.Getenv(key)), nil
}

func requiredString(globals starlark.StringDict, key string) (string, error) {
	value, present := globals[key]
	if !present {
		return "", eris.Errorf("no %s attribute in project declaration", key)
	}

	str, ok := starlark.AsString(value)
	if !ok || str == "" {
		return "", eris.Errorf("%s must be a non-empty string", key)
	}
	return str, nil
}

func parseOptions(value starlark.Value) ([]Option, error) {
	seq, ok := value.(starlark.Sequence)
	if !ok {
		return nil, eris.Errorf("expected OPTIONS to be a list but found %s", value.Type())
	}

	options := make([]Option, 0, seq.Len())
	iter := seq.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		dict, ok := item.(*starlark.Dict)
		if !ok {
			return nil, eris.Errorf("expected all items in OPTIONS to be dicts but found %s", item.Type())
		}

		var option Option
		fields := []struct {
			key      string
			dest     *string
			required bool
		}{
			{"name", &option.Name, true},
			{"default", &option.Default, false},
			{"help", &option.Help, false},
		}
		for _, field := range fields {
			raw, present, err := dict.Get(starlark.String(field.key))
			if err != nil {
				return nil, err
			}
			if !present {
				if field.required {
					return nil, eris.Errorf("every OPTIONS entry needs a %q key", field.key)
				}
				continue
			}

			str, ok := starlark.AsString(raw)
			if !ok {
				return nil, eris.Errorf("OPTIONS values must be strings but %s was a %s", field.key, raw.Type())
			}
			*field.dest = str
		}

		options = append(options, option)
	}

	return options, nil
}
