package bldsys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
)

// scriptBuiltins is the set of globals every module build script sees.
func scriptBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"OS":           starlark.String(runtime.GOOS),
		"ARCH":         starlark.String(runtime.GOARCH),
		"info":         starlark.NewBuiltin("info", starInfo),
		"warn":         starlark.NewBuiltin("warn", starWarn),
		"error":        starlark.NewBuiltin("error", starError),
		"getenv":       starlark.NewBuiltin("getenv", starGetenv),
		"setenv":       starlark.NewBuiltin("setenv", starSetenv),
		"prepend_path": starlark.NewBuiltin("prepend_path", starPrependPath),
		"resolve_path": starlark.NewBuiltin("resolve_path", starResolvePath),
		"read_yaml":    starlark.NewBuiltin("read_yaml", starReadYaml),
		"isdir":        starlark.NewBuiltin("isdir", starIsdir),
		"isfile":       starlark.NewBuiltin("isfile", starIsfile),
		"execute":      starlark.NewBuiltin("execute", starExecute),
	}
}

func scriptLog(thread *starlark.Thread, level string, msg string) {
	sctx := getScriptCtx(thread)
	pos := thread.CallFrame(1).Pos
	path := simplifyPath(sctx.project.RootDir(), sctx.path)
	line := fmt.Sprintf("%s:%d:%d: %s", path, pos.Line, pos.Col, msg)

	if level == "warn" {
		log(sctx.ctx).Warn().Msg(line)
	} else {
		log(sctx.ctx).Info().Msg(line)
	}
}

func starInfo(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	scriptLog(thread, "info", message)
	return starlark.None, nil
}

func starWarn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	scriptLog(thread, "warn", message)
	return starlark.None, nil
}

func starError(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	return nil, eris.New(message)
}

func starGetenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &key)
	if err != nil {
		return nil, err
	}

	overrides := getScriptCtx(thread).project.envOverrides
	value, ok := overrides[key]
	if !ok {
		value = os.Getenv(key)
	}

	return starlark.String(value), nil
}

func starSetenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var value string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &key, &value)
	if err != nil {
		return nil, err
	}

	getScriptCtx(thread).project.envOverrides[key] = value
	return starlark.True, nil
}

func starPrependPath(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pathDir string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &pathDir)
	if err != nil {
		return nil, err
	}

	sctx := getScriptCtx(thread)
	overrides := sctx.project.envOverrides
	path, ok := overrides["PATH"]
	if !ok {
		path = os.Getenv("PATH")
	}

	pathDir = normalizePath(sctx.project.RootDir(), filepath.Dir(sctx.path), pathDir)
	overrides["PATH"] = pathDir + string(os.PathListSeparator) + path

	return starlark.String(overrides["PATH"]), nil
}

func starResolvePath(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) < 1 {
		return nil, eris.New("expects at least one argument")
	}

	parts := make([]string, len(args))
	for idx, path := range args {
		str, ok := starlark.AsString(path)
		if !ok {
			return nil, eris.Errorf("only accepts string arguments but argument %d was a %s", idx, path.Type())
		}
		parts[idx] = str
	}

	sctx := getScriptCtx(thread)
	return starlark.String(normalizePath(sctx.project.RootDir(), filepath.Dir(sctx.path), parts...)), nil
}

func starReadYaml(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var yamlFile string
	var yamlKey string
	var defaultValue starlark.Value

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &yamlFile, &yamlKey, &defaultValue)
	if err != nil {
		return nil, err
	}

	sctx := getScriptCtx(thread)
	yamlFile = normalizePath(sctx.project.RootDir(), filepath.Dir(sctx.path), yamlFile)

	cache := sctx.project.yamlCache
	doc, loaded := cache[yamlFile]
	if !loaded {
		content, err := os.ReadFile(yamlFile)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to open file %s", yamlFile)
		}

		if err = yaml.Unmarshal(content, &doc); err != nil {
			return nil, eris.Wrapf(err, "failed to parse file %s", yamlFile)
		}
		cache[yamlFile] = doc
	}

	value := doc
	for _, key := range strings.Split(yamlKey, ".") {
		switch node := value.(type) {
		case map[string]interface{}:
			value = node[key]
		case []interface{}:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				value = nil
			} else {
				value = node[idx]
			}
		default:
			value = nil
		}

		if value == nil {
			break
		}
	}

	if value == nil {
		if defaultValue == nil {
			return starlark.None, nil
		}
		return defaultValue, nil
	}

	return toStarlark(value)
}

func starIsdir(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var dirPath string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &dirPath)
	if err != nil {
		return nil, err
	}

	sctx := getScriptCtx(thread)
	dirPath = normalizePath(sctx.project.RootDir(), filepath.Dir(sctx.path), dirPath)
	info, err := os.Stat(dirPath)
	return starlark.Bool(err == nil && info.IsDir()), nil
}

func starIsfile(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var filePath string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &filePath)
	if err != nil {
		return nil, err
	}

	sctx := getScriptCtx(thread)
	filePath = normalizePath(sctx.project.RootDir(), filepath.Dir(sctx.path), filePath)
	info, err := os.Stat(filePath)
	return starlark.Bool(err == nil && info.Mode().IsRegular()), nil
}

// execute(command, format?, show_error?) runs a command in the current
// working directory, captures its standard output and returns it to the
// script, either as a plain string or decoded from JSON. A failing command
// yields False instead of aborting the script.
func starExecute(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var command string
	var outputFormat string
	var showError bool

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "command", &command, "format?", &outputFormat, "show_error?", &showError)
	if err != nil {
		return nil, err
	}

	if outputFormat == "" {
		outputFormat = "text"
	}
	if outputFormat != "text" && outputFormat != "json" {
		return nil, eris.Errorf("unsupported format %s", outputFormat)
	}

	sctx := getScriptCtx(thread)
	outputBuffer := strings.Builder{}
	errOut := sctx.project.stderr
	if !showError {
		errOut = nil
	}

	err = sctx.project.runShell(sctx.ctx, sctx.project.WorkDir(), command, &outputBuffer, errOut)
	if err != nil {
		if showError {
			log(sctx.ctx).Error().Err(err).Msg("shell error")
		}
		return starlark.False, nil
	}

	if outputFormat == "json" {
		var decoded interface{}
		if err = json.Unmarshal([]byte(outputBuffer.String()), &decoded); err != nil {
			return nil, eris.Wrap(err, "failed to parse command output")
		}
		return toStarlark(decoded)
	}

	return starlark.String(outputBuffer.String()), nil
}
