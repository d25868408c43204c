package bldsys

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// normalizePath resolves the given path segments against base. A "//" prefix
// anchors a segment at the project root, absolute segments replace the
// result so far and everything else is joined onto it.
func normalizePath(projectRoot, base string, pathList ...string) string {
	result := base

	for _, path := range pathList {
		switch {
		case strings.HasPrefix(path, "//"):
			result = filepath.Join(projectRoot, path[2:])
		case filepath.IsAbs(path):
			result = path
		default:
			result = filepath.Join(result, path)
		}
	}

	return filepath.Clean(result)
}

// simplifyPath shortens paths inside the project to the "//" notation which
// keeps log lines readable.
func simplifyPath(projectRoot, path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	if strings.HasPrefix(absPath, projectRoot+string(filepath.Separator)) {
		return "//" + absPath[len(projectRoot)+1:]
	}
	return path
}

// shellEnv builds the environment for command execution from the process
// environment and the overrides collected through setenv / prepend_path.
func (p *Project) shellEnv() []string {
	osEnv := os.Environ()
	shellEnv := make([]string, 0, len(osEnv)+len(p.envOverrides))
	for _, item := range osEnv {
		name := strings.SplitN(item, "=", 2)[0]
		if runtime.GOOS == "windows" {
			name = strings.ToUpper(name)
		}

		// skip overridden entries to avoid conflicts
		if _, present := p.envOverrides[name]; !present {
			shellEnv = append(shellEnv, item)
		}
	}

	for name, value := range p.envOverrides {
		shellEnv = append(shellEnv, name+"="+value)
	}

	return shellEnv
}

// toStarlark converts values decoded from YAML or JSON documents into their
// Starlark equivalents.
func toStarlark(value interface{}) (starlark.Value, error) {
	switch value := value.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(value), nil
	case bool:
		return starlark.Bool(value), nil
	case int:
		return starlark.MakeInt(value), nil
	case int64:
		return starlark.MakeInt64(value), nil
	case float64:
		return starlark.Float(value), nil
	case []interface{}:
		items := make([]starlark.Value, len(value))
		for idx, raw := range value {
			item, err := toStarlark(raw)
			if err != nil {
				return nil, err
			}
			items[idx] = item
		}
		return starlark.NewList(items), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(value))
		for key, raw := range value {
			item, err := toStarlark(raw)
			if err != nil {
				return nil, err
			}
			if err = dict.SetKey(starlark.String(key), item); err != nil {
				return nil, err
			}
		}
		return dict, nil
	}

	return nil, eris.Errorf("encountered unsupported type %T", value)
}

// stringsFromSequence converts a Starlark list or tuple of strings.
func stringsFromSequence(value starlark.Value, field string) ([]string, error) {
	if value == nil {
		return []string{}, nil
	}

	seq, ok := value.(starlark.Sequence)
	if !ok {
		return nil, eris.Errorf("expected %s to be a list but found %s", field, value.Type())
	}

	result := make([]string, 0, seq.Len())
	iter := seq.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		str, ok := starlark.AsString(item)
		if !ok {
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}
		result = append(result, str)
	}
	return result, nil
}
