package bldsys

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return WithLogger(context.Background(), &logger)
}

func testConfig(modules ...string) *Config {
	return &Config{
		Name:     "test",
		Version:  semver.MustParse("0.1.0"),
		Modules:  modules,
		BuildDir: "build",
	}
}

func testProject(t *testing.T, root string, modules ...string) *Project {
	t.Helper()

	project, err := NewProject(testConfig(modules...), root)
	require.NoError(t, err)
	return project
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0770))
	require.NoError(t, os.WriteFile(path, []byte(content), 0660))
}

func TestNormalizePath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "project")

	cases := []struct {
		name     string
		base     string
		path     string
		expected string
	}{
		{"relative", filepath.Join(root, "client"), "src", filepath.Join(root, "client", "src")},
		{"parent", filepath.Join(root, "client"), "..", root},
		{"project root", filepath.Join(root, "client"), "//server", filepath.Join(root, "server")},
		{"absolute", filepath.Join(root, "client"), root, root},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, normalizePath(root, tc.base, tc.path))
		})
	}
}

func TestSimplifyPath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "project")

	require.Equal(t, "//bld/client.star", simplifyPath(root, filepath.Join(root, "bld", "client.star")))
	require.Equal(t, "/elsewhere/file", simplifyPath(root, "/elsewhere/file"))
}
