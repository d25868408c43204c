package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/bldsys/bld/pkg/bldsys"
)

func writeTestProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	err := os.WriteFile(filepath.Join(root, bldsys.ProjectFileName), []byte(`
NAME = "test"
VERSION = "1.0.0"
MODULES = ["client"]
OPTIONS = [
    {"name": "target", "default": "rhel6"},
]
`), 0660)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, bldsys.ScriptDirName), 0770))
	err = os.WriteFile(filepath.Join(root, bldsys.ScriptDirName, "client.star"), []byte(`
def build(project, args):
    def body():
        project.run("echo " + args["target"] + " > target.txt")

    project.step("client:build", "Build client", body)
`), 0660)
	require.NoError(t, err)

	return root
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected int
	}{
		{"project not configured", bldsys.ProjectNotConfiguredError{Reason: "x"}, exitCannotLoadProject},
		{"unknown module", eris.Wrap(bldsys.UnknownModuleError{Module: "db"}, "requested"), exitInvalidArguments},
		{"invalid arguments", invalidArgsError{reason: "x"}, exitInvalidArguments},
		{"failed command", eris.Wrap(bldsys.CommandFailedError{Command: "make", ExitStatus: 2}, "module client failed"), exitExecutionError},
		{"generic", eris.New("boom"), exitExecutionError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, exitCode(tc.err))
		})
	}
}

func TestSelectOp(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().BoolP("clean", "c", false, "")
		cmd.Flags().BoolP("build", "b", false, "")
		cmd.Flags().BoolP("install", "i", false, "")
		cmd.Flags().BoolP("package", "p", false, "")
		return cmd
	}

	cmd := newCmd()
	op, err := selectOp(cmd)
	require.NoError(t, err)
	require.Equal(t, "build", op)

	cmd = newCmd()
	require.NoError(t, cmd.Flags().Set("clean", "true"))
	op, err = selectOp(cmd)
	require.NoError(t, err)
	require.Equal(t, "clean", op)

	cmd = newCmd()
	require.NoError(t, cmd.Flags().Set("clean", "true"))
	require.NoError(t, cmd.Flags().Set("install", "true"))
	_, err = selectOp(cmd)

	var argsErr invalidArgsError
	require.ErrorAs(t, err, &argsErr)
}

func TestRunBuildWithoutProjectHome(t *testing.T) {
	t.Setenv("PROJECT_HOME", "")

	err := runBuild(rootCmd, nil)

	var configErr bldsys.ProjectNotConfiguredError
	require.ErrorAs(t, err, &configErr)
}

func TestRunBuildEndToEnd(t *testing.T) {
	root := writeTestProject(t)
	t.Setenv("PROJECT_HOME", root)

	require.NoError(t, runBuild(rootCmd, nil))

	content, err := os.ReadFile(filepath.Join(root, "target.txt"))
	require.NoError(t, err)
	require.Equal(t, "rhel6\n", string(content))
	require.FileExists(t, filepath.Join(root, "build", "reports", "time.csv"))
}

func TestRunBuildOverridesDeclaredOptions(t *testing.T) {
	root := writeTestProject(t)
	t.Setenv("PROJECT_HOME", root)

	require.NoError(t, runBuild(rootCmd, []string{"target=win7"}))

	content, err := os.ReadFile(filepath.Join(root, "target.txt"))
	require.NoError(t, err)
	require.Equal(t, "win7\n", string(content))
}

func TestRunBuildRejectsUndeclaredOptions(t *testing.T) {
	root := writeTestProject(t)
	t.Setenv("PROJECT_HOME", root)

	err := runBuild(rootCmd, []string{"bogus=1"})

	var argsErr invalidArgsError
	require.ErrorAs(t, err, &argsErr)
}

func TestRunBuildUnknownModule(t *testing.T) {
	root := writeTestProject(t)
	t.Setenv("PROJECT_HOME", root)

	err := runBuild(rootCmd, []string{"db"})

	var unknown bldsys.UnknownModuleError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, exitInvalidArguments, exitCode(err))
}
