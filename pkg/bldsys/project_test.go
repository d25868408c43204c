package bldsys

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"
)

func TestNewProjectDirectories(t *testing.T) {
	root := t.TempDir()
	project := testProject(t, root, "client")

	require.Equal(t, root, project.RootDir())
	require.Equal(t, filepath.Join(root, "build"), project.BuildDir())
	require.Equal(t, filepath.Join(root, "build", "release"), project.InstallDir())
	require.Equal(t, filepath.Join(root, "build", "dist"), project.DistDir())
	require.Equal(t, filepath.Join(root, "build", "reports"), project.ReportDir())
	require.Equal(t, root, project.WorkDir())
}

func TestStepRecordsDuration(t *testing.T) {
	project := testProject(t, t.TempDir(), "client")
	ctx := testContext()

	done := project.Step(ctx, "client:build", "Build")
	time.Sleep(30 * time.Millisecond)
	done()

	elapsed, present := project.TimeReport().Get("client:build")
	require.True(t, present)
	require.GreaterOrEqual(t, elapsed, 0.025)
	require.Less(t, elapsed, 5.0)
}

func TestStepReentryOverwrites(t *testing.T) {
	project := testProject(t, t.TempDir(), "client")
	ctx := testContext()

	done := project.Step(ctx, "client:build", "Build")
	time.Sleep(30 * time.Millisecond)
	done()
	first, _ := project.TimeReport().Get("client:build")

	done = project.Step(ctx, "client:build", "Build again")
	done()
	second, _ := project.TimeReport().Get("client:build")

	require.Equal(t, []string{"client:build"}, project.TimeReport().Steps())
	require.Less(t, second, first)
}

func TestStepRecordsFailedSteps(t *testing.T) {
	project := testProject(t, t.TempDir(), "client")
	ctx := testContext()

	failing := func() error {
		defer project.Step(ctx, "client:build", "Build")()
		return eris.New("compiler exploded")
	}

	require.Error(t, failing())

	_, present := project.TimeReport().Get("client:build")
	require.True(t, present)
}

func TestChdirRestoresOnFailure(t *testing.T) {
	root := t.TempDir()
	project := testProject(t, root, "client")
	ctx := testContext()

	failing := func() error {
		restore := project.Chdir(ctx, "sub")
		defer restore()

		require.Equal(t, filepath.Join(root, "sub"), project.WorkDir())
		return eris.New("boom")
	}

	require.Error(t, failing())
	require.Equal(t, root, project.WorkDir())
}

func TestChdirResolvesProjectRootPrefix(t *testing.T) {
	root := t.TempDir()
	project := testProject(t, root, "client")
	ctx := testContext()

	restoreOuter := project.Chdir(ctx, "client")
	restoreInner := project.Chdir(ctx, "//server")
	require.Equal(t, filepath.Join(root, "server"), project.WorkDir())

	restoreInner()
	require.Equal(t, filepath.Join(root, "client"), project.WorkDir())
	restoreOuter()
	require.Equal(t, root, project.WorkDir())
}

func TestRunReportsExitStatus(t *testing.T) {
	project := testProject(t, t.TempDir(), "client")

	err := project.Run(testContext(), "exit 3")

	var cmdErr CommandFailedError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, "exit 3", cmdErr.Command)
	require.Equal(t, 3, cmdErr.ExitStatus)
}

func TestRunStreamsOutput(t *testing.T) {
	project := testProject(t, t.TempDir(), "client")
	buffer := &bytes.Buffer{}
	project.stdout = buffer

	require.NoError(t, project.Run(testContext(), "echo hello"))
	require.Equal(t, "hello\n", buffer.String())
}

func TestRunUsesWorkDir(t *testing.T) {
	root := t.TempDir()
	project := testProject(t, root, "client")
	ctx := testContext()

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0770))

	restore := project.Chdir(ctx, "sub")
	defer restore()

	require.NoError(t, project.Run(ctx, "echo ok > marker.txt"))
	require.FileExists(t, filepath.Join(sub, "marker.txt"))
}

func TestRunDryOnlyLogs(t *testing.T) {
	root := t.TempDir()
	project := testProject(t, root, "client")
	project.SetDryRun(true)

	require.NoError(t, project.Run(testContext(), "exit 1"))
	require.NoError(t, project.Run(testContext(), "echo ok > marker.txt"))
	require.NoFileExists(t, filepath.Join(root, "marker.txt"))
}
