package bldsys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeReportKeepsInsertionOrder(t *testing.T) {
	report := NewTimeReport()
	report.Add("client:build", 2.5)
	report.Add("server:build", 3.25)
	report.Add("total", 6)

	require.Equal(t, []string{"client:build", "server:build", "total"}, report.Steps())
}

func TestTimeReportOverwritesRepeatedSteps(t *testing.T) {
	report := NewTimeReport()
	report.Add("client:build", 2.5)
	report.Add("server:build", 3)
	report.Add("client:build", 1.25)

	require.Equal(t, []string{"client:build", "server:build"}, report.Steps())

	elapsed, present := report.Get("client:build")
	require.True(t, present)
	require.Equal(t, 1.25, elapsed)
}

func TestWriteCSVCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build", "reports", "time.csv")

	report := NewTimeReport()
	report.Add("client:build", 2.5)
	report.Add("total", 6)
	require.NoError(t, report.WriteCSV(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "client:build,total\n2.5,6\n", string(content))
}

func TestWriteCSVReplacesPreviousReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "time.csv")

	first := NewTimeReport()
	first.Add("client:build", 2.5)
	require.NoError(t, first.WriteCSV(path))

	second := NewTimeReport()
	second.Add("server:build", 3)
	require.NoError(t, second.WriteCSV(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "server:build\n3\n", string(content))
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds  float64
		expected string
	}{
		{0, "0:00:00"},
		{59.9, "0:00:59"},
		{61, "0:01:01"},
		{3661, "1:01:01"},
		{-61, "-0:01:01"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.expected, FormatDuration(tc.seconds))
	}
}
