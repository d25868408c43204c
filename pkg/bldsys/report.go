package bldsys

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
)

// TimeReport collects the wall-clock duration of every finished build step,
// in the order the steps first completed.
type TimeReport struct {
	steps   []string
	records map[string]float64
}

func NewTimeReport() *TimeReport {
	return &TimeReport{records: make(map[string]float64)}
}

// Add records the elapsed seconds for the given step. Recording the same
// step again replaces the previous value but keeps the original column
// position.
func (r *TimeReport) Add(name string, elapsed float64) {
	if _, present := r.records[name]; !present {
		r.steps = append(r.steps, name)
	}
	r.records[name] = elapsed
}

// Steps returns the recorded step names in insertion order.
func (r *TimeReport) Steps() []string {
	return append([]string(nil), r.steps...)
}

// Get returns the recorded duration for the given step.
func (r *TimeReport) Get(name string) (float64, bool) {
	value, present := r.records[name]
	return value, present
}

// WriteCSV saves the report to the given file as a header row of step names
// and a single row of durations in seconds. Parent directories are created
// as needed and any previous report at that path is replaced.
func (r *TimeReport) WriteCSV(path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0770)
	if err != nil {
		return eris.Wrapf(err, "failed to create the report directory for %s", path)
	}

	handle, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "failed to create the report file %s", path)
	}
	defer handle.Close()

	row := make([]string, len(r.steps))
	for idx, name := range r.steps {
		row[idx] = strconv.FormatFloat(r.records[name], 'f', -1, 64)
	}

	writer := csv.NewWriter(handle)
	if err = writer.Write(r.steps); err != nil {
		return eris.Wrapf(err, "failed to write the report header to %s", path)
	}
	if err = writer.Write(row); err != nil {
		return eris.Wrapf(err, "failed to write the report row to %s", path)
	}

	writer.Flush()
	if err = writer.Error(); err != nil {
		return eris.Wrapf(err, "failed to flush the report to %s", path)
	}
	return nil
}

// FormatDuration renders a duration in seconds as a hour:minute:second
// string.
func FormatDuration(seconds float64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
	}

	remainder := math.Abs(seconds)
	hours := int(remainder / 3600)
	remainder -= float64(hours) * 3600
	minutes := int(remainder / 60)
	secs := int(remainder - float64(minutes)*60)

	return fmt.Sprintf("%s%d:%02d:%02d", sign, hours, minutes, secs)
}
