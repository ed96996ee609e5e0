package aggregate

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/signalnine/sweep/internal/statepoint"
)

// FieldWidth is the minimum width every report field is padded to.
const FieldWidth = 25

// ErrInconsistent reports a report file whose contents do not match the
// rows that have been aggregated into it.
var ErrInconsistent = errors.New("report file inconsistent")

// Header returns the report column names for metrics.
func Header(metrics []Metric) []string {
	cols := append([]string(nil), statepoint.Columns...)
	for _, m := range metrics {
		cols = append(cols, m.Name+"_avg", m.Name+"_std_dev")
	}
	return cols
}

// FormatLine pads every field to FieldWidth and joins them with a space.
func FormatLine(fields []string) string {
	padded := make([]string, len(fields))
	for i, f := range fields {
		padded[i] = fmt.Sprintf("%-*s", FieldWidth, f)
	}
	return strings.Join(padded, " ") + "\n"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReportCheck describes a report file that passed CheckReport.
type ReportCheck struct {
	Lines int
	Rows  int
}

// CheckReport re-reads the report and verifies that it holds exactly one
// header followed by one well-formed row per distinct statepoint combination.
func CheckReport(path string, metrics []Metric) (*ReportCheck, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInconsistent, path)
	}
	header := Header(metrics)
	if got := strings.Fields(lines[0]); !slices.Equal(got, header) {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrInconsistent, lines[0])
	}
	keys := map[string]bool{}
	for i, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrInconsistent, i+2, len(fields), len(header))
		}
		for _, f := range fields {
			if _, err := strconv.ParseFloat(f, 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: non-numeric field %q", ErrInconsistent, i+2, f)
			}
		}
		keys[rowKey(fields)] = true
	}
	if len(lines) != len(keys)+1 {
		return nil, fmt.Errorf("%w: %d lines for %d statepoint combinations", ErrInconsistent, len(lines), len(keys))
	}
	return &ReportCheck{Lines: len(lines), Rows: len(keys)}, nil
}

// rowKey joins the statepoint columns of a row.
func rowKey(fields []string) string {
	n := len(statepoint.Columns)
	if len(fields) < n {
		n = len(fields)
	}
	return strings.Join(fields[:n], " ")
}

// existingKeys returns the statepoint keys of rows already in the report.
// A missing report yields an empty set.
func existingKeys(path string) (map[string]bool, error) {
	lines, err := readLines(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	keys := map[string]bool{}
	if len(lines) > 1 {
		for _, line := range lines[1:] {
			keys[rowKey(strings.Fields(line))] = true
		}
	}
	return keys, nil
}

// appendRow writes line to the report, creating it with the header first
// when it does not exist yet.
func appendRow(path string, header []string, line string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing report: %w", cerr)
		}
	}()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat report: %w", err)
	}
	buf := line
	if info.Size() == 0 {
		buf = FormatLine(header) + line
	}
	if _, err := f.WriteString(buf); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return lines, nil
}
