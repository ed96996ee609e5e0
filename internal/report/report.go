package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

const (
	avgSuffix = "_avg"
	stdSuffix = "_std_dev"
)

// Summary is the mean and sample standard deviation of one metric.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Row is one seed group read back from the aggregate report.
type Row struct {
	Params  []float64
	Metrics []Summary
}

// Report is the parsed aggregate report.
type Report struct {
	Params  []string
	Metrics []string
	Rows    []Row
}

// Parse reads the fixed-width aggregate report at path. Fields are separated
// by whitespace; the header names the parameter columns followed by an
// _avg/_std_dev pair per metric.
func Parse(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading report: %w", err)
		}
		return nil, fmt.Errorf("report %s is empty", path)
	}
	rep, err := parseHeader(strings.Fields(sc.Text()))
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", path, err)
	}
	width := len(rep.Params) + 2*len(rep.Metrics)

	for n := 2; sc.Scan(); n++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != width {
			return nil, fmt.Errorf("report %s line %d: %d fields, want %d", path, n, len(fields), width)
		}
		values := make([]float64, width)
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("report %s line %d: %w", path, n, err)
			}
			values[i] = v
		}
		row := Row{Params: values[:len(rep.Params)]}
		for i := len(rep.Params); i < width; i += 2 {
			row.Metrics = append(row.Metrics, Summary{Mean: values[i], StdDev: values[i+1]})
		}
		rep.Rows = append(rep.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return rep, nil
}

func parseHeader(cols []string) (*Report, error) {
	rep := &Report{}
	i := 0
	for ; i < len(cols) && !strings.HasSuffix(cols[i], avgSuffix); i++ {
		rep.Params = append(rep.Params, cols[i])
	}
	for ; i < len(cols); i += 2 {
		name, ok := strings.CutSuffix(cols[i], avgSuffix)
		if !ok || i+1 >= len(cols) || cols[i+1] != name+stdSuffix {
			return nil, fmt.Errorf("malformed header at column %q", cols[i])
		}
		rep.Metrics = append(rep.Metrics, name)
	}
	if len(rep.Params) == 0 || len(rep.Metrics) == 0 {
		return nil, fmt.Errorf("header has no parameter or metric columns")
	}
	return rep, nil
}

// Generate renders the aggregate report at path in the given format.
func Generate(path, format string, w io.Writer) error {
	rep, err := Parse(path)
	if err != nil {
		return err
	}
	switch format {
	case "markdown":
		return writeMarkdown(rep, w)
	case "json":
		return writeJSON(rep, w)
	case "table", "":
		return writeTable(rep, w)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s Summary) String() string {
	return fmt.Sprintf("%.4f ± %.4f", s.Mean, s.StdDev)
}

func writeTable(rep *Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	var head []string
	for _, p := range rep.Params {
		head = append(head, strings.ToUpper(p))
	}
	for _, m := range rep.Metrics {
		head = append(head, strings.ToUpper(m))
	}
	fmt.Fprintln(tw, strings.Join(head, "\t"))
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, r := range rep.Rows {
		fmt.Fprintln(tw, strings.Join(cells(r), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(rep *Report, w io.Writer) error {
	head := append(append([]string(nil), rep.Params...), rep.Metrics...)
	fmt.Fprintf(w, "| %s |\n", strings.Join(head, " | "))
	fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(head)))
	for _, r := range rep.Rows {
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells(r), " | "))
	}
	return nil
}

func cells(r Row) []string {
	var out []string
	for _, v := range r.Params {
		out = append(out, formatParam(v))
	}
	for _, s := range r.Metrics {
		out = append(out, s.String())
	}
	return out
}

type jsonRow struct {
	Params  map[string]float64 `json:"params"`
	Metrics map[string]Summary `json:"metrics"`
}

func writeJSON(rep *Report, w io.Writer) error {
	rows := make([]jsonRow, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		jr := jsonRow{Params: map[string]float64{}, Metrics: map[string]Summary{}}
		for i, name := range rep.Params {
			jr.Params[name] = r.Params[i]
		}
		for i, name := range rep.Metrics {
			jr.Metrics[name] = r.Metrics[i]
		}
		rows = append(rows, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
