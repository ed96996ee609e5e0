// Package aggregate reduces the results of a seed group to one row of means
// and sample standard deviations in a shared fixed-width report.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/signalnine/sweep/internal/result"
	"github.com/signalnine/sweep/internal/statepoint"
)

var (
	ErrEmptyGroup = errors.New("seed group is empty")
	ErrMixedGroup = errors.New("seed group members differ in more than the seed")
)

// Metric is one tracked result value.
type Metric struct {
	Name  string
	Value func(*result.Result) float64
}

// DefaultMetrics are the five metrics reported for every seed group.
var DefaultMetrics = []Metric{
	{Name: "test_acc", Value: func(r *result.Result) float64 { return r.TestAcc }},
	{Name: "test_loss", Value: func(r *result.Result) float64 { return r.TestLoss }},
	{Name: "val_acc", Value: func(r *result.Result) float64 { return r.ValAcc }},
	{Name: "val_loss", Value: func(r *result.Result) float64 { return r.ValLoss }},
	{Name: "fgsm_acc", Value: func(r *result.Result) float64 { return r.FGSMAccuracy }},
}

// Options configures a single aggregation call.
type Options struct {
	ReportPath  string
	Metrics     []Metric
	LockTimeout time.Duration
}

func (o *Options) metrics() []Metric {
	if len(o.Metrics) == 0 {
		return DefaultMetrics
	}
	return o.Metrics
}

// Member is one job of a seed group.
type Member interface {
	Statepoint() statepoint.Statepoint
	ResultPath() string
}

// Row is one aggregated report line.
type Row struct {
	Key       statepoint.Statepoint
	Summaries []Summary
}

// Fields renders the row in report column order.
func (r Row) Fields() []string {
	fields := r.Key.Values()
	for _, s := range r.Summaries {
		fields = append(fields, formatFloat(s.Mean), formatFloat(s.StdDev))
	}
	return fields
}

// Outcome describes what Aggregate did to the report.
type Outcome struct {
	Row Row
	// Appended is false when the report already held a row for this group.
	Appended bool
	Check    *ReportCheck
}

// writeMu serializes report writers within the process; the lock file
// covers other processes.
var writeMu sync.Mutex

// Aggregate reads every member's results, appends the group's row to the
// report and verifies the report afterwards. A failed check is returned as
// ErrInconsistent together with a non-nil Outcome; any other error means
// nothing was written.
func Aggregate[M Member](ctx context.Context, opts Options, members []M) (*Outcome, error) {
	if len(members) == 0 {
		return nil, ErrEmptyGroup
	}
	key := members[0].Statepoint().Key()
	for _, m := range members[1:] {
		if m.Statepoint().Key() != key {
			return nil, fmt.Errorf("%w: %v vs %v", ErrMixedGroup, key, m.Statepoint().Key())
		}
	}

	results := make([]*result.Result, 0, len(members))
	for _, m := range members {
		r, err := result.Read(m.ResultPath())
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	metrics := opts.metrics()
	row := Row{Key: key}
	for _, metric := range metrics {
		series := make([]float64, len(results))
		for i, r := range results {
			series[i] = metric.Value(r)
		}
		s, err := Summarize(metric.Name, series)
		if err != nil {
			return nil, err
		}
		row.Summaries = append(row.Summaries, s)
	}

	dir := filepath.Dir(opts.ReportPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	lockCtx := ctx
	if opts.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, opts.LockTimeout)
		defer cancel()
	}
	lock := newFileLock(dir)
	if err := lock.Acquire(lockCtx); err != nil {
		return nil, err
	}
	defer lock.Release()

	keys, err := existingKeys(opts.ReportPath)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Row: row}
	fields := row.Fields()
	if !keys[rowKey(fields)] {
		if err := appendRow(opts.ReportPath, Header(metrics), FormatLine(fields)); err != nil {
			return nil, err
		}
		keys[rowKey(fields)] = true
		out.Appended = true
	}

	check, err := CheckReport(opts.ReportPath, metrics)
	if err != nil {
		return out, err
	}
	if check.Rows != len(keys) {
		return out, fmt.Errorf("%w: report holds %d rows, expected %d", ErrInconsistent, check.Rows, len(keys))
	}
	out.Check = check
	return out, nil
}
