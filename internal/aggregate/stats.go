package aggregate

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrSingleSeed is returned when a series is too short for a sample
// standard deviation.
var ErrSingleSeed = errors.New("sample standard deviation needs at least two seeds")

// Summary is the mean and sample standard deviation of one metric.
type Summary struct {
	Name   string
	Mean   float64
	StdDev float64
}

// Summarize computes the mean and the n-1 standard deviation of xs.
func Summarize(name string, xs []float64) (Summary, error) {
	if len(xs) < 2 {
		return Summary{}, fmt.Errorf("%w: %s has %d value(s)", ErrSingleSeed, name, len(xs))
	}
	// Identical values report exactly, without summation rounding.
	if floats.Max(xs) == floats.Min(xs) {
		return Summary{Name: name, Mean: xs[0], StdDev: 0}, nil
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return Summary{Name: name, Mean: mean, StdDev: std}, nil
}
