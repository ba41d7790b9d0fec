package recall

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptySampleSet is returned when summarizing zero samples.
var ErrEmptySampleSet = errors.New("empty sample set")

// Summary aggregates recall samples across trials.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"` // population standard deviation
}

func (s Summary) String() string {
	return fmt.Sprintf("mean=%.4f min=%.4f max=%.4f std=%.4f n=%d", s.Mean, s.Min, s.Max, s.StdDev, s.Count)
}

// Summarize returns mean, min, max and population standard deviation of samples.
func Summarize(samples []float64) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrEmptySampleSet
	}

	mean, variance := stat.PopMeanVariance(samples, nil)
	if variance < 0 {
		variance = 0
	}

	return Summary{
		Count:  len(samples),
		Mean:   mean,
		Min:    floats.Min(samples),
		Max:    floats.Max(samples),
		StdDev: math.Sqrt(variance),
	}, nil
}

// Series collects recall samples of consecutive trials.
// The zero value is ready to use. Not safe for concurrent use.
type Series struct {
	samples []float64
}

// Add appends one sample.
func (s *Series) Add(sample float64) {
	s.samples = append(s.samples, sample)
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.samples) }

// Samples returns a copy of the collected samples in insertion order.
func (s *Series) Samples() []float64 {
	return append([]float64(nil), s.samples...)
}

// Summary summarizes the collected samples.
func (s *Series) Summary() (Summary, error) {
	return Summarize(s.samples)
}
