package distance

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/blas/gonum"
)

// ErrUnsupported is the sentinel matched by ErrUnsupportedMetric.
var ErrUnsupported = errors.New("unsupported metric")

// ErrUnsupportedMetric indicates a metric name outside the supported set.
type ErrUnsupportedMetric struct {
	Name string
}

func (e *ErrUnsupportedMetric) Error() string {
	return fmt.Sprintf("unsupported metric: %q", e.Name)
}

// Is reports whether target is ErrUnsupported.
func (e *ErrUnsupportedMetric) Is(target error) bool { return target == ErrUnsupported }

// Metric represents the distance metric used for vector comparison.
type Metric string

const (
	// MetricL2 is the Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricCosine is the cosine distance, 1 minus cosine similarity, in [0, 2].
	MetricCosine Metric = "cosine"
)

func (m Metric) String() string { return string(m) }

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	return m == MetricL2 || m == MetricCosine
}

// ParseMetric resolves a metric name. Matching is case-insensitive and
// "euclidean" is accepted as an alias of "l2".
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "l2", "euclidean":
		return MetricL2, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return "", &ErrUnsupportedMetric{Name: name}
	}
}

// Func is a function type for distance calculation.
// Assumes vectors are the same length (caller's responsibility).
type Func func(a, b []float32) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return Euclidean, nil
	case MetricCosine:
		return Cosine, nil
	default:
		return nil, &ErrUnsupportedMetric{Name: string(m)}
	}
}

var blas gonum.Implementation

// Dot calculates the dot product of two vectors with float64 accumulation.
func Dot(a, b []float32) float64 {
	if len(a) == 0 {
		return 0
	}
	return blas.Dsdot(len(a), a, 1, b, 1)
}

// Norm calculates the L2 norm of v.
func Norm(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

// SquaredL2 calculates the squared Euclidean distance between two vectors.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Euclidean calculates the Euclidean (L2) distance between two vectors.
func Euclidean(a, b []float32) float64 {
	return math.Sqrt(SquaredL2(a, b))
}

// Cosine calculates 1 - cosine similarity.
// A zero-norm operand yields the maximum distance 1.0 instead of NaN.
func Cosine(a, b []float32) float64 {
	na := Norm(a)
	nb := Norm(b)
	if na == 0 || nb == 0 {
		return 1.0
	}

	d := 1 - Dot(a, b)/(na*nb)

	// Rounding can push parallel vectors slightly below zero.
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}
