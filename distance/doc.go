// Package distance provides the distance metrics used to rank ground-truth candidates.
//
// Inputs are float32 vectors as they are sent to a search engine; all
// accumulation happens in float64 so that exact ranking is not distorted by
// float32 rounding on high-dimensional vectors.
//
// # Supported Metrics
//
//   - MetricL2: Euclidean distance ("l2")
//   - MetricCosine: angular distance, 1 - cosine similarity ("cosine")
//
// # Usage
//
//	m, err := distance.ParseMetric("cosine")
//	fn, err := distance.Provider(m)
//	d := fn(a, b)
package distance
