// Package testutil provides testing utilities for vecrecall.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random vectors and computing exact
// nearest neighbors by brute force.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UniformRangeVectors(1000, 128) // uniform [-1, 1)
//	items := testutil.Items(vecs)
//
// # Exact Search
//
//	results := testutil.BruteForceSearch(items, query, k, distance.MetricL2)
package testutil
