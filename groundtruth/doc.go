// Package groundtruth maintains exact k-nearest-neighbor ground truth for a fixed
// set of query vectors while an unbounded stream of vectors is ingested.
//
// Each query owns an independent bounded max-heap of size k, so a single Update
// costs O(Q·log k) and resident memory is O(Q·k) regardless of corpus size.
// This makes it possible to verify the recall of an approximate index built
// from far more vectors than fit in memory.
//
// # Usage
//
//	tr, err := groundtruth.New(queries, 10, distance.MetricL2)
//	for _, it := range stream {
//	    if err := tr.Update(it.ID, it.Vector); err != nil { ... }
//	}
//	ids, err := tr.GroundTruth(0) // nearest first
//
// # Ties
//
// With TieBreakFirstSeen (the default) a candidate only evicts the current
// worst neighbor when its distance is strictly smaller, so among equal
// distances the earliest arrival is kept. TieBreakIdentifier ranks equal
// distances by identifier instead, which makes the final sets independent of
// ingestion order.
//
// # Concurrency
//
// A Tracker is not safe for concurrent mutation. Parallel ingestion either
// serializes Update calls behind a lock or gives each shard its own Tracker
// and combines them with Merge.
package groundtruth
