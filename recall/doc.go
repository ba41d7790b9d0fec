// Package recall scores approximate search results against exact ground truth.
//
// AtK compares one approximate result list with one ground-truth list and
// returns the fraction of ground-truth identifiers that were found. Summarize
// aggregates the per-trial samples.
//
//	r := recall.AtK(resultIDs, truthIDs)
//	s, err := recall.Summarize(samples)
//	fmt.Println(s) // mean=0.9500 min=0.9000 max=1.0000 std=0.0500 n=2
package recall
