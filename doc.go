// Package vecrecall measures the recall of an approximate vector search system
// while that system is being built from a large stream of vectors.
//
// Exact ground truth is tracked incrementally: for each of Q fixed query
// vectors the true k nearest neighbors seen so far are kept in a bounded heap,
// so memory is O(Q·k) no matter how many vectors are ingested.
//
// # Quick Start
//
//	queries := vecrecall.NewRandomSource(128, 42, 100).Vectors()
//	tracker, _ := groundtruth.New(queries, 10, distance.MetricL2)
//
//	runner, _ := vecrecall.NewRunner(tracker,
//	    vecrecall.WithSearcher(engine),
//	    vecrecall.WithCheckpointEvery(100_000),
//	)
//	defer runner.Close()
//
//	stats, _ := runner.Ingest(ctx, vecrecall.NewRandomSource(128, 7, 1_000_000), engine)
//	report, _ := runner.Evaluate(ctx)
//	fmt.Println(report.Summary) // mean=0.9710 min=0.8000 max=1.0000 std=0.0412 n=100
//
// # Collaborators
//
// The system under test is reached only through small interfaces:
//
//	type Ingester interface { Ingest(ctx, batch []Item) error }
//	type Searcher interface { Search(ctx, query []float32, k int) ([]string, error) }
//	type Flusher  interface { Flush(ctx) error } // optional, e.g. refresh or force-merge
//
// # Packages
//
//   - groundtruth: the incremental exact k-NN tracker, Merge, State/Restore
//   - recall: recall@k and summary statistics
//   - persistence, checkpoint, blobstore: durable tracker snapshots (local, S3, MinIO)
//   - resource: memory budget, ingest rate and search concurrency limits
//   - metrics: Prometheus collector
package vecrecall
