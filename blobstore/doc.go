// Package blobstore provides the storage abstraction for ground-truth checkpoints.
//
// Store is the interface for reading and writing whole blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with atomic rename on write
//   - MemoryStore: in-process map, for tests
//   - s3.Store: Amazon S3 (multipart uploads, paginated listing)
//   - s3.DDBCommitStore: S3 plus DynamoDB conditional writes for the CURRENT pointer
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type Store interface {
//	    Put(ctx, name, data) error
//	    Get(ctx, name) ([]byte, error)
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
