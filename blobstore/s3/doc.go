// Package s3 provides Amazon S3 implementations of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "recall-runs/")
//	mgr := checkpoint.NewManager(store)
//
// For concurrent writers, wrap the store in a DDBCommitStore so the
// CURRENT checkpoint pointer is advanced with DynamoDB conditional writes.
//
// # Features
//
//   - Multipart uploads for large checkpoints
//   - CRC32C integrity checksums on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
