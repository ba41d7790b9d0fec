// Package checkpoint stores versioned ground-truth snapshots in a blobstore.Store.
//
// Every Save writes two blobs and then moves a pointer:
//
//	checkpoints/snapshot-000042.gts   binary tracker snapshot (see persistence)
//	checkpoints/MANIFEST-000042.json  metadata describing the snapshot
//	CURRENT                           name of the latest manifest
//
// CURRENT is written last, so a crash mid-save leaves the previous checkpoint
// in place. With s3.DDBCommitStore the pointer update is a DynamoDB conditional
// write and concurrent savers fail with ErrConcurrentModification.
package checkpoint
