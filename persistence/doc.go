// Package persistence provides a compact binary snapshot format for ground-truth
// tracker state.
//
// A snapshot holds the query vectors and, per query, the retained neighbors with
// their distances and arrival sequence numbers, so a restored tracker continues
// exactly where the original stopped. Corpus vectors are never written.
//
// # Layout
//
//	[FileHeader 32 bytes][block header 8 bytes][body, optionally LZ4/ZSTD][CRC32 4 bytes]
//
// All integers are little-endian. The CRC32 (IEEE) covers everything before it.
package persistence
