// Package resource bounds what a recall run may consume: memory for tracker
// state, concurrent trial searches and ingest throughput.
package resource
