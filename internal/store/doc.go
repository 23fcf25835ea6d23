// Package store persists frame-pipeline records in a single SQLite database.
//
// Four logical namespaces (answer, framestate, runstate, archive) behave as
// independent key-value maps with per-key atomic get/set/remove and key
// listing. There are no cross-namespace transactions: invariants spanning two
// namespaces are maintained by write ordering, and the recovery scanner cleans
// up the inconsistent pairs a crash can still leave behind.
package store
