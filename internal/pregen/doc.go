// Package pregen implements a generic bounded pregeneration queue.
//
// A Queue keeps a target backlog of ready items, produced asynchronously ahead
// of demand by a caller-supplied producer function with bounded concurrency.
// At steady state Take resolves with low latency because replenishment is
// proactive; burst demand beyond the backlog still succeeds but pays full
// production latency. Production failures are retried per slot and logged on
// exhaustion; they never terminate the queue.
package pregen
