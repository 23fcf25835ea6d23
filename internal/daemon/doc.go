// Package daemon wires configuration, storage, recovery, generation, and
// cleanup into one supervised process with a single-instance lock.
package daemon
