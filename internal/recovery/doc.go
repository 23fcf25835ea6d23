// Package recovery reconciles persisted frame records with the frames
// directory after a restart, repairing the partial states a crash between
// ordered store writes can leave behind.
package recovery
