// Package catalog loads the episode catalog the frame generator draws from.
//
// The catalog file enumerates source videos with their durations, frame rates,
// and excluded intro/outro ranges. How media files are discovered and measured
// is outside this package; it only parses, validates, and serves the list.
package catalog
