// Package cleanup runs the periodic sweeps that expire served answers and
// frames, reclaim orphaned image files, and archive or drop stale player runs.
package cleanup
