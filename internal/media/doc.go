// Package media wraps the external tools the frame generator shells out to.
// Failures carry the services sentinel markers: ErrTimeout for deadline
// kills, ErrExternalTool for non-zero exits and unparseable tool output,
// ErrValidation for bad arguments.
//
// Primary entry points:
//   - ExtractFrame: executes ffmpeg to write one still image at a seek offset
//   - StdDev: executes the image statistics tool and parses the pixel
//     standard deviation used by the quality gate
//
// Both calls honour the caller's context deadline so a hung subprocess cannot
// block a production slot indefinitely.
package media
