// Package services defines shared error utilities consumed across the frame
// pipeline.
//
// It provides structured error markers plus the Wrap helper so that generation,
// recovery, and cleanup failures carry uniform context, and IsRetryable so the
// pregeneration queue can distinguish transient subprocess failures from
// configuration mistakes that retrying cannot heal.
package services
