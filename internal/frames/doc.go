// Package frames generates guessing-game frames from the episode catalog and
// manages the paired tracking and answer records around each one.
package frames
