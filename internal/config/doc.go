// Package config loads, normalizes, and validates framed configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: state and frame directories, generation and
// quality-gate settings, pregeneration queue sizing, and cleanup cadence. The
// structure is decoded and validated once at startup and passed down by
// reference; nothing re-reads configuration state later.
package config
