// Command framed is the operator CLI for the frame-guessing backend: it
// inspects configuration, the state database, the episode catalog, and
// required external tools.
package main
