// Package progress tracks how far a mirror run has advanced and renders
// the value as a percentage string for user-facing output.
package progress
