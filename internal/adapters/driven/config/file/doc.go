// Package file provides file-based implementations of driven port interfaces.
//
// SeedStore reads the per-topic seed configuration from seeds.toml and can
// watch it for changes, so long-running processes pick up edits without a
// restart.
package file
