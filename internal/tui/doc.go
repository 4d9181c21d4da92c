// Package tui renders an analysis session in the terminal, either as an
// interactive bubbletea program or as plain log lines.
package tui
