// Package tui provides Bubble Tea TUI components for the loader CLI: a
// single live-polling dashboard over a running pool's metrics.
//
// TUI mode is opt-in only (--tui), read-only, and uses the same
// DashboardSnapshot shape the non-interactive renderer would print.
package tui
