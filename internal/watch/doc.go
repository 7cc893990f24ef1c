// Package watch observes the data directory for workbook changes and turns
// raw filesystem events into scan triggers. Events pass through two stages:
// a write-stability check (a file must stay unmodified for a quiet window
// before it counts as fully written) and a debounce window that collapses
// bursts of settled events into a single trigger.
package watch
