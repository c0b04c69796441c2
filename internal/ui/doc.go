// Package ui implements the lattice terminal viewer on Bubble Tea.
//
// # Overview
//
// The viewer draws one grid.Grid: a title bar, the column header, as many
// body rows as fit the terminal, and a status bar with the focused cell, its
// tooltip and the short key help. Rows are requested page by page through
// Grid.Page; only the visible range is ever fetched and the row cache keeps
// recently seen blocks resident.
//
// # Styling
//
// Nothing in this package picks colors. Row and cell styles come from the
// lipgloss rendering of the style engine's resolved classes, and chrome uses
// the table, header-cell and focus-indicator appearances of the active theme.
// Cycling the theme swaps the grid's repository; the engine rebuilds every
// rule under the same class names and the viewer redraws.
//
// # Updates
//
// Grid notifications (style invalidation, data and row height changes) and
// poller results reach the program as messages. Listeners may fire while
// Update runs, so they hand messages to the program from a new goroutine.
// Page responses carry a sequence number; anything but the latest request is
// dropped.
//
// # Key Bindings
//
// Bindings live in keys.go as bubbles/key bindings and feed bubbles/help for
// both the status bar and the ? overlay.
package ui
