// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a bookmark browser for the active server:
//  1. [BookmarkListView] : Browse local bookmarks with their sync status
//  2. [ConfirmDeleteView] : Confirm bookmark removal
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Mutations go through the sync queue, so deletes apply locally at once and
// converge with the server in the background.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
