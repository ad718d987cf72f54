// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// Views:
//  1. [LandingView] : signed out; public search and a log in prompt
//  2. [DashboardView] : search pane plus the user's shelves
//  3. [ShelfView] : volumes on the open shelf, with removal
//  4. [PickerView] : choose the shelf to add a search result to
//
// The [Model] never owns session state. It renders snapshots taken from [session.Manager], [session.Search] and
// [session.ShelfView], and runs every network action as a [tea.Cmd]. Session changes arrive through a command that
// blocks on the manager's subscription channel and re-arms itself after each event.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, tab, q) with contextual help from charmbracelet/bubbles/help.
package ui
