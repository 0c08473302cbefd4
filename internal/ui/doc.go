// Package ui implements the terminal interface.
//
// The layout is three panes: documents, layers, and shapes, cycled
// with tab. Selecting a shape and pressing enter opens a full-screen
// editor; esc applies the text and returns. Dirty shapes are marked
// until a push writes them back.
//
// The model follows the usual Elm shape: Update owns all state, and
// every controller call that can block runs inside a tea.Cmd that
// reports back with a done message. A busy flag keeps at most one
// such call in flight, which is what lets the single-caller session
// controller be used from command goroutines at all.
//
// Themes are lipgloss palettes cycled with T; the active theme name is
// handed to OnThemeChange so the caller can persist it.
package ui
