// Package client is the browser-side half of a session: it mirrors the widget
// tree rendered by the Host, applies user edits optimistically, and decides
// when those edits become a RerunPage.
//
// Free-text and date-like edits are debounced per widget, descendants of a
// form are buffered until the form is submitted, and commits made while a
// pass is executing are coalesced into a single rerun sent after that pass
// finishes.
package client
