// Package kra reads and rewrites document archives directly on disk.
//
// A document archive is an ordinary zip. Vector layer fragments live
// at <image>/shapelayer<N>/content.svg and the embedded preview at
// preview.png. This package covers the dormant-document path: files
// the host does not have open are read and written here without the
// host's involvement.
//
// WriteLayer rewrites the whole archive to replace one entry, copying
// every other entry through raw so untouched layers keep their exact
// compressed bytes. The new archive lands in a temp file and renames
// over the original only after a clean finalize.
package kra
