// Package state holds the session's view of host documents and the
// edits made against them.
//
// The store keeps two things per text layer: an immutable snapshot of
// the layer's raw markup as last fetched or committed, and a set of
// per-shape edit entries layered on top. Snapshots are only ever
// replaced wholesale. Edit entries carry the user's current text, the
// text last written back, and flags for dirty and tombstoned shapes.
// A shape is dirty exactly when its text differs from the value last
// synthesized, so re-typing the original text cleans the entry again.
//
// Newly created shapes get ids minted from a session-wide counter plus
// a short random suffix. The counter survives Reset so an id freed by
// a re-fetch is never handed out twice in one session.
//
// All methods are safe for concurrent use. Accessors return copies,
// never internal slices or maps.
package state
