// Package session drives the fetch/edit/push cycle.
//
// The Controller owns the workflow: Fetch pulls every open document
// from the host (plus dormant archives found in the project folder)
// and seeds the store; Edit, AddShapes, and Delete stage changes;
// Push validates the staged edits, synthesizes replacement fragments,
// and writes them back, live layers through the bridge and dormant
// ones straight into their archives.
//
// Failure isolation runs at two levels. A shape whose text does not
// validate is skipped and stays pending; the rest of its layer still
// writes. A layer whose synthesis fails is held back whole; the rest
// of the document still writes. Both show up in the push Report.
//
// After any successful write the session re-fetches, so the store
// always mirrors what the host (or the archive) actually holds, then
// re-applies skipped edits on top so the user can fix and retry them.
//
// Controller is single-caller by design: the UI event loop serializes
// everything, so there is no locking here.
package session
