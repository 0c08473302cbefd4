// Package svg parses, normalizes, and rebuilds the restricted SVG
// grammar used by text layers.
//
// # Overview
//
// A layer fragment is one container element holding zero or more text
// elements. Each text element carries a unique id, an opaque attribute
// bag, and inner content that is plain text or a run of styled sub-span
// elements. This package owns the three transforms the editor needs:
//
//   - Parse: raw fragment → ordered shape records with byte offsets
//   - CanonicalText / RebuildInner: inner markup ⇄ editable text
//   - Synthesize / Compose: edit outcomes + templates → new fragment
//
// # Byte preservation
//
// The parser is a byte-offset tokenizer, not a DOM round-tripper. A DOM
// library would re-serialize attribute order, quoting, and whitespace on
// output; splicing against recorded offsets instead guarantees that
// every byte the user did not touch survives verbatim, which makes
// round-trip equality a directly testable property.
//
// # Canonical form
//
// CanonicalText strips the structural wrapper, decodes entities in plain
// segments, and carries styled sub-spans verbatim as inline textual
// markup. RebuildInner is the reverse: spans pass through untouched,
// everything else is escaped. The two escapes are symmetric, so
// escape-then-unescape reproduces the original text. Two carve-outs: a
// literal '<' stays in entity form ("&lt;") in canonical text, since a
// bare '<' would read as a span start on rebuild, and a literal '&'
// stays as "&amp;", since a decoded '&' could merge with following
// bytes into a recognized entity (e.g. "&amp;lt;" collapsing to
// "&lt;") and lose the distinction on the next pass.
//
// RebuildInner enforces the grammar on user-entered text: any '<' that
// does not open a well-formed span is a *ValidationError. The caller
// skips that one shape on the next write and keeps its previously
// committed value; sibling shapes are unaffected.
//
// # Templates
//
// Templates use a closed set of placeholder tokens (SHAPE_ID,
// TEXT_TO_REPLACE, and the container slot TEXT_TAG_TO_REPLACE), checked
// for completeness at load time. A placeholder problem is therefore a
// load-time failure, never a silent bad write.
//
// # Error taxonomy
//
//   - *ParseError: malformed source fragment; degrade that layer to raw
//     display, keep the session alive
//   - *ValidationError: malformed user text; block that one shape
//   - *SynthesisError: template or splice failure; exclude that one
//     layer from the batch
package svg
