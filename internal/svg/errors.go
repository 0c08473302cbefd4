package svg

import "fmt"

// ParseError reports a layer fragment that does not conform to the
// restricted markup grammar. The caller degrades that layer to raw,
// unstructured display instead of aborting the load.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse markup at byte %d: %s", e.Offset, e.Reason)
}

// ValidationError reports user-entered canonical text that fails the
// span grammar. The shape keeps its previously committed value and is
// skipped on the next write.
type ValidationError struct {
	ShapeID string
	Offset  int
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.ShapeID == "" {
		return fmt.Sprintf("validate text at byte %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("validate shape %s at byte %d: %s", e.ShapeID, e.Offset, e.Reason)
}

// SynthesisError reports a layer whose updated fragment could not be
// rebuilt. That layer alone is excluded from the outgoing batch.
type SynthesisError struct {
	LayerID string
	Reason  string
}

func (e *SynthesisError) Error() string {
	if e.LayerID == "" {
		return "synthesize fragment: " + e.Reason
	}
	return fmt.Sprintf("synthesize layer %s: %s", e.LayerID, e.Reason)
}
