package svg

import (
	"fmt"
	"strings"
)

// ShapeEdit is the outcome synthesis must apply to one existing shape.
type ShapeEdit struct {
	ID     string
	Inner  string // rebuilt inner markup; ignored when Remove is set
	Remove bool
}

// NewShape is a shape to append, already normalized to inner markup.
type NewShape struct {
	ID    string
	Inner string
}

// Synthesize rebuilds one layer's fragment from its snapshot: removed
// shapes are cut out, edited shapes have only their inner markup
// substituted, and new shapes are instantiated from the template and
// appended before the container close. Every untouched byte of the
// snapshot survives verbatim; the container element survives even when
// no shapes remain.
func Synthesize(layerID string, f *Fragment, edits []ShapeEdit, adds []NewShape, tmpl ShapeTemplate) (string, error) {
	byID := make(map[string]ShapeEdit, len(edits))
	for _, e := range edits {
		if f.indexOf(e.ID) < 0 {
			return "", &SynthesisError{LayerID: layerID, Reason: fmt.Sprintf("edit for unknown shape %s", e.ID)}
		}
		byID[e.ID] = e
	}
	for _, a := range adds {
		if f.indexOf(a.ID) >= 0 {
			return "", &SynthesisError{LayerID: layerID, Reason: fmt.Sprintf("new shape id %s collides with an existing shape", a.ID)}
		}
	}

	var b strings.Builder
	b.Grow(len(f.raw))
	pos := 0
	for i, sp := range f.spans {
		e, ok := byID[f.shapes[i].ID]
		if !ok {
			continue
		}
		b.WriteString(f.raw[pos:sp.outerStart])
		pos = sp.outerEnd
		if e.Remove {
			continue
		}
		if sp.selfClosing {
			// Expand <text .../> so the new inner markup has a home.
			open := strings.TrimRight(f.raw[sp.outerStart:sp.outerEnd-2], " \t")
			b.WriteString(open)
			b.WriteString(">")
			b.WriteString(e.Inner)
			b.WriteString("</" + sp.name + ">")
			continue
		}
		b.WriteString(f.raw[sp.outerStart:sp.innerStart])
		b.WriteString(e.Inner)
		b.WriteString(f.raw[sp.innerEnd:sp.outerEnd])
	}

	if len(adds) > 0 {
		elems := make([]string, 0, len(adds))
		for _, a := range adds {
			elem, err := tmpl.Instantiate(a.ID, a.Inner)
			if err != nil {
				if se, ok := err.(*SynthesisError); ok {
					return "", &SynthesisError{LayerID: layerID, Reason: se.Reason}
				}
				return "", err
			}
			elems = append(elems, elem)
		}
		joined := strings.Join(elems, "\n")
		if f.root.selfClosing {
			b.WriteString(f.raw[pos:f.root.outerStart])
			open := strings.TrimRight(f.raw[f.root.outerStart:f.root.outerEnd-2], " \t")
			b.WriteString(open)
			b.WriteString(">\n")
			b.WriteString(joined)
			b.WriteString("\n</" + f.root.name + ">")
			pos = f.root.outerEnd
		} else {
			b.WriteString(f.raw[pos:f.root.innerEnd])
			b.WriteString(joined)
			b.WriteString("\n")
			pos = f.root.innerEnd
		}
	}
	b.WriteString(f.raw[pos:])

	out := b.String()
	if _, err := Parse(out); err != nil {
		return "", &SynthesisError{LayerID: layerID, Reason: fmt.Sprintf("result not well-formed: %v", err)}
	}
	return out, nil
}

// Compose builds a brand-new layer fragment: every new shape is
// instantiated from the shape template and the results fill the
// container template's slot.
func Compose(container ContainerTemplate, tmpl ShapeTemplate, adds []NewShape) (string, error) {
	elems := make([]string, 0, len(adds))
	for _, a := range adds {
		elem, err := tmpl.Instantiate(a.ID, a.Inner)
		if err != nil {
			return "", err
		}
		elems = append(elems, elem)
	}
	return container.Fill(elems)
}
