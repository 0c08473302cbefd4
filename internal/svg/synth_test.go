package svg

import (
	"errors"
	"strings"
	"testing"
)

func mustShapeTemplate(t *testing.T) ShapeTemplate {
	t.Helper()
	tmpl, err := LoadShapeTemplate("default", defaultShapeRaw)
	if err != nil {
		t.Fatalf("LoadShapeTemplate returned error: %v", err)
	}
	return tmpl
}

func TestSynthesize_EditAndRemoveScenario(t *testing.T) {
	// Shape A edited to "Hi", shape B cleared: the result holds exactly
	// one shape and no trace of B, and the container element survives.
	f, err := Parse(sampleFragment)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	edits := []ShapeEdit{
		{ID: "shape0", Inner: "Hi"},
		{ID: "shape1", Remove: true},
	}
	out, err := Synthesize("layer1", f, edits, nil, mustShapeTemplate(t))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}

	result, err := Parse(out)
	if err != nil {
		t.Fatalf("synthesized fragment does not parse: %v", err)
	}
	shapes := result.Shapes()
	if len(shapes) != 1 {
		t.Fatalf("len(shapes) = %d, want 1", len(shapes))
	}
	if shapes[0].ID != "shape0" || shapes[0].Inner != "Hi" {
		t.Fatalf("surviving shape = %+v, want shape0 with Hi", shapes[0])
	}
	if strings.Contains(out, "shape1") || strings.Contains(out, "World") {
		t.Fatalf("removed shape leaked into output:\n%s", out)
	}
	if !strings.Contains(out, "<svg ") || !strings.Contains(out, "</svg>") {
		t.Fatalf("container element missing from output:\n%s", out)
	}
}

func TestSynthesize_RemovingEveryShapeKeepsLayerElement(t *testing.T) {
	f, err := Parse(sampleFragment)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	edits := []ShapeEdit{
		{ID: "shape0", Remove: true},
		{ID: "shape1", Remove: true},
	}
	out, err := Synthesize("layer1", f, edits, nil, mustShapeTemplate(t))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	result, err := Parse(out)
	if err != nil {
		t.Fatalf("synthesized fragment does not parse: %v", err)
	}
	if len(result.Shapes()) != 0 {
		t.Fatalf("len(shapes) = %d, want 0", len(result.Shapes()))
	}
}

func TestSynthesize_UntouchedBytesSurviveVerbatim(t *testing.T) {
	fragment := `<svg width="10">` + "\n" +
		`<text id="a" style="x">keep <tspan fill='#f00' odd-quoting="yes">span</tspan> me</text>` + "\n" +
		`<text id="b">change me</text>` + "\n" +
		`</svg>`
	f, err := Parse(fragment)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	out, err := Synthesize("layer1", f, []ShapeEdit{{ID: "b", Inner: "changed"}}, nil, mustShapeTemplate(t))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	want := strings.Replace(fragment, "change me", "changed", 1)
	if out != want {
		t.Fatalf("output = %q, want untouched bytes preserved: %q", out, want)
	}
}

func TestSynthesize_EditedSpanSegmentsOnly(t *testing.T) {
	fragment := `<svg><text id="a">hello <tspan fill="#f00">world</tspan></text></svg>`
	f, err := Parse(fragment)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	// User edited only the plain-text segment of the canonical text.
	canonical := `goodbye <tspan fill="#f00">world</tspan>`
	inner, err := RebuildInner("a", canonical)
	if err != nil {
		t.Fatalf("RebuildInner returned error: %v", err)
	}
	out, err := Synthesize("layer1", f, []ShapeEdit{{ID: "a", Inner: inner}}, nil, mustShapeTemplate(t))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !strings.Contains(out, `goodbye <tspan fill="#f00">world</tspan>`) {
		t.Fatalf("styled span not preserved byte-for-byte:\n%s", out)
	}
}

func TestSynthesize_AppendsNewShapes(t *testing.T) {
	f, err := Parse(sampleFragment)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	adds := []NewShape{
		{ID: "shape9f2c_1", Inner: "first new"},
		{ID: "shape9f2c_2", Inner: "second new"},
	}
	out, err := Synthesize("layer1", f, nil, adds, mustShapeTemplate(t))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	result, err := Parse(out)
	if err != nil {
		t.Fatalf("synthesized fragment does not parse: %v", err)
	}
	shapes := result.Shapes()
	if len(shapes) != 4 {
		t.Fatalf("len(shapes) = %d, want 4", len(shapes))
	}
	if shapes[2].ID != "shape9f2c_1" || shapes[3].ID != "shape9f2c_2" {
		t.Fatalf("appended ids = %q, %q", shapes[2].ID, shapes[3].ID)
	}
	if shapes[2].Inner != "first new" || shapes[3].Inner != "second new" {
		t.Fatalf("appended inner = %q, %q", shapes[2].Inner, shapes[3].Inner)
	}
}

func TestSynthesize_SelfClosingRootExpands(t *testing.T) {
	f, err := Parse(`<svg width="10"/>`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	out, err := Synthesize("layer1", f, nil, []NewShape{{ID: "n1", Inner: "hi"}}, mustShapeTemplate(t))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	result, err := Parse(out)
	if err != nil {
		t.Fatalf("synthesized fragment does not parse: %v", err)
	}
	if len(result.Shapes()) != 1 || result.Shapes()[0].ID != "n1" {
		t.Fatalf("shapes = %#v, want single n1", result.Shapes())
	}
}

func TestSynthesize_SelfClosingShapeExpands(t *testing.T) {
	f, err := Parse(`<svg><text id="a" fill="#000"/></svg>`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	out, err := Synthesize("layer1", f, []ShapeEdit{{ID: "a", Inner: "filled"}}, nil, mustShapeTemplate(t))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	result, err := Parse(out)
	if err != nil {
		t.Fatalf("synthesized fragment does not parse: %v", err)
	}
	if got := result.Shapes()[0].Inner; got != "filled" {
		t.Fatalf("inner = %q, want filled", got)
	}
}

func TestSynthesize_UnknownShapeFails(t *testing.T) {
	f, err := Parse(sampleFragment)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	_, err = Synthesize("layer1", f, []ShapeEdit{{ID: "ghost", Inner: "x"}}, nil, mustShapeTemplate(t))
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SynthesisError", err)
	}
	if se.LayerID != "layer1" {
		t.Fatalf("SynthesisError.LayerID = %q, want layer1", se.LayerID)
	}
}

func TestSynthesize_NewShapeIDCollisionFails(t *testing.T) {
	f, err := Parse(sampleFragment)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	_, err = Synthesize("layer1", f, nil, []NewShape{{ID: "shape0", Inner: "x"}}, mustShapeTemplate(t))
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SynthesisError", err)
	}
}

func TestSynthesize_RoundTripUntouchedShape(t *testing.T) {
	// Synthesizing with no edit for a shape must leave its canonical
	// text bit-identical to the original parse.
	f, err := Parse(sampleFragment)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	before := CanonicalText(f.Shapes()[1].Inner)

	out, err := Synthesize("layer1", f, []ShapeEdit{{ID: "shape0", Inner: "Hi"}}, nil, mustShapeTemplate(t))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	result, err := Parse(out)
	if err != nil {
		t.Fatalf("synthesized fragment does not parse: %v", err)
	}
	after := CanonicalText(result.Shapes()[1].Inner)
	if before != after {
		t.Fatalf("untouched shape drifted: %q -> %q", before, after)
	}
}

func TestCompose_NewFragmentFromTemplates(t *testing.T) {
	container, err := LoadContainerTemplate("default", defaultContainerRaw)
	if err != nil {
		t.Fatalf("LoadContainerTemplate returned error: %v", err)
	}
	out, err := Compose(container, mustShapeTemplate(t), []NewShape{
		{ID: "shapeab12_1", Inner: "one"},
		{ID: "shapeab12_2", Inner: "two"},
	})
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	result, err := Parse(out)
	if err != nil {
		t.Fatalf("composed fragment does not parse: %v", err)
	}
	if len(result.Shapes()) != 2 {
		t.Fatalf("len(shapes) = %d, want 2", len(result.Shapes()))
	}
}
