package state

import (
	"strings"
	"testing"
)

func sessionDoc() Document {
	return Document{
		Path:   "/work/page.kra",
		Name:   "page",
		Opened: true,
		Layers: []Layer{
			{
				ID:       "layer1",
				Name:     "dialogue",
				Snapshot: `<svg><text id="shape0">Hello</text><text id="shape1">World</text></svg>`,
				Shapes: []Shape{
					{ID: "shape0", Text: "Hello"},
					{ID: "shape1", Text: "World"},
				},
			},
			{
				ID:       "layer2",
				Name:     "captions",
				Snapshot: `<svg><text id="shape2">Later</text></svg>`,
				Shapes: []Shape{
					{ID: "shape2", Text: "Later"},
				},
			},
		},
	}
}

func TestInitialize_SeedsCleanEntries(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	if got := s.Diff(doc.Key()); got != nil {
		t.Fatalf("Diff after init = %v, want nil", got)
	}
	text, ok := s.Text(doc.Key(), "layer1", "shape0")
	if !ok || text != "Hello" {
		t.Fatalf("Text = %q, %v, want Hello, true", text, ok)
	}
	edits := s.LayerEdits(doc.Key(), "layer1")
	if len(edits) != 2 {
		t.Fatalf("len(edits) = %d, want 2", len(edits))
	}
	if edits[0].Dirty || edits[1].Dirty {
		t.Fatalf("fresh entries dirty: %+v", edits)
	}
}

func TestRecordEdit_DirtyTracksLastSynthesized(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	if err := s.RecordEdit(doc.Key(), "layer1", "shape0", "Hi"); err != nil {
		t.Fatalf("RecordEdit returned error: %v", err)
	}
	if got := s.Diff(doc.Key()); len(got) != 1 || got[0] != "layer1" {
		t.Fatalf("Diff = %v, want [layer1]", got)
	}

	// Restoring the original text cleans the entry again.
	if err := s.RecordEdit(doc.Key(), "layer1", "shape0", "Hello"); err != nil {
		t.Fatalf("RecordEdit returned error: %v", err)
	}
	if got := s.Diff(doc.Key()); got != nil {
		t.Fatalf("Diff after revert = %v, want nil", got)
	}
}

func TestRecordEdit_UnknownShapeFails(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	if err := s.RecordEdit(doc.Key(), "layer1", "ghost", "x"); err == nil {
		t.Fatal("RecordEdit on unknown shape succeeded, want error")
	}
	if err := s.RecordEdit(doc.Key(), "ghost-layer", "shape0", "x"); err == nil {
		t.Fatal("RecordEdit on unknown layer succeeded, want error")
	}
}

func TestAddShape_MintsUniqueIDs(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := s.AddShape(doc.Key(), "layer1", "new text")
		if err != nil {
			t.Fatalf("AddShape returned error: %v", err)
		}
		if !strings.HasPrefix(id, "shape") {
			t.Fatalf("minted id %q lacks shape prefix", id)
		}
		if seen[id] {
			t.Fatalf("id %q minted twice", id)
		}
		seen[id] = true
	}

	edits := s.LayerEdits(doc.Key(), "layer1")
	if len(edits) != 52 {
		t.Fatalf("len(edits) = %d, want 52", len(edits))
	}
	last := edits[len(edits)-1]
	if !last.Dirty || last.Origin != OriginNew {
		t.Fatalf("minted entry = %+v, want dirty with new origin", last)
	}
}

func TestAddShape_CounterSurvivesReset(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	first, err := s.AddShape(doc.Key(), "layer1", "a")
	if err != nil {
		t.Fatalf("AddShape returned error: %v", err)
	}

	s.Reset()
	s.Initialize(doc)
	second, err := s.AddShape(doc.Key(), "layer1", "b")
	if err != nil {
		t.Fatalf("AddShape returned error: %v", err)
	}
	// Counter suffix keeps incrementing across Reset.
	if firstN, secondN := counterSuffix(t, first), counterSuffix(t, second); secondN <= firstN {
		t.Fatalf("counter did not advance across reset: %q then %q", first, second)
	}
}

func counterSuffix(t *testing.T, id string) string {
	t.Helper()
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		t.Fatalf("id %q has no counter suffix", id)
	}
	return id[i+1:]
}

func TestMarkDeleted_ExcludesFromLookup(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	if err := s.MarkDeleted(doc.Key(), "layer1", "shape1"); err != nil {
		t.Fatalf("MarkDeleted returned error: %v", err)
	}
	if _, ok := s.Text(doc.Key(), "layer1", "shape1"); ok {
		t.Fatal("Text on tombstoned shape returned ok")
	}
	if err := s.MarkDeleted(doc.Key(), "layer1", "shape1"); err == nil {
		t.Fatal("second MarkDeleted succeeded, want error")
	}
	if got := s.Diff(doc.Key()); len(got) != 1 || got[0] != "layer1" {
		t.Fatalf("Diff = %v, want [layer1]", got)
	}

	edits := s.LayerEdits(doc.Key(), "layer1")
	if !edits[1].Deleted {
		t.Fatalf("entry not tombstoned: %+v", edits[1])
	}
}

func TestDiff_ReportsOnlyTouchedLayers(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	if err := s.RecordEdit(doc.Key(), "layer2", "shape2", "Sooner"); err != nil {
		t.Fatalf("RecordEdit returned error: %v", err)
	}
	if got := s.Diff(doc.Key()); len(got) != 1 || got[0] != "layer2" {
		t.Fatalf("Diff = %v, want [layer2]", got)
	}
}

func TestCommit_AdvancesSnapshotAndClearsDirty(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	if err := s.RecordEdit(doc.Key(), "layer1", "shape0", "Hi"); err != nil {
		t.Fatalf("RecordEdit returned error: %v", err)
	}
	if err := s.MarkDeleted(doc.Key(), "layer1", "shape1"); err != nil {
		t.Fatalf("MarkDeleted returned error: %v", err)
	}

	fragment := `<svg><text id="shape0">Hi</text></svg>`
	err := s.Commit(doc.Key(), "layer1", fragment, []string{"shape1"}, map[string]string{"shape0": "Hi"})
	if err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	if got := s.Diff(doc.Key()); got != nil {
		t.Fatalf("Diff after commit = %v, want nil", got)
	}
	snap, ok := s.Snapshot(doc.Key(), "layer1")
	if !ok || snap != fragment {
		t.Fatalf("Snapshot = %q, want committed fragment", snap)
	}
	got, ok := s.Document(doc.Key())
	if !ok || got.Layers[0].Snapshot != fragment {
		t.Fatalf("Document snapshot not advanced: %q", got.Layers[0].Snapshot)
	}
}

func TestCommit_SkippedShapeStaysDirty(t *testing.T) {
	s := NewStore()
	doc := sessionDoc()
	s.Initialize(doc)

	// Both shapes edited, only shape0 made it into the write.
	if err := s.RecordEdit(doc.Key(), "layer1", "shape0", "Hi"); err != nil {
		t.Fatalf("RecordEdit returned error: %v", err)
	}
	if err := s.RecordEdit(doc.Key(), "layer1", "shape1", "broken <tspan"); err != nil {
		t.Fatalf("RecordEdit returned error: %v", err)
	}

	err := s.Commit(doc.Key(), "layer1", `<svg><text id="shape0">Hi</text><text id="shape1">World</text></svg>`,
		nil, map[string]string{"shape0": "Hi"})
	if err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	if got := s.Diff(doc.Key()); len(got) != 1 || got[0] != "layer1" {
		t.Fatalf("Diff = %v, want [layer1] for retrying shape", got)
	}
	edits := s.LayerEdits(doc.Key(), "layer1")
	if edits[0].Dirty {
		t.Fatalf("written shape still dirty: %+v", edits[0])
	}
	if !edits[1].Dirty {
		t.Fatalf("skipped shape lost its dirty flag: %+v", edits[1])
	}
}

func TestDocuments_SortedAndCopied(t *testing.T) {
	s := NewStore()
	a := sessionDoc()
	b := sessionDoc()
	b.Name = "another"
	b.Path = "/work/another.kra"
	s.Initialize(a)
	s.Initialize(b)

	docs := s.Documents()
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}
	if docs[0].Name != "another" || docs[1].Name != "page" {
		t.Fatalf("order = %q, %q, want sorted by name", docs[0].Name, docs[1].Name)
	}

	// Mutating the returned copy must not touch the store.
	docs[1].Layers[0].Shapes[0].Text = "tampered"
	fresh, _ := s.Document(a.Key())
	if fresh.Layers[0].Shapes[0].Text != "Hello" {
		t.Fatal("returned document shares memory with the store")
	}
}
