package kra

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArchive(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		dst, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := dst.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive file: %v", err)
	}
}

func TestReadDocument_ExtractsLayers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "story.kra")
	writeArchive(t, file, map[string]string{
		"story/shapelayer2/content.svg": `<svg><text id="shape0">Hello</text></svg>`,
		"story/shapelayer5/content.svg": `<svg/>`,
		"story/layers/paint1":           "pixels",
		"preview.png":                   "\x89PNG fake",
		"maindoc.xml":                   "<doc/>",
	})

	doc, err := ReadDocument(file)
	if err != nil {
		t.Fatalf("ReadDocument returned error: %v", err)
	}
	if doc.Name != "story" {
		t.Fatalf("Name = %q, want story", doc.Name)
	}
	if len(doc.Layers) != 2 {
		t.Fatalf("len(Layers) = %d, want 2", len(doc.Layers))
	}
	if doc.Layers[0].LayerID != "shapelayer2" || doc.Layers[1].LayerID != "shapelayer5" {
		t.Fatalf("layer ids = %q, %q", doc.Layers[0].LayerID, doc.Layers[1].LayerID)
	}
	if doc.Layers[0].EntryPath != "story/shapelayer2/content.svg" {
		t.Fatalf("EntryPath = %q", doc.Layers[0].EntryPath)
	}
	if !strings.Contains(doc.Layers[0].Markup, "Hello") {
		t.Fatalf("Markup = %q", doc.Layers[0].Markup)
	}
	if !strings.HasPrefix(doc.Thumbnail, "data:image/png;base64,") {
		t.Fatalf("Thumbnail = %q, want data-URI", doc.Thumbnail)
	}
}

func TestReadDocument_NoPreview(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bare.kra")
	writeArchive(t, file, map[string]string{
		"bare/shapelayer1/content.svg": `<svg/>`,
	})

	doc, err := ReadDocument(file)
	if err != nil {
		t.Fatalf("ReadDocument returned error: %v", err)
	}
	if doc.Thumbnail != "" {
		t.Fatalf("Thumbnail = %q, want empty", doc.Thumbnail)
	}
}

func TestWriteLayer_ReplacesSingleEntry(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "story.kra")
	writeArchive(t, file, map[string]string{
		"story/shapelayer2/content.svg": `<svg><text id="shape0">Hello</text></svg>`,
		"story/layers/paint1":           "pixels",
		"maindoc.xml":                   "<doc/>",
	})

	updated := `<svg><text id="shape0">Hi</text></svg>`
	if err := WriteLayer(file, "story/shapelayer2/content.svg", updated); err != nil {
		t.Fatalf("WriteLayer returned error: %v", err)
	}

	doc, err := ReadDocument(file)
	if err != nil {
		t.Fatalf("ReadDocument after write: %v", err)
	}
	if doc.Layers[0].Markup != updated {
		t.Fatalf("Markup = %q, want %q", doc.Layers[0].Markup, updated)
	}

	// Unrelated entries survive the rewrite.
	r, err := zip.OpenReader(file)
	if err != nil {
		t.Fatalf("reopen archive: %v", err)
	}
	defer func() { _ = r.Close() }()
	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	for _, want := range []string{"story/layers/paint1", "maindoc.xml"} {
		if !names[want] {
			t.Fatalf("entry %s lost in rewrite", want)
		}
	}
}

func TestWriteLayer_UnknownEntryFails(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "story.kra")
	writeArchive(t, file, map[string]string{"maindoc.xml": "<doc/>"})

	if err := WriteLayer(file, "story/shapelayer9/content.svg", "<svg/>"); err == nil {
		t.Fatal("WriteLayer on missing entry succeeded, want error")
	}
	// Original must be untouched after a failed write.
	if _, err := ReadDocument(file); err != nil {
		t.Fatalf("archive corrupted by failed write: %v", err)
	}
}

func TestDiscover_SkipsOpenAndBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, filepath.Join(dir, "b-side.kra"), map[string]string{
		"b-side/shapelayer1/content.svg": `<svg/>`,
	})
	writeArchive(t, filepath.Join(dir, "opened.kra"), map[string]string{
		"opened/shapelayer1/content.svg": `<svg/>`,
	})
	writeArchive(t, filepath.Join(dir, "a-side.kra"), map[string]string{
		"a-side/shapelayer1/content.svg": `<svg/>`,
	})
	if err := os.WriteFile(filepath.Join(dir, "broken.kra"), []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write broken file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write notes file: %v", err)
	}

	docs, err := Discover(dir, map[string]bool{filepath.Join(dir, "opened.kra"): true})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}
	if docs[0].Name != "a-side" || docs[1].Name != "b-side" {
		t.Fatalf("order = %q, %q, want sorted by name", docs[0].Name, docs[1].Name)
	}
}
