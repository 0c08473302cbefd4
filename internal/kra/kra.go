package kra

import (
	"archive/zip"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Document is the text-layer view of one archive on disk.
type Document struct {
	Path      string
	Name      string
	Thumbnail string // data-URI, empty when the archive has no preview
	Layers    []LayerMarkup
}

// LayerMarkup is one vector layer's fragment plus the archive entry it
// came from. EntryPath is what WriteLayer needs to put an edited
// fragment back.
type LayerMarkup struct {
	EntryPath string
	LayerID   string
	Markup    string
}

// ReadDocument opens a document archive and extracts every vector
// layer fragment plus the preview image.
func ReadDocument(filePath string) (Document, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return Document{}, fmt.Errorf("open archive %s: %w", filePath, err)
	}
	defer func() { _ = r.Close() }()

	doc := Document{
		Path: filePath,
		Name: strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
	}
	for _, f := range r.File {
		switch {
		case isLayerEntry(f.Name):
			markup, err := readEntry(f)
			if err != nil {
				return Document{}, fmt.Errorf("read layer entry %s: %w", f.Name, err)
			}
			doc.Layers = append(doc.Layers, LayerMarkup{
				EntryPath: f.Name,
				LayerID:   path.Base(path.Dir(f.Name)),
				Markup:    string(markup),
			})
		case f.Name == "preview.png":
			raw, err := readEntry(f)
			if err != nil {
				return Document{}, fmt.Errorf("read preview: %w", err)
			}
			doc.Thumbnail = "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
		}
	}
	sort.Slice(doc.Layers, func(i, j int) bool {
		return doc.Layers[i].EntryPath < doc.Layers[j].EntryPath
	})
	return doc, nil
}

// Layer fragments live at <image>/shapelayer<N>/content.svg inside the
// archive.
func isLayerEntry(name string) bool {
	if path.Base(name) != "content.svg" {
		return false
	}
	return strings.Contains(path.Base(path.Dir(name)), "shapelayer")
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// WriteLayer replaces one layer entry in the archive. Every other
// entry is copied through with its compressed bytes untouched. The
// rewrite goes to a temp file first so a failure cannot corrupt the
// original.
func WriteLayer(filePath, entryPath, markup string) error {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", filePath, err)
	}
	defer func() { _ = r.Close() }()

	found := false
	for _, f := range r.File {
		if f.Name == entryPath {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("archive %s has no entry %s", filePath, entryPath)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".inkstory-*.kra")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w := zip.NewWriter(tmp)
	for _, f := range r.File {
		if f.Name == entryPath {
			header := &zip.FileHeader{
				Name:     f.Name,
				Method:   zip.Deflate,
				Modified: f.Modified,
			}
			dst, err := w.CreateHeader(header)
			if err != nil {
				return closeAndFail(tmp, w, fmt.Errorf("create entry %s: %w", f.Name, err))
			}
			if _, err := io.WriteString(dst, markup); err != nil {
				return closeAndFail(tmp, w, fmt.Errorf("write entry %s: %w", f.Name, err))
			}
			continue
		}
		if err := copyRaw(w, f); err != nil {
			return closeAndFail(tmp, w, fmt.Errorf("copy entry %s: %w", f.Name, err))
		}
	}
	if err := w.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp archive: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}

func closeAndFail(tmp *os.File, w *zip.Writer, err error) error {
	_ = w.Close()
	_ = tmp.Close()
	return err
}

// copyRaw moves an entry between archives without recompressing it.
func copyRaw(w *zip.Writer, f *zip.File) error {
	rc, err := f.OpenRaw()
	if err != nil {
		return err
	}
	header := f.FileHeader
	dst, err := w.CreateRaw(&header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, rc)
	return err
}

// Discover scans dir for document archives that are not open in the
// host. Unreadable archives are logged and skipped so one corrupt file
// does not hide the rest of the folder.
func Discover(dir string, openPaths map[string]bool) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read project dir %s: %w", dir, err)
	}
	var docs []Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".kra") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if openPaths[full] {
			continue
		}
		doc, err := ReadDocument(full)
		if err != nil {
			log.Printf("kra: skipping %s: %v", full, err)
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}
