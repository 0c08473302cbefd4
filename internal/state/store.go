package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Store holds the session's document snapshots and per-shape edit state.
// The zero value is ready to use.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]*docState
	counter uint64 // survives Reset so minted ids are never reused
}

type docState struct {
	doc    Document
	layers map[string]*layerState
}

type layerState struct {
	snapshot string
	order    []string // shape ids in display order, minted ids appended
	entries  map[string]*editEntry
}

type editEntry struct {
	text      string
	lastSynth string
	dirty     bool
	deleted   bool
	origin    Origin
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{}
}

// Reset drops every document ahead of a wholesale re-fetch. The id
// counter is kept so deleted or replaced shape ids are never reused
// within the session.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
}

// Initialize seeds edit state for a freshly fetched document: one entry
// per shape, text equal to the snapshot's canonical text, clean.
func (s *Store) Initialize(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs == nil {
		s.docs = make(map[string]*docState)
	}
	ds := &docState{doc: cloneDocument(doc), layers: make(map[string]*layerState)}
	for _, layer := range doc.Layers {
		ls := &layerState{snapshot: layer.Snapshot, entries: make(map[string]*editEntry)}
		for _, shape := range layer.Shapes {
			ls.order = append(ls.order, shape.ID)
			ls.entries[shape.ID] = &editEntry{
				text:      shape.Text,
				lastSynth: shape.Text,
				origin:    shape.Origin,
			}
		}
		ds.layers[layer.ID] = ls
	}
	s.docs[doc.Key()] = ds
}

// Documents returns the session's documents sorted by name.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.docs))
	for _, ds := range s.docs {
		out = append(out, cloneDocument(ds.doc))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Document returns one document snapshot by key.
func (s *Store) Document(key string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.docs[key]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(ds.doc), true
}

// Snapshot returns a layer's last-fetched (or last-committed) fragment.
func (s *Store) Snapshot(docKey, layerID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.layer(docKey, layerID)
	if !ok {
		return "", false
	}
	return ls.snapshot, true
}

// Text returns a shape's current editable text. Tombstoned shapes are
// excluded from lookups.
func (s *Store) Text(docKey, layerID, shapeID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.layer(docKey, layerID)
	if !ok {
		return "", false
	}
	e, ok := ls.entries[shapeID]
	if !ok || e.deleted {
		return "", false
	}
	return e.text, true
}

// RecordEdit stores a shape's latest text. Idempotent: the entry turns
// dirty only when text differs from the last synthesized value.
func (s *Store) RecordEdit(docKey, layerID, shapeID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.layer(docKey, layerID)
	if !ok {
		return fmt.Errorf("record edit: no layer %s in document %s", layerID, docKey)
	}
	e, ok := ls.entries[shapeID]
	if !ok || e.deleted {
		return fmt.Errorf("record edit: no shape %s in layer %s", shapeID, layerID)
	}
	e.text = text
	e.dirty = text != e.lastSynth
	return nil
}

// AddShape mints a new shape id and creates its edit entry. The id
// combines the session's monotonic counter with a random suffix so it
// cannot collide with host-assigned ids.
func (s *Store) AddShape(docKey, layerID, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.layer(docKey, layerID)
	if !ok {
		return "", fmt.Errorf("add shape: no layer %s in document %s", layerID, docKey)
	}
	var id string
	for {
		s.counter++
		u := uuid.New()
		id = fmt.Sprintf("shape%x_%d", u[:2], s.counter)
		if _, exists := ls.entries[id]; !exists {
			break
		}
	}
	ls.order = append(ls.order, id)
	ls.entries[id] = &editEntry{text: text, dirty: true, origin: OriginNew}
	return id, nil
}

// MarkDeleted tombstones a shape: it is excluded from the next
// synthesis and from future lookups.
func (s *Store) MarkDeleted(docKey, layerID, shapeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.layer(docKey, layerID)
	if !ok {
		return fmt.Errorf("mark deleted: no layer %s in document %s", layerID, docKey)
	}
	e, ok := ls.entries[shapeID]
	if !ok || e.deleted {
		return fmt.Errorf("mark deleted: no shape %s in layer %s", shapeID, layerID)
	}
	e.deleted = true
	e.dirty = true
	return nil
}

// Diff returns every layer holding at least one dirty, new, or deleted
// shape. The layer, never the shape, is the unit of write-back.
func (s *Store) Diff(docKey string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.docs[docKey]
	if !ok {
		return nil
	}
	var out []string
	for _, layer := range ds.doc.Layers {
		ls := ds.layers[layer.ID]
		if ls == nil {
			continue
		}
		for _, e := range ls.entries {
			if e.dirty {
				out = append(out, layer.ID)
				break
			}
		}
	}
	return out
}

// LayerEdits returns the ordered edit entries for one layer.
func (s *Store) LayerEdits(docKey, layerID string) []ShapeEditState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.layer(docKey, layerID)
	if !ok {
		return nil
	}
	out := make([]ShapeEditState, 0, len(ls.order))
	for _, id := range ls.order {
		e := ls.entries[id]
		out = append(out, ShapeEditState{
			ID:      id,
			Text:    e.text,
			Dirty:   e.dirty,
			Deleted: e.deleted,
			Origin:  e.origin,
		})
	}
	return out
}

// Commit records a confirmed write: the layer snapshot is replaced by
// the synthesized fragment, removed shapes become tombstones, and each
// written shape's last synthesized value advances. Edit entries are
// consumed, not destroyed; a shape skipped by validation keeps its
// dirty flag and retries on the next push.
func (s *Store) Commit(docKey, layerID, fragment string, removed []string, synthed map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.docs[docKey]
	if !ok {
		return fmt.Errorf("commit: no document %s", docKey)
	}
	ls, ok := ds.layers[layerID]
	if !ok {
		return fmt.Errorf("commit: no layer %s in document %s", layerID, docKey)
	}
	ls.snapshot = fragment
	for i := range ds.doc.Layers {
		if ds.doc.Layers[i].ID == layerID {
			ds.doc.Layers[i].Snapshot = fragment
		}
	}
	for _, id := range removed {
		if e, ok := ls.entries[id]; ok {
			e.deleted = true
			e.dirty = false
		}
	}
	for id, text := range synthed {
		e, ok := ls.entries[id]
		if !ok {
			continue
		}
		e.lastSynth = text
		e.dirty = e.text != text
		e.origin = OriginExisting
	}
	return nil
}

func (s *Store) layer(docKey, layerID string) (*layerState, bool) {
	ds, ok := s.docs[docKey]
	if !ok {
		return nil, false
	}
	ls, ok := ds.layers[layerID]
	return ls, ok
}

func cloneDocument(d Document) Document {
	dup := d
	dup.Layers = make([]Layer, len(d.Layers))
	copy(dup.Layers, d.Layers)
	for i := range dup.Layers {
		shapes := make([]Shape, len(dup.Layers[i].Shapes))
		copy(shapes, dup.Layers[i].Shapes)
		dup.Layers[i].Shapes = shapes
	}
	return dup
}
