package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ptrask/inkstory/internal/bridge"
	"github.com/ptrask/inkstory/internal/kra"
	"github.com/ptrask/inkstory/internal/state"
	"github.com/ptrask/inkstory/internal/svg"
)

// Controller drives the fetch/edit/push cycle against the store and
// the host. It is not safe for concurrent use; the UI event loop is
// the single caller.
type Controller struct {
	transport  bridge.Transport
	store      *state.Store
	templates  *svg.TemplateSet
	shapeTmpl  svg.ShapeTemplate
	container  svg.ContainerTemplate
	projectDir string
	phase      Phase
	// stale is set when a host write's outcome is unknown. Further
	// edits are refused until a fetch resynchronizes the session.
	stale bool
}

// ErrStale is returned for edits attempted after a write the host
// never confirmed. A fetch clears it.
var ErrStale = errors.New("session may be out of sync with host, refresh first")

// Options configures a Controller. Template names select from the
// loaded set; empty names fall back to "default" when present.
type Options struct {
	Transport         bridge.Transport
	Store             *state.Store
	Templates         *svg.TemplateSet
	ShapeTemplate     string
	ContainerTemplate string
	ProjectDir        string
}

// New builds a Controller and resolves its template selections.
func New(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("session: transport required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("session: store required")
	}
	if opts.Templates == nil {
		return nil, fmt.Errorf("session: templates required")
	}
	shapeTmpl, err := resolveShape(opts.Templates, opts.ShapeTemplate)
	if err != nil {
		return nil, err
	}
	container, err := resolveContainer(opts.Templates, opts.ContainerTemplate)
	if err != nil {
		return nil, err
	}
	return &Controller{
		transport:  opts.Transport,
		store:      opts.Store,
		templates:  opts.Templates,
		shapeTmpl:  shapeTmpl,
		container:  container,
		projectDir: opts.ProjectDir,
	}, nil
}

func resolveShape(set *svg.TemplateSet, name string) (svg.ShapeTemplate, error) {
	if name == "" {
		name = "default"
	}
	if t, ok := set.Shapes[name]; ok {
		return t, nil
	}
	if names := set.ShapeNames(); name == "default" && len(names) > 0 {
		return set.Shapes[names[0]], nil
	}
	return svg.ShapeTemplate{}, fmt.Errorf("session: no shape template %q", name)
}

func resolveContainer(set *svg.TemplateSet, name string) (svg.ContainerTemplate, error) {
	if name == "" {
		name = "default"
	}
	if t, ok := set.Containers[name]; ok {
		return t, nil
	}
	if names := set.ContainerNames(); name == "default" && len(names) > 0 {
		return set.Containers[names[0]], nil
	}
	return svg.ContainerTemplate{}, fmt.Errorf("session: no container template %q", name)
}

// Phase returns the current session phase.
func (c *Controller) Phase() Phase { return c.phase }

// Documents returns the session's documents.
func (c *Controller) Documents() []state.Document { return c.store.Documents() }

// LayerEdits returns the ordered edit entries for one layer.
func (c *Controller) LayerEdits(docKey, layerID string) []state.ShapeEditState {
	return c.store.LayerEdits(docKey, layerID)
}

// Fetch replaces the whole session with a fresh host snapshot plus
// dormant archives discovered in the project folder. On failure the
// store and phase are left as they were.
func (c *Controller) Fetch(ctx context.Context) error {
	prev := c.phase
	c.phase = PhaseFetching

	payloads, err := c.transport.FetchDocuments(ctx)
	if err != nil {
		c.phase = prev
		return fmt.Errorf("fetch documents: %w", err)
	}

	docs := make([]state.Document, 0, len(payloads))
	openPaths := make(map[string]bool, len(payloads))
	for _, p := range payloads {
		docs = append(docs, documentFromPayload(p))
		openPaths[p.Path] = true
	}

	if c.projectDir != "" {
		dormant, err := kra.Discover(c.projectDir, openPaths)
		if err != nil {
			log.Printf("session: dormant discovery failed: %v", err)
		}
		for _, d := range dormant {
			docs = append(docs, documentFromArchive(d))
		}
	}

	c.store.Reset()
	for _, doc := range docs {
		c.store.Initialize(doc)
	}
	c.phase = PhaseReady
	c.stale = false
	return nil
}

// NeedsRefresh reports whether a fetch must precede further edits.
func (c *Controller) NeedsRefresh() bool { return c.stale }

func documentFromPayload(p bridge.DocumentPayload) state.Document {
	doc := state.Document{
		Path:      p.Path,
		Name:      p.Name,
		Opened:    true,
		Thumbnail: p.Thumbnail,
	}
	for _, l := range p.Layers {
		doc.Layers = append(doc.Layers, buildLayer(l.ID, l.Name, l.Markup, ""))
	}
	return doc
}

func documentFromArchive(d kra.Document) state.Document {
	doc := state.Document{
		Path:      d.Path,
		Name:      d.Name,
		Opened:    false,
		Thumbnail: d.Thumbnail,
	}
	for _, l := range d.Layers {
		doc.Layers = append(doc.Layers, buildLayer(l.LayerID, l.LayerID, l.Markup, l.EntryPath))
	}
	return doc
}

// buildLayer parses one fragment into shapes. A fragment that does not
// parse degrades to a raw-only layer instead of failing the fetch.
func buildLayer(id, name, markup, entryPath string) state.Layer {
	layer := state.Layer{ID: id, Name: name, Snapshot: markup, EntryPath: entryPath}
	f, err := svg.Parse(markup)
	if err != nil {
		log.Printf("session: layer %s markup unparseable, raw-only: %v", id, err)
		layer.RawOnly = true
		return layer
	}
	for _, s := range f.Shapes() {
		layer.Shapes = append(layer.Shapes, state.Shape{
			ID:   s.ID,
			Text: svg.CanonicalText(s.Inner),
		})
	}
	return layer
}

// Edit records new text for one shape.
func (c *Controller) Edit(docKey, layerID, shapeID, text string) error {
	if c.stale {
		return ErrStale
	}
	if err := c.store.RecordEdit(docKey, layerID, shapeID, text); err != nil {
		return err
	}
	c.phase = PhaseEditing
	return nil
}

// AddShapes splits text on blank-line runs and mints one new shape per
// segment. Dormant documents cannot take new shapes; their templates
// may not match the archive's coordinate space.
func (c *Controller) AddShapes(docKey, layerID, text string) ([]string, error) {
	if c.stale {
		return nil, ErrStale
	}
	doc, ok := c.store.Document(docKey)
	if !ok {
		return nil, fmt.Errorf("add shapes: no document %s", docKey)
	}
	if !doc.Opened {
		return nil, fmt.Errorf("add shapes: document %s is not open in the host", doc.Name)
	}
	for _, l := range doc.Layers {
		if l.ID == layerID && l.RawOnly {
			return nil, fmt.Errorf("add shapes: layer %s is raw-only", layerID)
		}
	}
	segments := svg.SplitNewText(text)
	if len(segments) == 0 {
		return nil, fmt.Errorf("add shapes: no text")
	}
	ids := make([]string, 0, len(segments))
	for _, segment := range segments {
		id, err := c.store.AddShape(docKey, layerID, segment)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	c.phase = PhaseEditing
	return ids, nil
}

// Delete tombstones one shape for removal on the next push.
func (c *Controller) Delete(docKey, layerID, shapeID string) error {
	if c.stale {
		return ErrStale
	}
	if err := c.store.MarkDeleted(docKey, layerID, shapeID); err != nil {
		return err
	}
	c.phase = PhaseEditing
	return nil
}

// SaveAll asks the host to save every open document.
func (c *Controller) SaveAll(ctx context.Context) error {
	return c.transport.SaveDocuments(ctx)
}

// CloseDocument asks the host to close one document, then re-fetches.
func (c *Controller) CloseDocument(ctx context.Context, docKey string) error {
	doc, ok := c.store.Document(docKey)
	if !ok {
		return fmt.Errorf("close document: no document %s", docKey)
	}
	if !doc.Opened {
		return fmt.Errorf("close document: %s is not open", doc.Name)
	}
	if err := c.transport.CloseDocument(ctx, doc.Path, doc.Name); err != nil {
		return err
	}
	return c.Fetch(ctx)
}

// ActivateDocument brings one open document to the front in the host.
func (c *Controller) ActivateDocument(ctx context.Context, docKey string) error {
	doc, ok := c.store.Document(docKey)
	if !ok {
		return fmt.Errorf("activate document: no document %s", docKey)
	}
	if !doc.Opened {
		return fmt.Errorf("activate document: %s is not open", doc.Name)
	}
	return c.transport.ActivateDocument(ctx, doc.Path, doc.Name)
}

// LayerMarkup returns a layer's current raw fragment: live from the
// host for open documents, from the session snapshot otherwise.
func (c *Controller) LayerMarkup(ctx context.Context, docKey, layerID string) (string, error) {
	doc, ok := c.store.Document(docKey)
	if !ok {
		return "", fmt.Errorf("layer markup: no document %s", docKey)
	}
	if doc.Opened {
		return c.transport.FetchLayerMarkup(ctx, doc.Path, doc.Name, layerID)
	}
	snap, ok := c.store.Snapshot(docKey, layerID)
	if !ok {
		return "", fmt.Errorf("layer markup: no layer %s in document %s", layerID, docKey)
	}
	return snap, nil
}
