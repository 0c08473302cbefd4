package session

import (
	"context"
	"fmt"

	"github.com/ptrask/inkstory/internal/bridge"
	"github.com/ptrask/inkstory/internal/kra"
	"github.com/ptrask/inkstory/internal/state"
	"github.com/ptrask/inkstory/internal/svg"
)

// LayerRef names one layer inside one document.
type LayerRef struct {
	DocKey  string
	LayerID string
}

// ShapeFailure records one shape whose edit did not validate. The
// shape keeps its pending text and retries on the next push.
type ShapeFailure struct {
	DocKey  string
	LayerID string
	ShapeID string
	Text    string
	Err     error
}

// LayerFailure records one layer whose synthesis failed outright. The
// layer is excluded from the write and its edits stay pending.
type LayerFailure struct {
	DocKey  string
	LayerID string
	Err     error
}

// Report summarizes one push: what was written and what was held back.
type Report struct {
	WrittenLayers []LayerRef
	SkippedShapes []ShapeFailure
	SkippedLayers []LayerFailure
}

// Clean reports whether every pending edit made it into the write.
func (r Report) Clean() bool {
	return len(r.SkippedShapes) == 0 && len(r.SkippedLayers) == 0
}

// layerResult is one layer's synthesized write, staged until the
// transport confirms it.
type layerResult struct {
	fragment  string
	removed   []string
	synthed   map[string]string
	unchanged bool // commit-only, nothing to send
}

// Push writes every dirty layer back to its document. Shapes that fail
// validation are skipped individually; layers that fail synthesis are
// skipped whole. After a successful write the session re-fetches so
// the store reflects what the host actually holds, and any skipped
// edits are re-applied on top of the fresh snapshot.
func (c *Controller) Push(ctx context.Context) (Report, error) {
	prev := c.phase
	c.phase = PhasePushing

	var report Report
	wrote := false

	for _, doc := range c.store.Documents() {
		key := doc.Key()
		dirty := c.store.Diff(key)
		if len(dirty) == 0 {
			continue
		}

		results := make(map[string]layerResult)
		var updates []bridge.LayerUpdate
		for _, layerID := range dirty {
			res, ok := c.synthesizeLayer(key, layerID, &report)
			if !ok {
				continue
			}
			if res.unchanged {
				if err := c.store.Commit(key, layerID, res.fragment, res.removed, res.synthed); err != nil {
					c.phase = prev
					return report, fmt.Errorf("commit layer %s: %w", layerID, err)
				}
				continue
			}
			results[layerID] = res
			updates = append(updates, bridge.LayerUpdate{LayerID: layerID, Markup: res.fragment})
		}
		if len(updates) == 0 {
			continue
		}

		if doc.Opened {
			if err := c.transport.WriteLayerUpdates(ctx, doc.Path, doc.Name, updates); err != nil {
				// The host may or may not have applied the batch.
				c.stale = true
				c.phase = prev
				return report, fmt.Errorf("write layers to %s: %w", doc.Name, err)
			}
			for layerID, res := range results {
				if err := c.store.Commit(key, layerID, res.fragment, res.removed, res.synthed); err != nil {
					c.phase = prev
					return report, fmt.Errorf("commit layer %s: %w", layerID, err)
				}
				report.WrittenLayers = append(report.WrittenLayers, LayerRef{DocKey: key, LayerID: layerID})
				wrote = true
			}
			continue
		}

		// Dormant documents are written directly to the archive, one
		// layer at a time.
		for layerID, res := range results {
			entryPath := layerEntryPath(doc, layerID)
			if entryPath == "" {
				report.SkippedLayers = append(report.SkippedLayers, LayerFailure{
					DocKey:  key,
					LayerID: layerID,
					Err:     fmt.Errorf("no archive entry recorded for layer %s", layerID),
				})
				continue
			}
			if err := kra.WriteLayer(doc.Path, entryPath, res.fragment); err != nil {
				c.phase = prev
				return report, fmt.Errorf("write archive layer %s: %w", layerID, err)
			}
			if err := c.store.Commit(key, layerID, res.fragment, res.removed, res.synthed); err != nil {
				c.phase = prev
				return report, fmt.Errorf("commit layer %s: %w", layerID, err)
			}
			report.WrittenLayers = append(report.WrittenLayers, LayerRef{DocKey: key, LayerID: layerID})
			wrote = true
		}
	}

	if wrote {
		if err := c.Fetch(ctx); err != nil {
			return report, fmt.Errorf("refresh after push: %w", err)
		}
		c.reapplySkipped(report.SkippedShapes)
	}
	c.phase = PhaseReady
	return report, nil
}

// synthesizeLayer validates a layer's pending edits and splices them
// into its snapshot. Individual validation failures go into the report
// and leave the shape pending; a false return means the whole layer
// was held back.
func (c *Controller) synthesizeLayer(docKey, layerID string, report *Report) (layerResult, bool) {
	snap, ok := c.store.Snapshot(docKey, layerID)
	if !ok {
		report.SkippedLayers = append(report.SkippedLayers, LayerFailure{
			DocKey:  docKey,
			LayerID: layerID,
			Err:     fmt.Errorf("no snapshot for layer %s", layerID),
		})
		return layerResult{}, false
	}
	f, err := svg.Parse(snap)
	if err != nil {
		report.SkippedLayers = append(report.SkippedLayers, LayerFailure{DocKey: docKey, LayerID: layerID, Err: err})
		return layerResult{}, false
	}

	res := layerResult{synthed: make(map[string]string)}
	var edits []svg.ShapeEdit
	var adds []svg.NewShape

	for _, e := range c.store.LayerEdits(docKey, layerID) {
		if !e.Dirty {
			continue
		}
		if e.Deleted || e.Text == "" {
			if e.Origin == state.OriginExisting {
				edits = append(edits, svg.ShapeEdit{ID: e.ID, Remove: true})
			}
			res.removed = append(res.removed, e.ID)
			continue
		}
		inner, err := svg.RebuildInner(e.ID, e.Text)
		if err != nil {
			report.SkippedShapes = append(report.SkippedShapes, ShapeFailure{
				DocKey:  docKey,
				LayerID: layerID,
				ShapeID: e.ID,
				Text:    e.Text,
				Err:     err,
			})
			continue
		}
		if e.Origin == state.OriginNew {
			adds = append(adds, svg.NewShape{ID: e.ID, Inner: inner})
		} else {
			edits = append(edits, svg.ShapeEdit{ID: e.ID, Inner: inner})
		}
		res.synthed[e.ID] = e.Text
	}

	if len(edits) == 0 && len(adds) == 0 {
		if len(res.removed) == 0 {
			return layerResult{}, false
		}
		// Removals of never-materialized shapes still need a commit,
		// but the snapshot is unchanged and nothing goes to the host.
		res.fragment = snap
		res.unchanged = true
		return res, true
	}

	fragment, err := svg.Synthesize(layerID, f, edits, adds, c.shapeTmpl)
	if err != nil {
		report.SkippedLayers = append(report.SkippedLayers, LayerFailure{DocKey: docKey, LayerID: layerID, Err: err})
		return layerResult{}, false
	}
	res.fragment = fragment
	return res, true
}

// reapplySkipped lays pending edits that failed validation back onto
// the freshly fetched store so the user can fix and retry them.
func (c *Controller) reapplySkipped(skipped []ShapeFailure) {
	for _, s := range skipped {
		// A shape gone from the new snapshot has nothing to retry.
		_ = c.store.RecordEdit(s.DocKey, s.LayerID, s.ShapeID, s.Text)
	}
}

func layerEntryPath(doc state.Document, layerID string) string {
	for _, l := range doc.Layers {
		if l.ID == layerID {
			return l.EntryPath
		}
	}
	return ""
}
