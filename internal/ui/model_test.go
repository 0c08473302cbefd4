package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ptrask/inkstory/internal/bridge"
	"github.com/ptrask/inkstory/internal/session"
	"github.com/ptrask/inkstory/internal/state"
	"github.com/ptrask/inkstory/internal/svg"
)

const goodLayerMarkup = `<svg xmlns="http://www.w3.org/2000/svg">
<text id="shape0" x="10" y="20">Hello</text>
</svg>`

type scriptedTransport struct {
	docs   []bridge.DocumentPayload
	closed []string
	markup string
}

func (s *scriptedTransport) FetchDocuments(ctx context.Context) ([]bridge.DocumentPayload, error) {
	return s.docs, nil
}

func (s *scriptedTransport) WriteLayerUpdates(ctx context.Context, path, name string, updates []bridge.LayerUpdate) error {
	return nil
}

func (s *scriptedTransport) SaveDocuments(ctx context.Context) error { return nil }

func (s *scriptedTransport) CloseDocument(ctx context.Context, path, name string) error {
	s.closed = append(s.closed, name)
	for i, d := range s.docs {
		if d.Path == path && d.Name == name {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *scriptedTransport) ActivateDocument(ctx context.Context, path, name string) error {
	return nil
}

func (s *scriptedTransport) FetchLayerMarkup(ctx context.Context, path, name, layerID string) (string, error) {
	return s.markup, nil
}

func newTestModel(t *testing.T, transport bridge.Transport) *model {
	t.Helper()
	ctrl, err := session.New(session.Options{
		Transport: transport,
		Store:     state.NewStore(),
		Templates: svg.DefaultTemplates(),
	})
	if err != nil {
		t.Fatalf("session.New returned error: %v", err)
	}
	if err := ctrl.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	m := newModel(Options{Controller: ctrl})
	m.reload()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 36})
	return m
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestCloseKeyClosesCurrentDocument(t *testing.T) {
	transport := &scriptedTransport{
		docs: []bridge.DocumentPayload{{
			Name:   "story",
			Path:   "/tmp/story.kra",
			Layers: []bridge.LayerPayload{{ID: "layer1", Name: "Text", Markup: goodLayerMarkup}},
		}},
	}
	m := newTestModel(t, transport)

	_, cmd := m.handleKey(keyPress('c'))
	if cmd == nil {
		t.Fatal("close key produced no command")
	}
	msg := cmd()
	done, ok := msg.(closeDoneMsg)
	if !ok {
		t.Fatalf("command yielded %T, want closeDoneMsg", msg)
	}
	if done.err != nil {
		t.Fatalf("close returned error: %v", done.err)
	}
	if len(transport.closed) != 1 || transport.closed[0] != "story" {
		t.Fatalf("host close calls = %v, want [story]", transport.closed)
	}

	m.Update(done)
	if len(m.docs) != 0 {
		t.Fatalf("document list has %d entries after close, want 0", len(m.docs))
	}
}

func TestCloseKeyRejectsDormantDocument(t *testing.T) {
	transport := &scriptedTransport{}
	m := newTestModel(t, transport)
	m.docs = []state.Document{{Path: "/tmp/shelf.kra", Name: "shelf", Opened: false}}

	_, cmd := m.handleKey(keyPress('c'))
	if cmd != nil {
		t.Fatal("close key produced a command for a dormant document")
	}
	if !m.statusErr {
		t.Fatal("expected an error status for a dormant document")
	}
	if len(transport.closed) != 0 {
		t.Fatalf("host close calls = %v, want none", transport.closed)
	}
}

func TestRawOnlyLayerRendersHostMarkup(t *testing.T) {
	broken := `<svg><text x="1">no id here</text></svg>`
	transport := &scriptedTransport{
		docs: []bridge.DocumentPayload{{
			Name:   "story",
			Path:   "/tmp/story.kra",
			Layers: []bridge.LayerPayload{{ID: "layer1", Name: "Text", Markup: broken}},
		}},
		markup: broken,
	}
	m := newTestModel(t, transport)

	layer, ok := m.currentLayer()
	if !ok || !layer.RawOnly {
		t.Fatal("expected the selected layer to be raw-only")
	}

	cmd := m.maybeLoadRaw()
	if cmd == nil {
		t.Fatal("no raw markup load for a raw-only layer")
	}
	m.Update(cmd())

	view := m.View()
	if !strings.Contains(view, "no id here") {
		t.Fatalf("view does not show the raw fragment:\n%s", view)
	}

	// A cached fragment is not fetched again.
	if again := m.maybeLoadRaw(); again != nil {
		t.Fatal("raw markup re-fetched despite cache")
	}
}
