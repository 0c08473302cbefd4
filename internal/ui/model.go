package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ptrask/inkstory/internal/session"
	"github.com/ptrask/inkstory/internal/state"
)

// Options configure the UI runtime.
type Options struct {
	Controller    *session.Controller
	ThemeName     string
	OnThemeChange func(name string)
}

// Run starts the terminal program and blocks until ctx is cancelled or
// the user quits.
func Run(ctx context.Context, opts Options) error {
	if opts.Controller == nil {
		return fmt.Errorf("ui requires a session controller")
	}
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

type pane int

const (
	paneDocs pane = iota
	paneLayers
	paneShapes
	paneCount
)

type editMode int

const (
	editNone editMode = iota
	editShape
	editNewShapes
)

type model struct {
	ctrl *session.Controller
	opts Options

	keys   keyMap
	help   help.Model
	theme  Theme
	styles Styles

	width  int
	height int

	docs     []state.Document
	docIdx   int
	layerIdx int
	shapeIdx int
	focus    pane

	editor      textarea.Model
	mode        editMode
	editShapeID string

	// Raw fragment cache for the currently selected raw-only layer.
	rawFor    string
	rawMarkup string

	busy      bool
	status    string
	statusErr bool
}

func newModel(opts Options) *model {
	theme := ThemeByName(opts.ThemeName)
	editor := textarea.New()
	editor.Placeholder = "Shape text"
	editor.CharLimit = 0
	return &model{
		ctrl:   opts.Controller,
		opts:   opts,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		theme:  theme,
		styles: theme.Styles(),
		editor: editor,
		status: "Connecting to host...",
	}
}

// Messages carrying the result of a controller call back into Update.
type fetchDoneMsg struct{ err error }
type pushDoneMsg struct {
	report session.Report
	err    error
}
type saveDoneMsg struct{ err error }
type activateDoneMsg struct{ err error }
type closeDoneMsg struct{ err error }
type rawMarkupMsg struct {
	key    string
	markup string
	err    error
}

func (m *model) Init() tea.Cmd {
	return m.fetchCmd()
}

// Controller calls run in command goroutines. The busy flag keeps at
// most one in flight, so the single-caller controller contract holds.
func (m *model) fetchCmd() tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return fetchDoneMsg{err: m.ctrl.Fetch(context.Background())}
	}
}

func (m *model) pushCmd() tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		report, err := m.ctrl.Push(context.Background())
		return pushDoneMsg{report: report, err: err}
	}
}

func (m *model) saveCmd() tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return saveDoneMsg{err: m.ctrl.SaveAll(context.Background())}
	}
}

func (m *model) activateCmd(docKey string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return activateDoneMsg{err: m.ctrl.ActivateDocument(context.Background(), docKey)}
	}
}

func (m *model) closeCmd(docKey string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return closeDoneMsg{err: m.ctrl.CloseDocument(context.Background(), docKey)}
	}
}

func (m *model) rawMarkupCmd(docKey, layerID string) tea.Cmd {
	m.busy = true
	cacheKey := rawKey(docKey, layerID)
	return func() tea.Msg {
		markup, err := m.ctrl.LayerMarkup(context.Background(), docKey, layerID)
		return rawMarkupMsg{key: cacheKey, markup: markup, err: err}
	}
}

// maybeLoadRaw fetches the current layer's raw fragment when the
// selection sits on a raw-only layer that is not cached yet.
func (m *model) maybeLoadRaw() tea.Cmd {
	if m.busy {
		return nil
	}
	doc, ok := m.currentDoc()
	if !ok {
		return nil
	}
	layer, ok := m.currentLayer()
	if !ok || !layer.RawOnly {
		return nil
	}
	if m.rawFor == rawKey(doc.Key(), layer.ID) {
		return nil
	}
	return m.rawMarkupCmd(doc.Key(), layer.ID)
}

func rawKey(docKey, layerID string) string {
	return docKey + "\x00" + layerID
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.editor.SetWidth(msg.Width - 6)
		m.editor.SetHeight(maxInt(3, msg.Height-8))
		return m, nil

	case fetchDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Refresh failed: %v", msg.err))
			return m, nil
		}
		m.reload()
		m.setStatus(fmt.Sprintf("Fetched %d document(s)", len(m.docs)))
		return m, m.maybeLoadRaw()

	case pushDoneMsg:
		m.busy = false
		if msg.err != nil {
			text := fmt.Sprintf("Push failed: %v", msg.err)
			if m.ctrl.NeedsRefresh() {
				text += "; refresh (ctrl+r) before editing"
			}
			m.setError(text)
			m.reload()
			return m, nil
		}
		m.reload()
		m.setStatus(pushSummary(msg.report))
		m.statusErr = !msg.report.Clean()
		return m, m.maybeLoadRaw()

	case saveDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Save failed: %v", msg.err))
			return m, nil
		}
		m.setStatus("Host documents saved")
		return m, nil

	case activateDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Activate failed: %v", msg.err))
			return m, nil
		}
		m.setStatus("Document activated in host")
		return m, nil

	case closeDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Close failed: %v", msg.err))
			return m, nil
		}
		m.reload()
		m.setStatus("Document closed in host")
		return m, m.maybeLoadRaw()

	case rawMarkupMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Layer markup unavailable: %v", msg.err))
			return m, nil
		}
		m.rawFor = msg.key
		m.rawMarkup = msg.markup
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode != editNone {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.mode != editNone {
		return m.handleEditorKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = NextTheme(m.theme.Name)
		m.styles = m.theme.Styles()
		if m.opts.OnThemeChange != nil {
			m.opts.OnThemeChange(m.theme.Name)
		}
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.focus = (m.focus + 1) % paneCount
		return m, nil

	case key.Matches(msg, m.keys.ShiftTab):
		m.focus = (m.focus + paneCount - 1) % paneCount
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.move(-1)
		return m, m.maybeLoadRaw()

	case key.Matches(msg, m.keys.Down):
		m.move(1)
		return m, m.maybeLoadRaw()

	case key.Matches(msg, m.keys.Top):
		m.moveTo(0)
		return m, m.maybeLoadRaw()

	case key.Matches(msg, m.keys.Bottom):
		m.moveTo(-1)
		return m, m.maybeLoadRaw()

	case key.Matches(msg, m.keys.Refresh):
		if m.busy {
			return m, nil
		}
		m.setStatus("Refreshing...")
		return m, m.fetchCmd()

	case key.Matches(msg, m.keys.Push):
		if m.busy {
			return m, nil
		}
		m.setStatus("Pushing edits...")
		return m, m.pushCmd()

	case key.Matches(msg, m.keys.SaveAll):
		if m.busy {
			return m, nil
		}
		m.setStatus("Saving host documents...")
		return m, m.saveCmd()

	case key.Matches(msg, m.keys.Activate):
		if m.busy {
			return m, nil
		}
		if doc, ok := m.currentDoc(); ok && doc.Opened {
			return m, m.activateCmd(doc.Key())
		}
		m.setError("Document is not open in the host")
		return m, nil

	case key.Matches(msg, m.keys.Close):
		if m.busy {
			return m, nil
		}
		if doc, ok := m.currentDoc(); ok && doc.Opened {
			m.setStatus("Closing document in host...")
			return m, m.closeCmd(doc.Key())
		}
		m.setError("Document is not open in the host")
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		m.openShapeEditor()
		return m, nil

	case key.Matches(msg, m.keys.NewShape):
		m.openNewShapeEditor()
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		m.deleteCurrentShape()
		return m, nil
	}
	return m, nil
}

func (m *model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Apply) {
		m.applyEditor()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// reload refreshes the document list from the store and clamps the
// selection indices. The raw fragment cache is dropped because every
// reload follows a snapshot change.
func (m *model) reload() {
	m.rawFor = ""
	m.rawMarkup = ""
	m.docs = m.ctrl.Documents()
	if m.docIdx >= len(m.docs) {
		m.docIdx = maxInt(0, len(m.docs)-1)
	}
	m.clampLayer()
	m.clampShape()
}

func (m *model) clampLayer() {
	doc, ok := m.currentDoc()
	if !ok || m.layerIdx >= len(doc.Layers) {
		m.layerIdx = 0
	}
}

func (m *model) clampShape() {
	shapes := m.currentShapes()
	if m.shapeIdx >= len(shapes) {
		m.shapeIdx = maxInt(0, len(shapes)-1)
	}
}

func (m *model) currentDoc() (state.Document, bool) {
	if m.docIdx < 0 || m.docIdx >= len(m.docs) {
		return state.Document{}, false
	}
	return m.docs[m.docIdx], true
}

func (m *model) currentLayer() (state.Layer, bool) {
	doc, ok := m.currentDoc()
	if !ok || m.layerIdx < 0 || m.layerIdx >= len(doc.Layers) {
		return state.Layer{}, false
	}
	return doc.Layers[m.layerIdx], true
}

func (m *model) currentShapes() []state.ShapeEditState {
	doc, ok := m.currentDoc()
	if !ok {
		return nil
	}
	layer, ok := m.currentLayer()
	if !ok {
		return nil
	}
	var visible []state.ShapeEditState
	for _, e := range m.ctrl.LayerEdits(doc.Key(), layer.ID) {
		if !e.Deleted {
			visible = append(visible, e)
		}
	}
	return visible
}

func (m *model) move(delta int) {
	switch m.focus {
	case paneDocs:
		m.docIdx = clamp(m.docIdx+delta, len(m.docs))
		m.layerIdx = 0
		m.shapeIdx = 0
	case paneLayers:
		if doc, ok := m.currentDoc(); ok {
			m.layerIdx = clamp(m.layerIdx+delta, len(doc.Layers))
			m.shapeIdx = 0
		}
	case paneShapes:
		m.shapeIdx = clamp(m.shapeIdx+delta, len(m.currentShapes()))
	}
}

func (m *model) moveTo(idx int) {
	switch m.focus {
	case paneDocs:
		m.docIdx = resolveIndex(idx, len(m.docs))
		m.layerIdx = 0
		m.shapeIdx = 0
	case paneLayers:
		if doc, ok := m.currentDoc(); ok {
			m.layerIdx = resolveIndex(idx, len(doc.Layers))
			m.shapeIdx = 0
		}
	case paneShapes:
		m.shapeIdx = resolveIndex(idx, len(m.currentShapes()))
	}
}

func (m *model) openShapeEditor() {
	layer, ok := m.currentLayer()
	if !ok {
		return
	}
	if layer.RawOnly {
		m.setError("Layer markup did not parse; editing disabled")
		return
	}
	shapes := m.currentShapes()
	if m.shapeIdx < 0 || m.shapeIdx >= len(shapes) {
		return
	}
	shape := shapes[m.shapeIdx]
	m.mode = editShape
	m.editShapeID = shape.ID
	m.editor.SetValue(shape.Text)
	m.editor.Focus()
}

func (m *model) openNewShapeEditor() {
	doc, ok := m.currentDoc()
	if !ok {
		return
	}
	if !doc.Opened {
		m.setError("New shapes need the document open in the host")
		return
	}
	layer, ok := m.currentLayer()
	if !ok {
		return
	}
	if layer.RawOnly {
		m.setError("Layer markup did not parse; editing disabled")
		return
	}
	m.mode = editNewShapes
	m.editor.SetValue("")
	m.editor.Placeholder = "New shape text; separate shapes with a blank-line run"
	m.editor.Focus()
}

func (m *model) applyEditor() {
	defer func() {
		m.mode = editNone
		m.editShapeID = ""
		m.editor.Blur()
	}()

	doc, ok := m.currentDoc()
	if !ok {
		return
	}
	layer, ok := m.currentLayer()
	if !ok {
		return
	}
	text := m.editor.Value()

	switch m.mode {
	case editShape:
		if err := m.ctrl.Edit(doc.Key(), layer.ID, m.editShapeID, text); err != nil {
			m.setError(fmt.Sprintf("Edit failed: %v", err))
			return
		}
		if text == "" {
			m.setStatus("Shape cleared; push to remove it")
		} else {
			m.setStatus("Edit staged; push to write it")
		}
	case editNewShapes:
		ids, err := m.ctrl.AddShapes(doc.Key(), layer.ID, text)
		if err != nil {
			m.setError(fmt.Sprintf("New shapes failed: %v", err))
			return
		}
		m.setStatus(fmt.Sprintf("Staged %d new shape(s); push to write them", len(ids)))
	}
}

func (m *model) deleteCurrentShape() {
	doc, ok := m.currentDoc()
	if !ok {
		return
	}
	layer, ok := m.currentLayer()
	if !ok {
		return
	}
	shapes := m.currentShapes()
	if m.shapeIdx < 0 || m.shapeIdx >= len(shapes) {
		return
	}
	if err := m.ctrl.Delete(doc.Key(), layer.ID, shapes[m.shapeIdx].ID); err != nil {
		m.setError(fmt.Sprintf("Delete failed: %v", err))
		return
	}
	m.clampShape()
	m.setStatus("Shape marked for removal; push to write it")
}

func (m *model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *model) setError(text string) {
	m.status = text
	m.statusErr = true
}

func pushSummary(r session.Report) string {
	if len(r.WrittenLayers) == 0 && r.Clean() {
		return "Nothing to push"
	}
	out := fmt.Sprintf("Wrote %d layer(s)", len(r.WrittenLayers))
	if n := len(r.SkippedShapes); n > 0 {
		out += fmt.Sprintf(", %d shape(s) held back: %v", n, r.SkippedShapes[0].Err)
	}
	if n := len(r.SkippedLayers); n > 0 {
		out += fmt.Sprintf(", %d layer(s) held back: %v", n, r.SkippedLayers[0].Err)
	}
	return out
}

func clamp(idx, n int) int {
	if n == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// resolveIndex maps 0 to the first entry and -1 to the last.
func resolveIndex(idx, n int) int {
	if n == 0 {
		return 0
	}
	if idx < 0 {
		return n - 1
	}
	return clamp(idx, n)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
