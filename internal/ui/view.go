package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	docsPaneWidth   = 28
	layersPaneWidth = 24
	previewLimit    = 60
)

func (m *model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	if m.mode != editNone {
		return m.editorView()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.docsView(),
		m.layersView(),
		m.shapesView(),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.statusView(),
		m.help.View(m.keys),
	)
}

func (m *model) paneStyle(p pane) lipgloss.Style {
	if m.focus == p {
		return m.styles.PaneFocus
	}
	return m.styles.Pane
}

func (m *model) paneHeight() int {
	return maxInt(5, m.height-6)
}

func (m *model) docsView() string {
	var lines []string
	lines = append(lines, m.styles.PaneTitle.Render("Documents"))
	if len(m.docs) == 0 {
		lines = append(lines, m.styles.FaintText.Render("none"))
	}
	for i, doc := range m.docs {
		label := doc.Name
		if !doc.Opened {
			label += " (on disk)"
		}
		label = truncate(label, docsPaneWidth-4)
		if i == m.docIdx {
			lines = append(lines, m.styles.Selected.Render("> "+label))
		} else {
			lines = append(lines, m.styles.Text.Render("  "+label))
		}
	}
	return m.paneStyle(paneDocs).
		Width(docsPaneWidth).
		Height(m.paneHeight()).
		Render(strings.Join(lines, "\n"))
}

func (m *model) layersView() string {
	var lines []string
	lines = append(lines, m.styles.PaneTitle.Render("Layers"))
	doc, ok := m.currentDoc()
	if !ok || len(doc.Layers) == 0 {
		lines = append(lines, m.styles.FaintText.Render("none"))
	} else {
		for i, layer := range doc.Layers {
			label := layer.Name
			if label == "" {
				label = layer.ID
			}
			if layer.RawOnly {
				label += " [raw]"
			}
			label = truncate(label, layersPaneWidth-4)
			switch {
			case i == m.layerIdx:
				lines = append(lines, m.styles.Selected.Render("> "+label))
			case layer.RawOnly:
				lines = append(lines, m.styles.WarningText.Render("  "+label))
			default:
				lines = append(lines, m.styles.Text.Render("  "+label))
			}
		}
	}
	return m.paneStyle(paneLayers).
		Width(layersPaneWidth).
		Height(m.paneHeight()).
		Render(strings.Join(lines, "\n"))
}

func (m *model) shapesView() string {
	width := maxInt(30, m.width-docsPaneWidth-layersPaneWidth-6)
	var lines []string
	lines = append(lines, m.styles.PaneTitle.Render("Shapes"))

	layer, ok := m.currentLayer()
	if ok && layer.RawOnly {
		lines = append(lines, m.styles.WarningText.Render("Layer markup did not parse."))
		lines = append(lines, m.styles.FaintText.Render("Fix it in the host, then refresh."))
		lines = append(lines, "")
		lines = append(lines, m.rawLines(width)...)
	} else {
		shapes := m.currentShapes()
		if len(shapes) == 0 {
			lines = append(lines, m.styles.FaintText.Render("no text shapes"))
		}
		for i, shape := range shapes {
			marker := "  "
			if shape.Dirty {
				marker = "* "
			}
			preview := truncate(firstLine(shape.Text), width-10)
			label := marker + preview
			switch {
			case i == m.shapeIdx:
				lines = append(lines, m.styles.Selected.Render("> "+label))
			case shape.Dirty:
				lines = append(lines, m.styles.AccentText.Render("  "+label))
			default:
				lines = append(lines, m.styles.Text.Render("  "+label))
			}
		}
	}
	return m.paneStyle(paneShapes).
		Width(width).
		Height(m.paneHeight()).
		Render(strings.Join(lines, "\n"))
}

// rawLines renders the cached raw fragment for the selected raw-only
// layer, trimmed to the pane.
func (m *model) rawLines(width int) []string {
	doc, ok := m.currentDoc()
	layer, lok := m.currentLayer()
	if !ok || !lok || m.rawFor != rawKey(doc.Key(), layer.ID) {
		return []string{m.styles.FaintText.Render("Loading raw markup...")}
	}
	limit := maxInt(1, m.paneHeight()-5)
	var out []string
	for i, raw := range strings.Split(m.rawMarkup, "\n") {
		if i >= limit {
			out = append(out, m.styles.FaintText.Render("…"))
			break
		}
		out = append(out, m.styles.FaintText.Render(truncate(raw, width-4)))
	}
	return out
}

func (m *model) editorView() string {
	title := "Edit shape"
	if m.mode == editNewShapes {
		title = "New shapes"
	}
	hint := m.styles.FaintText.Render("esc applies and closes")
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.PaneTitle.Render(title),
		m.styles.PaneFocus.Render(m.editor.View()),
		hint,
		m.statusView(),
	)
}

func (m *model) statusView() string {
	phase := m.ctrl.Phase().String()
	if m.busy {
		phase = "working"
	}
	text := fmt.Sprintf("[%s] %s", phase, m.status)
	if m.statusErr {
		return m.styles.StatusBar.Render(m.styles.DangerText.Render(text))
	}
	return m.styles.StatusBar.Render(text)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "…"
	}
	return s
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
