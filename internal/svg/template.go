package svg

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Placeholder tokens form a small closed set shared by every template.
// Completeness is checked when a template loads, so a missing token is a
// load-time failure rather than a silent bad write.
const (
	TokenShapeID = "SHAPE_ID"
	TokenText    = "TEXT_TO_REPLACE"
	TokenSlot    = "TEXT_TAG_TO_REPLACE"
)

// ShapeTemplate is an element skeleton for one new text shape, with id
// and text placeholders.
type ShapeTemplate struct {
	Name string
	raw  string
}

// LoadShapeTemplate validates a shape template. The skeleton must carry
// both placeholders and must parse once they are resolved.
func LoadShapeTemplate(name, raw string) (ShapeTemplate, error) {
	if !strings.Contains(raw, TokenShapeID) {
		return ShapeTemplate{}, fmt.Errorf("shape template %s: missing %s placeholder", name, TokenShapeID)
	}
	if !strings.Contains(raw, TokenText) {
		return ShapeTemplate{}, fmt.Errorf("shape template %s: missing %s placeholder", name, TokenText)
	}
	if strings.Contains(raw, TokenSlot) {
		return ShapeTemplate{}, fmt.Errorf("shape template %s: unexpected %s placeholder", name, TokenSlot)
	}
	t := ShapeTemplate{Name: name, raw: strings.TrimSpace(raw)}
	probe, err := t.Instantiate("probe0", "probe")
	if err != nil {
		return ShapeTemplate{}, fmt.Errorf("shape template %s: %w", name, err)
	}
	f, err := Parse("<svg>" + probe + "</svg>")
	if err != nil {
		return ShapeTemplate{}, fmt.Errorf("shape template %s: %w", name, err)
	}
	if shapes := f.Shapes(); len(shapes) != 1 || shapes[0].ID != "probe0" {
		return ShapeTemplate{}, fmt.Errorf("shape template %s: must produce exactly one text element with the id placeholder", name)
	}
	return t, nil
}

// Instantiate resolves the id and text placeholders. inner must already
// be valid inner markup (escaped plain text plus verbatim spans).
func (t ShapeTemplate) Instantiate(id, inner string) (string, error) {
	out := strings.ReplaceAll(t.raw, TokenShapeID, id)
	out = strings.ReplaceAll(out, TokenText, inner)
	if strings.Contains(out, TokenShapeID) || strings.Contains(out, TokenText) {
		return "", &SynthesisError{Reason: "unresolved placeholder in shape template " + t.Name}
	}
	return out, nil
}

// ContainerTemplate is a markup scaffold with a single slot for
// assembled shape elements.
type ContainerTemplate struct {
	Name string
	raw  string
}

// LoadContainerTemplate validates a container template: exactly one slot
// placeholder, and a well-formed scaffold once the slot is cleared.
func LoadContainerTemplate(name, raw string) (ContainerTemplate, error) {
	if n := strings.Count(raw, TokenSlot); n != 1 {
		return ContainerTemplate{}, fmt.Errorf("container template %s: want exactly one %s placeholder, have %d", name, TokenSlot, n)
	}
	t := ContainerTemplate{Name: name, raw: strings.TrimSpace(raw)}
	if _, err := Parse(strings.Replace(t.raw, TokenSlot, "", 1)); err != nil {
		return ContainerTemplate{}, fmt.Errorf("container template %s: %w", name, err)
	}
	return t, nil
}

// Fill inserts assembled shape elements into the slot and validates the
// result.
func (t ContainerTemplate) Fill(elements []string) (string, error) {
	out := strings.Replace(t.raw, TokenSlot, strings.Join(elements, "\n"), 1)
	if strings.Contains(out, TokenSlot) {
		return "", &SynthesisError{Reason: "unresolved placeholder in container template " + t.Name}
	}
	if _, err := Parse(out); err != nil {
		return "", &SynthesisError{Reason: fmt.Sprintf("container template %s result not well-formed: %v", t.Name, err)}
	}
	return out, nil
}

// TemplateSet holds every template found in the template directory,
// classified by the placeholders each file carries.
type TemplateSet struct {
	Containers map[string]ContainerTemplate
	Shapes     map[string]ShapeTemplate
}

// LoadTemplateDir reads every .svg file in dir. Files carrying the slot
// placeholder load as container templates, the rest as shape templates.
func LoadTemplateDir(dir string) (*TemplateSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}
	set := &TemplateSet{
		Containers: make(map[string]ContainerTemplate),
		Shapes:     make(map[string]ShapeTemplate),
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".svg") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), ".svg")
		content := string(raw)
		if strings.Contains(content, TokenSlot) {
			t, err := LoadContainerTemplate(name, content)
			if err != nil {
				return nil, err
			}
			set.Containers[name] = t
		} else {
			t, err := LoadShapeTemplate(name, content)
			if err != nil {
				return nil, err
			}
			set.Shapes[name] = t
		}
	}
	return set, nil
}

// ShapeNames returns the shape template names, sorted.
func (s *TemplateSet) ShapeNames() []string {
	names := make([]string, 0, len(s.Shapes))
	for name := range s.Shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContainerNames returns the container template names, sorted.
func (s *TemplateSet) ContainerNames() []string {
	names := make([]string, 0, len(s.Containers))
	for name := range s.Containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const defaultContainerRaw = `<svg xmlns="http://www.w3.org/2000/svg" xmlns:krita="http://krita.org/namespaces/svg/krita" width="100" height="100" viewBox="0 0 100 100">
TEXT_TAG_TO_REPLACE
</svg>`

const defaultShapeRaw = `<text id="SHAPE_ID" krita:textVersion="3" transform="translate(10, 20)" fill="#000000" stroke-width="0" style="font-size: 12;white-space: pre-wrap;">TEXT_TO_REPLACE</text>`

// DefaultTemplates returns the built-in template set used when no
// template directory exists, so the tool works without configuration.
func DefaultTemplates() *TemplateSet {
	container, err := LoadContainerTemplate("default", defaultContainerRaw)
	if err != nil {
		panic("built-in container template invalid: " + err.Error())
	}
	shape, err := LoadShapeTemplate("default", defaultShapeRaw)
	if err != nil {
		panic("built-in shape template invalid: " + err.Error())
	}
	return &TemplateSet{
		Containers: map[string]ContainerTemplate{"default": container},
		Shapes:     map[string]ShapeTemplate{"default": shape},
	}
}
