// Package prefs handles inkstory user preferences persistence.
// Preferences are stored in ~/.config/inkstory/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for inkstory.
type Prefs struct {
	Theme             string `toml:"theme"`
	ShapeTemplate     string `toml:"shape_template"`
	ContainerTemplate string `toml:"container_template"`
}

const (
	defaultPrefsPath = "~/.config/inkstory/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path. Preferences are
// best-effort: a missing or unreadable file, or one that does not
// parse, yields the defaults instead of an error.
func Load(path string) (Prefs, error) {
	defaults := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return defaults, nil
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return defaults, nil
	}

	p := defaults
	if err := toml.Unmarshal(raw, &p); err != nil {
		return defaults, nil
	}
	return p.normalized(), nil
}

// Save writes preferences to the given path, creating directories as
// needed. Unlike Load, a failed save is reported.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve prefs path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	raw, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, raw, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// normalized trims stray whitespace and backfills the default theme,
// so theme and template lookups never see padded names.
func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	p.ShapeTemplate = strings.TrimSpace(p.ShapeTemplate)
	p.ContainerTemplate = strings.TrimSpace(p.ContainerTemplate)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	return p
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
