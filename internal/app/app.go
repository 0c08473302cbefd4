package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ptrask/inkstory/internal/bridge"
	"github.com/ptrask/inkstory/internal/config"
	"github.com/ptrask/inkstory/internal/prefs"
	"github.com/ptrask/inkstory/internal/session"
	"github.com/ptrask/inkstory/internal/state"
	"github.com/ptrask/inkstory/internal/svg"
	"github.com/ptrask/inkstory/internal/ui"
)

// Options configure the inkstory application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/inkstory/prefs.toml
	ProjectDir string // overrides the configured project folder
}

// Run boots the inkstory TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.ProjectDir != "" {
		cfg.ProjectDir = opts.ProjectDir
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	templates, err := loadTemplates(cfg.TemplateDir)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	client := bridge.NewClient(cfg.BridgeSocket, cfg.RequestTimeout)
	store := state.NewStore()

	ctrl, err := session.New(session.Options{
		Transport:         client,
		Store:             store,
		Templates:         templates,
		ShapeTemplate:     userPrefs.ShapeTemplate,
		ContainerTemplate: userPrefs.ContainerTemplate,
		ProjectDir:        cfg.ProjectDir,
	})
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}

	uiOpts := ui.Options{
		Controller: ctrl,
		ThemeName:  userPrefs.Theme,
		OnThemeChange: func(name string) {
			userPrefs.Theme = name
			if err := prefs.Save(opts.PrefsPath, userPrefs); err != nil {
				log.Printf("app: save prefs: %v", err)
			}
		},
	}
	return ui.Run(ctx, uiOpts)
}

// loadTemplates reads the template directory, falling back to the
// built-in set when the directory does not exist.
func loadTemplates(dir string) (*svg.TemplateSet, error) {
	set, err := svg.LoadTemplateDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return svg.DefaultTemplates(), nil
		}
		return nil, err
	}
	// An empty directory still needs usable defaults.
	defaults := svg.DefaultTemplates()
	if len(set.Shapes) == 0 {
		set.Shapes = defaults.Shapes
	}
	if len(set.Containers) == 0 {
		set.Containers = defaults.Containers
	}
	return set, nil
}
