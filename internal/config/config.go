package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the fields inkstory needs to reach the host bridge
// and the project folder.
type Config struct {
	BridgeSocket   string
	ProjectDir     string
	TemplateDir    string
	RequestTimeout time.Duration
}

const (
	defaultConfigPath   = "~/.config/inkstory/config.toml"
	defaultBridgeSocket = "/tmp/krita_story_editor_bridge"
	defaultTemplateDir  = "~/.config/inkstory/templates"
	defaultTimeout      = 5 * time.Second
)

// Load locates and parses the config file, falling back to defaults
// when it is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BridgeSocket:   defaultBridgeSocket,
		TemplateDir:    mustExpand(defaultTemplateDir),
		RequestTimeout: defaultTimeout,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BridgeSocket     string `toml:"bridge_socket"`
		ProjectDir       string `toml:"project_dir"`
		TemplateDir      string `toml:"template_dir"`
		RequestTimeoutMS int    `toml:"request_timeout_ms"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if socket := strings.TrimSpace(raw.BridgeSocket); socket != "" {
		cfg.BridgeSocket = socket
	}
	if dir := strings.TrimSpace(raw.ProjectDir); dir != "" {
		cfg.ProjectDir = mustExpand(dir)
	}
	if dir := strings.TrimSpace(raw.TemplateDir); dir != "" {
		cfg.TemplateDir = mustExpand(dir)
	}
	if raw.RequestTimeoutMS > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutMS) * time.Millisecond
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
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
