// Package config handles loading and parsing inkstory configuration files.
//
// # Overview
//
// This package reads inkstory's TOML configuration to discover the host
// bridge socket, the project folder holding dormant document archives,
// and the template directory.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/inkstory/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/inkstory/config.toml
//   - Bridge socket: /tmp/krita_story_editor_bridge
//   - Template directory: ~/.config/inkstory/templates
//   - Request timeout: 5 seconds
//   - Project directory: unset (dormant discovery disabled)
//
// # TOML Format
//
// Example config.toml:
//
//	bridge_socket = "/tmp/krita_story_editor_bridge"
//	project_dir = "~/comics/pages"
//	template_dir = "~/.config/inkstory/templates"
//	request_timeout_ms = 5000
//
// All fields are optional. Tilde expansion is performed automatically
// on the directory fields.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//
// Missing config files are NOT an error - defaults are used instead.
// This allows inkstory to work out-of-the-box against a host running
// its bridge on the default socket.
//
// # Design Philosophy
//
// The config package is read-only and stateless - it loads configuration
// once at startup and returns an immutable Config struct. No global state
// or singleton patterns are used.
package config
