// Package app provides the orchestration layer for the inkstory
// application.
//
// # Overview
//
// This package wires together configuration, the bridge client, the
// session store and controller, templates, and the UI. It is the
// composition root where all dependencies are initialized and
// connected.
//
// # Architecture
//
// The app package follows a simple initialization pattern:
//
//  1. Load configuration from ~/.config/inkstory/config.toml
//  2. Load user preferences (theme, template selections)
//  3. Load shape and container templates, falling back to built-ins
//  4. Create the bridge client for the host socket
//  5. Build the session controller over a fresh store
//  6. Start the TUI and block until the user exits or ctx cancels
//
// There is no background polling. The host is the source of truth and
// the session refreshes on explicit user action (and automatically
// after every push), so a timer would only invite conflicts with
// in-progress edits.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file present but invalid
//   - Template directory present but holding an invalid template
//   - Session initialization failure (unknown template selection)
//
// Recoverable conditions (the UI surfaces them and keeps running):
//   - Host bridge unreachable at startup or any point after
//   - Individual documents or layers failing to parse
//
// # Configuration
//
// The Options struct allows callers to customize:
//
//   - ConfigPath: Path to config.toml (default: ~/.config/inkstory/config.toml)
//   - PrefsPath: Path to prefs.toml (default: ~/.config/inkstory/prefs.toml)
//   - ProjectDir: Folder scanned for dormant document archives
package app
