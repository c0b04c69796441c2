// Package config loads the lattice TOML configuration.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/lattice/config.toml
//  3. If the file doesn't exist, use Default()
//  4. Fields missing from the file keep their defaults
//
// The result is validated with go-playground/validator; an unknown source
// kind or an out of range grid value is an error rather than a silent fix.
//
// # TOML Format
//
//	[source]
//	kind = "http"              # or "sqlite"
//	api_bind = "127.0.0.1:7490"
//	store_id = "orders"
//	database = "~/.local/share/lattice/lattice.db"
//
//	[cache]
//	max_blocks = 32
//	max_block_rows = 500
//
//	[grid]
//	row_height = 1
//	header_height = 1
//	frozen_rows = 0
//	frozen_cols = 1
//	rtl = false
//	page_rows = 200
//
//	[theme]
//	name = "Nightfox"          # built-in name
//	path = "~/themes/paper.yaml"
//
//	[log]
//	level = "info"
//	human = true
//
//	[poll]
//	seconds = 5
//
// Tilde expansion applies to the config path, the database and the theme path.
package config
