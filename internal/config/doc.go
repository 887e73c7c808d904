// Package config handles configuration loading for strand.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from STRAND_CONFIG environment variable
//  2. ~/.config/strand/strand.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  path: "${STRAND_DATA_DIR}/strand.db"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "localhost:8080"
//
// Database:
//
//	database:
//	  path: "~/.local/share/strand/strand.db"
//
// Responder:
//
//	responder:
//	  delay: "600ms"                 # time.ParseDuration syntax
//	  persona: "persona.toml"        # optional keyword/reply rules
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates that the HTTP address and database path are present and
// that the responder delay parses and is not negative.
package config
