// Package configs provides the embedded configuration templates written by
// `lexmind config init`.
//
// Configuration hierarchy (see internal/config Load):
//  1. Defaults (config.NewConfig)
//  2. User config ($XDG_CONFIG_HOME/lexmind/config.yaml)
//  3. Project config (.lexmind.yaml)
//  4. Environment variables (LEXMIND_*)
package configs

import _ "embed"

// UserConfigTemplate holds machine settings such as the embedding provider.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate holds corpus and retrieval settings.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
