// Package configs provides the embedded configuration template.
//
// The template is embedded at build time so 'guidemcp config init' works in
// every distribution, source builds and binary releases alike.
package configs

import _ "embed"

// ConfigTemplate is the annotated template written by 'guidemcp config init'
// to ~/.config/guidemcp/config.yaml.
//
//go:embed config.example.yaml
var ConfigTemplate string
