// Package module implements the module loader: a zip bundle format with an
// appended signature trailer, a load sequence that verifies that signature
// and consults a trust resolver, and a require-root file resolution API
// for the loaded bundle's scripts.
//
// The overall shape is "verify, then resolve trust": check a signature
// against an embedded key, then separately decide whether to trust the
// key itself, with an HTTP-fetch fallback in resolveModulePath for module
// names that look like URLs.
package module

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the small mapping extracted from a bundle's manifest.yaml.
type Manifest struct {
	Name    string `yaml:"name"`
	UNSName string `yaml:"UNS_name,omitempty"`
}

// ParseManifest decodes manifest.yaml's contents.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest.yaml: %w", err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("manifest.yaml is missing required field 'name'")
	}
	return m, nil
}
