package codecs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a configuration from a YAML or JSON file. The document has
// the same shape as the /api/config body:
//
//	problematic_codecs:
//	  audio: [dts, truehd]
//	  video: []
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read codec config %s: %w", path, err)
	}

	// YAML is a superset of JSON, one decoder handles both.
	var doc struct {
		ProblematicCodecs *Lists `yaml:"problematic_codecs"`
		Version           string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse codec config %s: %w", path, err)
	}
	if doc.ProblematicCodecs == nil {
		return Config{}, fmt.Errorf("parse codec config %s: %w", path, ErrMissingSection)
	}

	return Config{ProblematicCodecs: *doc.ProblematicCodecs, Version: doc.Version}.Normalize(), nil
}
