package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"panelbridge/internal/media"
)

// overlayFile is the on-disk shape of a user model catalog:
//
//	models:
//	  - provider: local
//	    key: qwen
//	    display_name: Qwen 2.5
//	    wire_code: qwen2.5
//	    kinds: [text]
//	    max_input_bytes: 1048576
//	    default: true
type overlayFile struct {
	Models []overlayModel `yaml:"models"`
}

type overlayModel struct {
	Provider      string   `yaml:"provider"`
	Key           string   `yaml:"key"`
	DisplayName   string   `yaml:"display_name"`
	WireCode      string   `yaml:"wire_code"`
	Kinds         []string `yaml:"kinds"`
	MaxInputBytes int64    `yaml:"max_input_bytes"`
	Default       bool     `yaml:"default"`
}

// LoadOverlay merges user-declared models from a YAML file into the registry.
// Entries replace built-ins with the same (provider, key). Called once during
// startup, before the registry is shared.
func (r *Registry) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read models file: %w", err)
	}

	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse models file: %w", err)
	}

	for _, m := range file.Models {
		provider, err := ParseProvider(m.Provider)
		if err != nil {
			return fmt.Errorf("models file entry %q: %w", m.Key, err)
		}
		if m.Key == "" {
			return fmt.Errorf("models file entry for %s missing key", provider)
		}

		kinds, err := parseKinds(m.Kinds)
		if err != nil {
			return fmt.Errorf("models file entry %q: %w", m.Key, err)
		}

		r.add(provider, m.Key, ModelDescriptor{
			DisplayName:   m.DisplayName,
			WireCode:      m.WireCode,
			Kinds:         kinds,
			MaxInputBytes: m.MaxInputBytes,
		})
		if m.Default {
			r.defaults[provider] = m.Key
		}
	}
	return nil
}

func parseKinds(names []string) (media.KindSet, error) {
	if len(names) == 0 {
		return media.NewKindSet(media.KindText), nil
	}
	kinds := make([]media.Kind, 0, len(names))
	for _, name := range names {
		kind, err := media.ParseKind(name)
		if err != nil {
			return 0, err
		}
		kinds = append(kinds, kind)
	}
	return media.NewKindSet(kinds...), nil
}
