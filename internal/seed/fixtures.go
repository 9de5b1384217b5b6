package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"yatube/internal/service"
	"yatube/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed groups.yml
var defaultGroups []byte

type groupsFile struct {
	Groups []service.GroupInput `yaml:"groups"`
}

// DefaultGroups returns the built-in group fixtures.
func DefaultGroups() ([]service.GroupInput, error) {
	return decodeGroups(bytes.NewReader(defaultGroups))
}

// LoadGroups reads group fixtures from a YAML file.
func LoadGroups(path string) ([]service.GroupInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return decodeGroups(f)
}

func decodeGroups(r io.Reader) ([]service.GroupInput, error) {
	var file groupsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}

	seen := make(map[string]bool, len(file.Groups))
	for i, g := range file.Groups {
		if res := validation.Check(g); !res.Valid() {
			return nil, fmt.Errorf("group %d (%q): invalid %v", i, g.Slug, res.Errors.Fields())
		}
		if seen[g.Slug] {
			return nil, fmt.Errorf("group %d: duplicate slug %q", i, g.Slug)
		}
		seen[g.Slug] = true
	}
	return file.Groups, nil
}
