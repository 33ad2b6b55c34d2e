package practice

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UnitFile is the top-level structure of a units YAML file, used to seed the
// store at startup.
//
// Example:
//
//	units:
//	  - id: daniel-3-1
//	    title: "Daniel 3, opening"
//	    deadline: 2026-06-01
//	    sentences:
//	      - "Nebuchadnezzar the king made an image of gold."
//	      - "He set it up in the plain of Dura."
type UnitFile struct {
	Units []UnitDefinition `yaml:"units"`
}

// UnitDefinition is one unit entry of a [UnitFile].
type UnitDefinition struct {
	ID        string    `yaml:"id"`
	Position  int       `yaml:"position"`
	Title     string    `yaml:"title"`
	Sentences []string  `yaml:"sentences"`
	Deadline  time.Time `yaml:"deadline"`
}

// LoadUnitFile reads and parses a units YAML file from disk.
func LoadUnitFile(path string) ([]Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("practice: open unit file %q: %w", path, err)
	}
	defer f.Close()

	units, err := LoadUnitsFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("practice: parse unit file %q: %w", path, err)
	}
	return units, nil
}

// LoadUnitsFromReader parses units YAML from r. Unknown fields are rejected
// so typos surface at startup instead of silently dropping configuration.
func LoadUnitsFromReader(r io.Reader) ([]Unit, error) {
	var uf UnitFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&uf); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	var errs []error
	seen := make(map[string]struct{}, len(uf.Units))
	units := make([]Unit, 0, len(uf.Units))
	for i, def := range uf.Units {
		if def.ID == "" {
			errs = append(errs, fmt.Errorf("unit %d: missing id", i))
			continue
		}
		if _, dup := seen[def.ID]; dup {
			errs = append(errs, fmt.Errorf("unit %d: duplicate id %q", i, def.ID))
			continue
		}
		seen[def.ID] = struct{}{}
		if len(def.Sentences) == 0 {
			errs = append(errs, fmt.Errorf("unit %q: no sentences", def.ID))
			continue
		}
		for j, s := range def.Sentences {
			if strings.TrimSpace(s) == "" {
				errs = append(errs, fmt.Errorf("unit %q: sentence %d is blank", def.ID, j))
			}
		}
		title := def.Title
		if title == "" {
			title = def.ID
		}
		pos := def.Position
		if pos == 0 {
			pos = i + 1 // file order
		}
		units = append(units, Unit{
			ID:        def.ID,
			Position:  pos,
			Title:     title,
			Sentences: def.Sentences,
			Deadline:  def.Deadline,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return units, nil
}
