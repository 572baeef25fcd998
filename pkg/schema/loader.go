package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFS walks fsys and parses every JSON/YAML file as a form document. A nil
// fsys yields an empty store. Form ids must be unique across files.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]FormSpec)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		doc, err := Parse(data, path)
		if err != nil {
			return err
		}
		for id, spec := range doc.Forms {
			if existing, exists := store.forms[id]; exists {
				return fmt.Errorf("schema: duplicate form %q (files %s and %s)", id, existing.Source, path)
			}
			store.forms[id] = spec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Form returns the definition for id.
func (s *Store) Form(id string) (FormSpec, bool) {
	if s == nil {
		return FormSpec{}, false
	}
	spec, ok := s.forms[strings.TrimSpace(id)]
	return spec, ok
}

// IDs lists the loaded form ids, sorted.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

// Document is the parsed content of one file.
type Document struct {
	Source string
	Forms  map[string]FormSpec
}

type documentFile struct {
	Forms map[string]FormSpec `json:"forms" yaml:"forms"`
}

// Parse decodes a JSON or YAML document. source names the origin in errors.
func Parse(data []byte, source string) (Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Document{}, fmt.Errorf("schema: file %s is empty", source)
	}

	var raw documentFile
	if jsonErr := json.Unmarshal(data, &raw); jsonErr != nil {
		raw = documentFile{}
		if yamlErr := yaml.Unmarshal(data, &raw); yamlErr != nil {
			return Document{}, fmt.Errorf("schema: parse %s: invalid JSON or YAML: %w", source, yamlErr)
		}
	}

	doc := Document{Source: source, Forms: make(map[string]FormSpec, len(raw.Forms))}
	for key, spec := range raw.Forms {
		id := strings.TrimSpace(key)
		if id == "" {
			return Document{}, fmt.Errorf("schema: file %s defines an empty form id", source)
		}
		spec.ID = id
		spec.Source = source
		if err := normaliseForm(&spec); err != nil {
			return Document{}, err
		}
		doc.Forms[id] = spec
	}
	return doc, nil
}

// Form returns the form declared under id.
func (d Document) Form(id string) (FormSpec, bool) {
	spec, ok := d.Forms[strings.TrimSpace(id)]
	return spec, ok
}

func normaliseForm(spec *FormSpec) error {
	seen := make(map[string]struct{})
	for si := range spec.Sections {
		section := &spec.Sections[si]
		section.ID = strings.TrimSpace(section.ID)
		for fi := range section.Fields {
			field := &section.Fields[fi]
			field.ID = strings.TrimSpace(field.ID)
			field.Path = strings.TrimSpace(field.Path)
			field.Type = strings.TrimSpace(field.Type)
			if field.ID == "" {
				field.ID = field.Path
			}
			if field.Path == "" {
				field.Path = field.ID
			}
			if field.ID == "" {
				return fmt.Errorf("schema: form %q (file %s) section %d field %d needs an id or path", spec.ID, spec.Source, si, fi)
			}
			if field.Type == "" {
				return fmt.Errorf("schema: form %q (file %s) field %q has no type", spec.ID, spec.Source, field.ID)
			}
			if _, dup := seen[field.ID]; dup {
				return fmt.Errorf("schema: form %q (file %s) defines duplicate field %q", spec.ID, spec.Source, field.ID)
			}
			seen[field.ID] = struct{}{}
		}
	}
	return nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
