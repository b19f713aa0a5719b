package codec

import (
	"fmt"
	"strings"
)

// Schema limits.
const (
	MaxFieldNameLen = 256
	MaxFields       = 4096
)

// FieldSpec declares one attribute of a persistable type.
type FieldSpec struct {
	Name     string // Attribute name, unique within the type
	Kind     Kind   // Required value kind
	Optional bool   // Field may be absent or null
}

// Migration upgrades a record in place from version v to v+1.
type Migration func(rec *Record) error

// TypeSpec describes how a persistable type is written and reconstructed.
type TypeSpec struct {
	Name       string             // Type tag stored in payloads
	Version    int                // Current schema version (>= 1)
	MinVersion int                // Oldest version still readable; 0 means 1
	Fields     []FieldSpec        // Declared attributes in storage order
	New        func() Persistable // Constructor used on load
	Migrations map[int]Migration  // Upgrade step from key version to key+1
}

func (s *TypeSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("type spec: empty name")
	}
	if strings.ContainsAny(s.Name, "\x00\n") {
		return fmt.Errorf("type spec %q: name contains control characters", s.Name)
	}
	if s.Version < 1 {
		return fmt.Errorf("type spec %q: version must be >= 1, got %d", s.Name, s.Version)
	}
	if s.MinVersion == 0 {
		s.MinVersion = 1
	}
	if s.MinVersion < 1 || s.MinVersion > s.Version {
		return fmt.Errorf("type spec %q: min version %d outside 1..%d", s.Name, s.MinVersion, s.Version)
	}
	if s.New == nil {
		return fmt.Errorf("type spec %q: missing constructor", s.Name)
	}
	if len(s.Fields) > MaxFields {
		return fmt.Errorf("type spec %q: %d fields exceeds max %d", s.Name, len(s.Fields), MaxFields)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" || len(f.Name) > MaxFieldNameLen {
			return fmt.Errorf("type spec %q: invalid field name %q", s.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("type spec %q: duplicate field %q", s.Name, f.Name)
		}
		if f.Kind == KindNull || f.Kind > KindObject {
			return fmt.Errorf("type spec %q: field %q has invalid kind %s", s.Name, f.Name, f.Kind)
		}
		seen[f.Name] = true
	}
	for from := range s.Migrations {
		if from < s.MinVersion || from >= s.Version {
			return fmt.Errorf("type spec %q: migration from %d outside %d..%d",
				s.Name, from, s.MinVersion, s.Version-1)
		}
	}
	return nil
}

func (s *TypeSpec) field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// conform checks rec against the schema and reorders its fields into schema order,
// so that equal object states always encode to identical bytes.
func (s *TypeSpec) conform(rec *Record) error {
	for _, f := range rec.Fields {
		if _, ok := s.field(f.Name); !ok {
			return &SchemaError{Type: s.Name, Field: f.Name, Details: "field not declared in schema"}
		}
	}

	ordered := make([]Field, 0, len(s.Fields))
	for _, spec := range s.Fields {
		v, ok := rec.Get(spec.Name)
		if !ok || v.Kind == KindNull {
			if !spec.Optional {
				return &SchemaError{Type: s.Name, Field: spec.Name, Details: "required field missing"}
			}
			if !ok {
				continue
			}
		} else if v.Kind != spec.Kind {
			return &SchemaError{Type: s.Name, Field: spec.Name,
				Details: fmt.Sprintf("expected %s, got %s", spec.Kind, v.Kind)}
		}
		ordered = append(ordered, Field{Name: spec.Name, Value: v})
	}
	rec.Fields = ordered
	return nil
}
