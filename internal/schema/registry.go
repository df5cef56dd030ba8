// Package schema is the static table of document types and the fields the
// extractor asks for on each of them.
package schema

import (
	"fmt"
	"sync"

	"github.com/joseph-ayodele/property-intake/constants"
)

// FieldType is the scalar type a field value is coerced to.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeDate   FieldType = "date"
)

func (t FieldType) valid() bool {
	return t == TypeString || t == TypeNumber || t == TypeDate
}

// Field is one extractable field of a document type.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required,omitempty" yaml:"required"`
}

// Schema is the immutable field list of one document type.
type Schema struct {
	docType constants.DocumentType
	fields  []Field
	index   map[string]int

	envOnce sync.Once
	env     *compiledSchema
	envErr  error
}

func newSchema(t constants.DocumentType, fields []Field) (*Schema, error) {
	s := &Schema{docType: t, fields: make([]Field, 0, len(fields)), index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: empty field name", t)
		}
		if !f.Type.valid() {
			return nil, fmt.Errorf("schema %s: field %q has unsupported type %q", t, f.Name, f.Type)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", t, f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// DocumentType returns the type this schema belongs to.
func (s *Schema) DocumentType() constants.DocumentType { return s.docType }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the ordered field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Position returns the declaration index of name, or -1.
func (s *Schema) Position(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Required returns the required field names in declaration order.
func (s *Schema) Required() []string {
	var out []string
	for _, f := range s.fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Registry maps every DocumentType to its Schema. It is read-only once built.
type Registry struct {
	schemas map[constants.DocumentType]*Schema
}

// NewRegistry validates defs and builds a registry. Types missing from defs
// get an empty schema, so Lookup never returns nil for a member of the set.
func NewRegistry(defs map[constants.DocumentType][]Field) (*Registry, error) {
	r := &Registry{schemas: make(map[constants.DocumentType]*Schema, len(defs))}
	for t := range defs {
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown document type %q", t)
		}
	}
	for _, t := range constants.AllDocumentTypes() {
		fields := defs[t]
		if t == constants.Unknown && len(fields) > 0 {
			return nil, fmt.Errorf("document type %q cannot define fields", t)
		}
		s, err := newSchema(t, fields)
		if err != nil {
			return nil, err
		}
		r.schemas[t] = s
	}
	return r, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the static tables. It panics if
// the tables are inconsistent, which is a programming error.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(definitions())
		if err != nil {
			panic(fmt.Sprintf("schema: invalid static definitions: %v", err))
		}
		defaultReg = r
	})
	return defaultReg
}

// Lookup returns the schema for t; unrecognized types get the unknown schema.
func (r *Registry) Lookup(t constants.DocumentType) *Schema {
	if s, ok := r.schemas[t]; ok {
		return s
	}
	return r.schemas[constants.Unknown]
}

// Types lists the registered types in the canonical order.
func (r *Registry) Types() []constants.DocumentType {
	return constants.AllDocumentTypes()
}

// definitionsOf copies the registry back into plain definitions.
func (r *Registry) definitionsOf() map[constants.DocumentType][]Field {
	out := make(map[constants.DocumentType][]Field, len(r.schemas))
	for t, s := range r.schemas {
		out[t] = s.Fields()
	}
	return out
}
