package schema

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/joseph-ayodele/property-intake/constants"
)

// Overlay adds fields to the static tables at startup, e.g.
//
//	types:
//	  tax_bill:
//	    fields:
//	      - name: school_district
//	        type: string
//	    required: [account_number]
type Overlay struct {
	Types map[string]OverlayType `yaml:"types"`
}

// OverlayType is the per-type section of an overlay file.
type OverlayType struct {
	Fields   []Field  `yaml:"fields"`
	Required []string `yaml:"required"`
}

// ParseOverlay decodes overlay YAML.
func ParseOverlay(data []byte) (*Overlay, error) {
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode schema overlay: %w", err)
	}
	return &o, nil
}

// LoadOverlay reads path and returns a new registry with the overlay applied
// on top of base. base is left untouched.
func LoadOverlay(base *Registry, path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema overlay: %w", err)
	}
	o, err := ParseOverlay(data)
	if err != nil {
		return nil, err
	}
	return base.WithOverlay(o)
}

// WithOverlay returns a new registry with o applied. New fields must not
// collide with existing names; required entries must name an existing field.
func (r *Registry) WithOverlay(o *Overlay) (*Registry, error) {
	defs := r.definitionsOf()
	for name, ot := range o.Types {
		t, ok := constants.ParseDocumentType(name)
		if !ok || t == constants.Unknown {
			return nil, fmt.Errorf("schema overlay: unsupported document type %q", name)
		}
		fields := append(defs[t], ot.Fields...)
		for _, req := range ot.Required {
			found := false
			for i := range fields {
				if fields[i].Name == req {
					fields[i].Required = true
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("schema overlay: %s requires unknown field %q", t, req)
			}
		}
		defs[t] = fields
	}
	return NewRegistry(defs)
}
