package domain

import (
	"slices"
	"time"
)

// FieldType enumerates the input kinds a template field can declare.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
)

var fieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeTextarea,
	FieldTypeNumber,
	FieldTypeDate,
	FieldTypeSelect,
	FieldTypeCheckbox,
}

// Valid reports whether f is a known field type.
func (f FieldType) Valid() bool {
	return slices.Contains(fieldTypes, f)
}

// TemplateField describes one structured input of a template.
type TemplateField struct {
	Name        string
	Label       string
	Type        FieldType
	Required    bool
	Options     []string
	Placeholder string
}

// Template is a reusable, versioned ticket layout. (Name, Version) is unique and
// at most one template is the default.
type Template struct {
	ID          string
	Name        string
	Description string
	Version     int
	Fields      []TemplateField
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a copy that shares no mutable state with t.
func (t Template) Clone() Template {
	out := t
	if t.Fields != nil {
		out.Fields = make([]TemplateField, len(t.Fields))
		for i, field := range t.Fields {
			field.Options = slices.Clone(field.Options)
			out.Fields[i] = field
		}
	}
	return out
}
