package contract

import (
	"errors"
	"fmt"
	"strings"
)

// FieldType is the primitive JSON kind a record field must carry.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
)

// Valid reports whether t is a supported primitive kind.
func (t FieldType) Valid() bool {
	return t == FieldString || t == FieldNumber
}

// Field is one required property of every record in a generated list.
type Field struct {
	Name string
	Type FieldType
}

// RecordShape is the ordered set of required fields for one record.
type RecordShape []Field

// AnonymousFields builds n string-or-number fields named prefix-1..prefix-n,
// e.g. AnonymousFields("customer-pain", 3, FieldString).
func AnonymousFields(prefix string, n int, t FieldType) RecordShape {
	shape := make(RecordShape, 0, n)
	for i := 1; i <= n; i++ {
		shape = append(shape, Field{Name: fmt.Sprintf("%s-%d", prefix, i), Type: t})
	}
	return shape
}

// Spec is the declarative input to New.
type Spec struct {
	TaskName       string
	FunctionName   string
	Description    string
	ArrayFieldName string
	Record         RecordShape
	// SiblingField names an optional top-level string that accompanies the
	// list and is copied onto every record after validation.
	SiblingField string
}

// GenerationContract describes the exact structured output a generation task
// requires. It is immutable after New returns.
type GenerationContract struct {
	taskName       string
	functionName   string
	description    string
	arrayFieldName string
	record         RecordShape
	siblingField   string
	outputSchema   map[string]any
}

var (
	ErrMissingTaskName     = errors.New("contract: task name is required")
	ErrMissingFunctionName = errors.New("contract: function name is required")
	ErrMissingArrayField   = errors.New("contract: array field name is required")
	ErrEmptyRecord         = errors.New("contract: record shape needs at least one field")
)

// New validates spec and returns the contract with its derived output schema.
func New(spec Spec) (*GenerationContract, error) {
	if strings.TrimSpace(spec.TaskName) == "" {
		return nil, ErrMissingTaskName
	}
	if strings.TrimSpace(spec.FunctionName) == "" {
		return nil, ErrMissingFunctionName
	}
	if strings.TrimSpace(spec.ArrayFieldName) == "" {
		return nil, ErrMissingArrayField
	}
	if len(spec.Record) == 0 {
		return nil, ErrEmptyRecord
	}

	seen := make(map[string]bool, len(spec.Record))
	for _, f := range spec.Record {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("contract %s: field with empty name", spec.TaskName)
		}
		if !f.Type.Valid() {
			return nil, fmt.Errorf("contract %s: field %q has unsupported type %q", spec.TaskName, f.Name, f.Type)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("contract %s: duplicate field %q", spec.TaskName, f.Name)
		}
		seen[f.Name] = true
	}
	if spec.SiblingField == spec.ArrayFieldName {
		return nil, fmt.Errorf("contract %s: sibling field collides with array field %q", spec.TaskName, spec.ArrayFieldName)
	}

	record := make(RecordShape, len(spec.Record))
	copy(record, spec.Record)

	c := &GenerationContract{
		taskName:       spec.TaskName,
		functionName:   spec.FunctionName,
		description:    spec.Description,
		arrayFieldName: spec.ArrayFieldName,
		record:         record,
		siblingField:   spec.SiblingField,
	}
	c.outputSchema = buildOutputSchema(c)
	return c, nil
}

// MustNew is New for package-level contracts; it panics on an invalid spec.
func MustNew(spec Spec) *GenerationContract {
	c, err := New(spec)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *GenerationContract) TaskName() string       { return c.taskName }
func (c *GenerationContract) FunctionName() string   { return c.functionName }
func (c *GenerationContract) Description() string    { return c.description }
func (c *GenerationContract) ArrayFieldName() string { return c.arrayFieldName }
func (c *GenerationContract) SiblingField() string   { return c.siblingField }

// HasSibling reports whether a top-level scalar must accompany the list.
func (c *GenerationContract) HasSibling() bool { return c.siblingField != "" }

// Record returns a copy of the per-record field table.
func (c *GenerationContract) Record() RecordShape {
	out := make(RecordShape, len(c.record))
	copy(out, c.record)
	return out
}

// OutputSchema returns a deep copy of the JSON Schema handed to the model.
func (c *GenerationContract) OutputSchema() map[string]any {
	return buildOutputSchema(c)
}

// FieldNames lists the record field names in declaration order.
func (c *GenerationContract) FieldNames() []string {
	names := make([]string, len(c.record))
	for i, f := range c.record {
		names[i] = f.Name
	}
	return names
}

func buildOutputSchema(c *GenerationContract) map[string]any {
	itemProps := make(map[string]any, len(c.record))
	for _, f := range c.record {
		itemProps[f.Name] = map[string]any{"type": string(f.Type)}
	}

	props := map[string]any{
		c.arrayFieldName: map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":       "object",
				"properties": itemProps,
				"required":   c.FieldNames(),
			},
		},
	}
	required := []string{c.arrayFieldName}
	if c.HasSibling() {
		props[c.siblingField] = map[string]any{"type": "string"}
		required = append(required, c.siblingField)
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
