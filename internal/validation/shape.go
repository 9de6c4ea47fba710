package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/journey-api/internal/contract"
	"github.com/xeipuuv/gojsonschema"
)

// Record is one validated element of the generated list. Keys beyond the
// contract's required fields are kept as the model sent them.
type Record map[string]any

// Validated is the accepted payload.
type Validated struct {
	Records    []Record
	Sibling    string
	HasSibling bool
}

// Violation names one reason a payload was rejected.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ShapeError rejects the whole batch; no partial list is ever returned with it.
type ShapeError struct {
	Task       string
	Violations []Violation
}

func (e *ShapeError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("%s: payload does not match contract", e.Task)
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		if v.Field == "" {
			msgs[i] = v.Message
			continue
		}
		msgs[i] = v.Field + ": " + v.Message
	}
	return fmt.Sprintf("%s: payload does not match contract: %s", e.Task, strings.Join(msgs, "; "))
}

// Validate checks a decoded JSON value against c and returns the records.
// Numbers may be float64 or json.Number; a string such as "3" never counts
// as a number.
func Validate(payload any, c *contract.GenerationContract) (*Validated, error) {
	root, ok := payload.(map[string]any)
	if !ok {
		return nil, shapeError(c, "", fmt.Sprintf("expected object, got %s", kindOf(payload)))
	}

	if err := validateSchema(root, c); err != nil {
		return nil, err
	}

	// The schema pass already enforced everything below; the walk extracts
	// records and keeps the check independent of schema library quirks.
	rawList, present := root[c.ArrayFieldName()]
	if !present {
		return nil, shapeError(c, c.ArrayFieldName(), "required field missing")
	}
	list, ok := rawList.([]any)
	if !ok {
		return nil, shapeError(c, c.ArrayFieldName(), fmt.Sprintf("expected array, got %s", kindOf(rawList)))
	}

	fields := c.Record()
	records := make([]Record, 0, len(list))
	for i, item := range list {
		path := fmt.Sprintf("%s[%d]", c.ArrayFieldName(), i)
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, shapeError(c, path, fmt.Sprintf("expected object, got %s", kindOf(item)))
		}
		for _, f := range fields {
			v, present := obj[f.Name]
			if !present {
				return nil, shapeError(c, path+"."+f.Name, "required field missing")
			}
			if !matches(v, f.Type) {
				return nil, shapeError(c, path+"."+f.Name, fmt.Sprintf("expected %s, got %s", f.Type, kindOf(v)))
			}
		}
		records = append(records, Record(obj))
	}

	out := &Validated{Records: records}
	if c.HasSibling() {
		raw, present := root[c.SiblingField()]
		if !present {
			return nil, shapeError(c, c.SiblingField(), "required field missing")
		}
		s, ok := raw.(string)
		if !ok {
			return nil, shapeError(c, c.SiblingField(), fmt.Sprintf("expected string, got %s", kindOf(raw)))
		}
		out.Sibling = s
		out.HasSibling = true
	}
	return out, nil
}

func validateSchema(root map[string]any, c *contract.GenerationContract) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(c.OutputSchema()),
		gojsonschema.NewGoLoader(root),
	)
	if err != nil {
		return shapeError(c, "", fmt.Sprintf("schema evaluation failed: %v", err))
	}
	if result.Valid() {
		return nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, Violation{
			Field:   strings.TrimPrefix(desc.Field(), "(root)."),
			Message: desc.Description(),
		})
	}
	return &ShapeError{Task: c.TaskName(), Violations: violations}
}

func matches(v any, t contract.FieldType) bool {
	switch t {
	case contract.FieldString:
		_, ok := v.(string)
		return ok
	case contract.FieldNumber:
		switch n := v.(type) {
		case float64, float32, int, int32, int64:
			return true
		case json.Number:
			_, err := n.Float64()
			return err == nil
		}
	}
	return false
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func shapeError(c *contract.GenerationContract, field, msg string) *ShapeError {
	return &ShapeError{Task: c.TaskName(), Violations: []Violation{{Field: field, Message: msg}}}
}
