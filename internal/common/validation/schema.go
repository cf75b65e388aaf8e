// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"scout-workers/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a JSON Schema document expressed as a Go map.
type Schema map[string]interface{}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validate checks doc against schema. doc may be a map or a struct with json tags.
func Validate(schema Schema, doc interface{}) (*ValidationResult, error) {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(map[string]interface{}(schema)), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return vr, nil
}

// Check is Validate folded into a single INVALID_INPUT error.
func Check(schema Schema, doc interface{}) error {
	vr, err := Validate(schema, doc)
	if err != nil {
		return errors.NewInvalidInputError(err.Error())
	}
	if !vr.Valid {
		return errors.NewInvalidInputError(strings.Join(vr.GetErrorMessages(), "; "))
	}
	return nil
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// StringList is a schema fragment for an optional array of strings.
func StringList() map[string]interface{} {
	return map[string]interface{}{
		"type":  []interface{}{"array", "null"},
		"items": map[string]interface{}{"type": "string"},
	}
}
