// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"scout-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	"type":     "object",
	"required": []interface{}{"url"},
	"properties": map[string]interface{}{
		"url":  map[string]interface{}{"type": "string", "minLength": 1},
		"tags": StringList(),
	},
}

type testDoc struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

func TestValidate_Valid(t *testing.T) {
	vr, err := Validate(testSchema, map[string]interface{}{"url": "acme.com", "tags": []interface{}{"ai"}})
	require.NoError(t, err)
	assert.True(t, vr.Valid)
	assert.Empty(t, vr.Errors)
}

func TestValidate_StructDocument(t *testing.T) {
	vr, err := Validate(testSchema, testDoc{URL: "acme.com"})
	require.NoError(t, err)
	assert.True(t, vr.Valid, vr.GetErrorMessages())
}

func TestValidate_ReportsFields(t *testing.T) {
	vr, err := Validate(testSchema, map[string]interface{}{"tags": []interface{}{1}})
	require.NoError(t, err)
	assert.False(t, vr.Valid)
	assert.Len(t, vr.Errors, 2)
	assert.True(t, vr.HasErrors("tags.0"))
}

func TestValidate_EmptySchemaAcceptsAnything(t *testing.T) {
	vr, err := Validate(nil, "anything")
	require.NoError(t, err)
	assert.True(t, vr.Valid)
}

func TestCheck_InvalidInput(t *testing.T) {
	err := Check(testSchema, testDoc{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "url")

	assert.NoError(t, Check(testSchema, testDoc{URL: "x"}))
}
