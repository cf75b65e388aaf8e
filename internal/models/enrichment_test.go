// internal/models/enrichment_test.go
package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestNormalizeEnrichment_WellFormed(t *testing.T) {
	raw := decode(t, `{
		"summary": " Acme builds warehouse robots. ",
		"what_they_do": ["Robots", "Fleet software", "Support"],
		"keywords": ["robotics", "logistics", "ai", "automation", "warehouse"],
		"derived_signals": ["Hiring engineers", "Recent changelog"],
		"facts": {
			"location": "Berlin",
			"employee_count": "51-200",
			"founded_year": 2019,
			"total_funding": "$12M",
			"stage": "Series A",
			"confidence": {"location": 0.9, "employee_count": 0.4, "founded_year": 0.8, "total_funding": 0.5, "stage": 0.7}
		}
	}`)

	rec := NormalizeEnrichment(raw)
	assert.Equal(t, "Acme builds warehouse robots.", rec.Summary)
	assert.Len(t, rec.WhatTheyDo, 3)
	assert.Len(t, rec.Keywords, 5)
	require.NotNil(t, rec.Facts)
	require.NotNil(t, rec.Facts.FoundedYear)
	assert.Equal(t, 2019, *rec.Facts.FoundedYear)
	assert.Equal(t, "Series A", *rec.Facts.Stage)
	assert.Equal(t, 0.9, rec.Facts.Confidence["location"])
}

func TestNormalizeEnrichment_CoercesBadFields(t *testing.T) {
	raw := decode(t, `{
		"summary": 42,
		"what_they_do": "not a list",
		"keywords": ["ok", "", "  ", 7, null, " trimmed "],
		"facts": {
			"location": "",
			"employee_count": 120,
			"founded_year": "2019",
			"total_funding": null,
			"confidence": {"location": 1.7, "employee_count": "0.25", "founded_year": -3, "stage": "high"}
		}
	}`)

	rec := NormalizeEnrichment(raw)
	assert.Equal(t, "", rec.Summary)
	assert.Equal(t, []string{}, rec.WhatTheyDo)
	assert.Equal(t, []string{"ok", "trimmed"}, rec.Keywords)
	assert.Equal(t, []string{}, rec.DerivedSignals)

	require.NotNil(t, rec.Facts)
	assert.Nil(t, rec.Facts.Location)
	require.NotNil(t, rec.Facts.EmployeeCount)
	assert.Equal(t, "120", *rec.Facts.EmployeeCount)
	assert.Nil(t, rec.Facts.FoundedYear)
	assert.Nil(t, rec.Facts.TotalFunding)
	assert.Nil(t, rec.Facts.Stage)

	assert.Equal(t, map[string]float64{
		"location":       1,
		"employee_count": 0.25,
		"founded_year":   0,
		"total_funding":  0,
		"stage":          0,
	}, rec.Facts.Confidence)
}

func TestNormalizeEnrichment_FoundedYear(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *int
	}{
		{"valid", `2001`, intPtr(2001)},
		{"too old", `1700`, nil},
		{"fractional", `2001.5`, nil},
		{"string", `"2001"`, nil},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NormalizeEnrichment(decode(t, `{"facts": {"founded_year": `+tt.in+`}}`))
			require.NotNil(t, rec.Facts)
			assert.Equal(t, tt.want, rec.Facts.FoundedYear)
		})
	}
}

func TestNormalizeEnrichment_ConfidenceAlwaysInRange(t *testing.T) {
	inputs := []string{`-1`, `0`, `0.5`, `1`, `2`, `"NaN"`, `"Inf"`, `"abc"`, `null`, `[]`, `{}`, `1e308`}
	for _, in := range inputs {
		rec := NormalizeEnrichment(decode(t, `{"facts": {"confidence": {"stage": `+in+`}}}`))
		require.NotNil(t, rec.Facts)
		require.Len(t, rec.Facts.Confidence, len(FactKeys))
		for key, v := range rec.Facts.Confidence {
			assert.GreaterOrEqual(t, v, 0.0, "%s for input %s", key, in)
			assert.LessOrEqual(t, v, 1.0, "%s for input %s", key, in)
		}
	}
}

func TestNormalizeEnrichment_MissingFactsIsNull(t *testing.T) {
	rec := NormalizeEnrichment(decode(t, `{"summary": "x", "facts": "unknown"}`))
	assert.Nil(t, rec.Facts)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"facts":null`)
	assert.Contains(t, string(out), `"what_they_do":[]`)
}

func TestEnrichmentFacts_UnknownFieldsSerializeAsNull(t *testing.T) {
	rec := NormalizeEnrichment(decode(t, `{"facts": {}}`))
	out, err := json.Marshal(rec.Facts)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"location": null,
		"employee_count": null,
		"founded_year": null,
		"total_funding": null,
		"stage": null,
		"confidence": {"location": 0, "employee_count": 0, "founded_year": 0, "total_funding": 0, "stage": 0}
	}`, string(out))
}

func TestNewsItemID_Stable(t *testing.T) {
	a := NewsItemID("Acme", "https://news.test/1")
	assert.Equal(t, a, NewsItemID("Acme", "https://news.test/1"))
	assert.NotEqual(t, a, NewsItemID("Acme", "https://news.test/2"))
	assert.NotEqual(t, a, NewsItemID("Other", "https://news.test/1"))
	assert.Len(t, a, 36)
}

func intPtr(i int) *int { return &i }
