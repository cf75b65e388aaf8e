// internal/models/enrichment.go
package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FactKeys are the facts the model is asked to extract. Every key is present
// in EnrichmentFacts.Confidence.
var FactKeys = []string{"location", "employee_count", "founded_year", "total_funding", "stage"}

type EnrichmentRecord struct {
	Summary        string           `json:"summary"`
	WhatTheyDo     []string         `json:"what_they_do"`
	Keywords       []string         `json:"keywords"`
	DerivedSignals []string         `json:"derived_signals"`
	Facts          *EnrichmentFacts `json:"facts"`
	Source         string           `json:"source"`
	Sources        []string         `json:"sources"`
	Timestamp      string           `json:"timestamp"`
}

type EnrichmentFacts struct {
	Location      *string            `json:"location"`
	EmployeeCount *string            `json:"employee_count"`
	FoundedYear   *int               `json:"founded_year"`
	TotalFunding  *string            `json:"total_funding"`
	Stage         *string            `json:"stage"`
	Confidence    map[string]float64 `json:"confidence"`
}

// NormalizeEnrichment builds a record from untrusted model output. Each field
// is coerced on its own, so one bad field never discards the others.
func NormalizeEnrichment(raw map[string]interface{}) *EnrichmentRecord {
	return &EnrichmentRecord{
		Summary:        normalizeString(raw["summary"]),
		WhatTheyDo:     normalizeList(raw["what_they_do"]),
		Keywords:       normalizeList(raw["keywords"]),
		DerivedSignals: normalizeList(raw["derived_signals"]),
		Facts:          normalizeFacts(raw["facts"]),
		Sources:        []string{},
	}
}

func normalizeFacts(v interface{}) *EnrichmentFacts {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}

	facts := &EnrichmentFacts{
		Location:      factString(m["location"]),
		EmployeeCount: factString(m["employee_count"]),
		FoundedYear:   foundedYear(m["founded_year"]),
		TotalFunding:  factString(m["total_funding"]),
		Stage:         factString(m["stage"]),
		Confidence:    make(map[string]float64, len(FactKeys)),
	}

	conf, _ := m["confidence"].(map[string]interface{})
	for _, key := range FactKeys {
		facts.Confidence[key] = confidence(conf[key])
	}
	return facts
}

func normalizeString(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func normalizeList(v interface{}) []string {
	out := []string{}
	items, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func factString(v interface{}) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	}
	if s == "" {
		return nil
	}
	return &s
}

func foundedYear(v interface{}) *int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 1700 {
		return nil
	}
	year := int(f)
	return &year
}

func confidence(v interface{}) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		f, _ = t.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}
