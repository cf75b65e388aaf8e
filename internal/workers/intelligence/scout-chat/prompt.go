// internal/workers/intelligence/scout-chat/prompt.go
package scoutchat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"scout-workers/internal/common/webtext"
	"scout-workers/internal/models"
)

const noCompanyContext = "No company context provided."

var personaLines = []string{
	"You are Scout, a thesis-aware VC copilot.",
	"You help with sourcing, prioritization, and diligence.",
	"Use only the provided thesis and company context.",
	"If data is missing, call it out briefly and provide best-effort recommendations.",
	"Respond with concise, structured guidance suitable for an investment team.",
	"Formatting rules:",
	"- Use short paragraphs and bullet points.",
	"- For rankings, use numbered lines (1., 2., 3.) with one company per line.",
	"- Use plain text markdown only for bold company names (e.g., **Company**).",
	"- Avoid one giant paragraph.",
}

// SystemPrompt renders the persona, the thesis JSON and one context block per
// company.
func SystemPrompt(thesis map[string]interface{}, companies []models.CompanyProfile) string {
	context := CompanyContext(companies)
	if context == "" {
		context = noCompanyContext
	}

	lines := append([]string{}, personaLines...)
	lines = append(lines,
		"",
		"THESIS CONTEXT (JSON): "+webtext.Truncate(thesisJSON(thesis), MaxThesisRunes),
		"",
		"COMPANY CONTEXT:\n"+context,
	)
	return strings.Join(lines, "\n")
}

func CompanyContext(companies []models.CompanyProfile) string {
	blocks := make([]string, 0, len(companies))
	for i, c := range companies {
		var summary string
		var keywords, signals []string
		if c.Enrichment != nil {
			summary = c.Enrichment.Summary
			keywords = head(c.Enrichment.Keywords, maxContextKeyword)
			signals = head(c.Enrichment.DerivedSignals, maxContextSignals)
		}

		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("%d. %s", i+1, c.Name),
			fmt.Sprintf("Industry: %s | Stage: %s | Location: %s",
				or(c.Industry, "Unknown"), or(c.Stage, "Unknown"), or(c.Location, "Unknown")),
			fmt.Sprintf("Employees: %s | Funding: %s",
				or(c.EmployeeCount, "Unknown"), or(c.TotalFunding, "Unknown")),
			"Tags: " + or(strings.Join(head(c.Tags, maxContextTags), ", "), "None"),
			"Description: " + or(c.Description, "N/A"),
			"Enrichment Summary: " + or(summary, "N/A"),
			"Enrichment Keywords: " + or(strings.Join(keywords, ", "), "N/A"),
			"Derived Signals: " + or(strings.Join(signals, " | "), "N/A"),
		}, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func thesisJSON(thesis map[string]interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(thesis); err != nil {
		return "null"
	}
	return strings.TrimSpace(buf.String())
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
