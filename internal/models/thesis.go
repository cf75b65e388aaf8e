// internal/models/thesis.go
package models

// Thesis is an investment thesis. Callers send it with every request.
type Thesis struct {
	Sectors       []string `json:"sectors"`
	Stages        []string `json:"stages"`
	Geographies   []string `json:"geographies"`
	Keywords      []string `json:"keywords"`
	AntiPortfolio []string `json:"antiPortfolio"`
}
