// internal/repository/enrichment_index.go
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"scout-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

const DefaultEnrichmentIndex = "company-enrichments"

// EnrichmentIndexer makes enrichment documents searchable.
type EnrichmentIndexer interface {
	IndexEnrichment(ctx context.Context, companyID string, record *models.EnrichmentRecord) error
}

type ElasticsearchEnrichmentIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewEnrichmentIndex(client *elasticsearch.Client, index string) *ElasticsearchEnrichmentIndex {
	if index == "" {
		index = DefaultEnrichmentIndex
	}
	return &ElasticsearchEnrichmentIndex{client: client, index: index}
}

type enrichmentDocument struct {
	CompanyID      string   `json:"companyId"`
	Source         string   `json:"source"`
	Summary        string   `json:"summary"`
	WhatTheyDo     []string `json:"what_they_do"`
	Keywords       []string `json:"keywords"`
	DerivedSignals []string `json:"derived_signals"`
	Sources        []string `json:"sources"`
	Timestamp      string   `json:"timestamp"`
}

// IndexEnrichment upserts the document keyed by company id, or by source URL
// for enrichments not attached to a company.
func (i *ElasticsearchEnrichmentIndex) IndexEnrichment(ctx context.Context, companyID string, record *models.EnrichmentRecord) error {
	docID := companyID
	if docID == "" {
		docID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(record.Source)).String()
	}

	body, err := json.Marshal(enrichmentDocument{
		CompanyID:      companyID,
		Source:         record.Source,
		Summary:        record.Summary,
		WhatTheyDo:     record.WhatTheyDo,
		Keywords:       record.Keywords,
		DerivedSignals: record.DerivedSignals,
		Sources:        record.Sources,
		Timestamp:      record.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal enrichment document: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(docID),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index enrichment: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("index enrichment: %s: %s", res.Status(), string(msg))
	}
	return nil
}
