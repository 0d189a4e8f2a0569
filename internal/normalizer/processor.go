// Package normalizer turns decoded API payloads into schema-conforming rows.
package normalizer

import (
	"fmt"

	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
)

// Processor runs extraction then normalization.
type Processor struct {
	extractor  *Extractor
	normalizer *Normalizer
	columns    []string
}

// NewProcessor creates a processor for the required metric columns.
func NewProcessor() *Processor {
	return NewProcessorWithColumns(models.RequiredColumns())
}

// NewProcessorWithColumns creates a processor projecting onto columns.
func NewProcessorWithColumns(columns []string) *Processor {
	return &Processor{
		extractor:  NewExtractor(),
		normalizer: NewNormalizer(),
		columns:    columns,
	}
}

// Process extracts the records at recordPath and normalizes them.
func (p *Processor) Process(payload any, recordPath string) ([]models.Row, error) {
	records, err := p.extractor.Extract(payload, recordPath)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	return p.normalizer.Normalize(records, p.columns), nil
}
