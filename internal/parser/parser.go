// Package parser turns listing and detail page text into entries and records.
package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/zhongyi/internal/catalog"
	"github.com/IshaanNene/zhongyi/internal/types"
)

// ListingExtractor maps a listing page to its (id, name) entries in document order.
type ListingExtractor interface {
	ExtractListing(page string) ([]types.ListingEntry, error)
}

// DetailExtractor maps a detail page to its ordered label/value record.
// It returns types.ErrEmptyExtraction when the page has no labels or no values.
type DetailExtractor interface {
	ExtractDetail(page string) (*types.Record, error)
}

// Engine names accepted by NewDetailExtractor.
const (
	EngineRegex = "regex"
	EngineCSS   = "css"
	EngineXPath = "xpath"
)

// NewListingExtractor builds the listing extractor for a category.
func NewListingExtractor(cat catalog.Category) (ListingExtractor, error) {
	return NewRegexListingExtractor(cat.Listing)
}

// NewDetailExtractor builds the detail extractor for a category using the
// named engine.
func NewDetailExtractor(engine string, cat catalog.Category, logger *slog.Logger) (DetailExtractor, error) {
	switch engine {
	case "", EngineRegex:
		return NewRegexDetailExtractor(cat.Detail)
	case EngineCSS:
		return NewCSSDetailExtractor(cat.Detail.CSS, logger), nil
	case EngineXPath:
		return NewXPathDetailExtractor(cat.Detail.XPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown parser engine %q", engine)
	}
}

// NormalizesEntities reports whether engine re-renders the matched markup.
// Rendering rewrites character references (&nbsp; becomes U+00A0, a bare &
// becomes &amp;), so values from these engines only agree with the regex
// engine once entities are decoded.
func NormalizesEntities(engine string) bool {
	return engine == EngineCSS || engine == EngineXPath
}

// PairFields pairs labels and values by index. When the two lists differ in
// length, pairing stops at the shorter one.
func PairFields(labels, values []string) []types.Field {
	n := min(len(labels), len(values))
	fields := make([]types.Field, n)
	for i := 0; i < n; i++ {
		fields[i] = types.Field{Label: labels[i], Value: values[i]}
	}
	return fields
}

// buildRecord is shared by every engine so that the empty-page rule and the
// name override behave identically.
func buildRecord(labels, values []string, title string) (*types.Record, error) {
	if len(labels) == 0 || len(values) == 0 {
		return nil, types.ErrEmptyExtraction
	}

	rec := types.RecordFromFields(PairFields(labels, values))
	if title = strings.TrimSpace(title); title != "" {
		rec.Prepend(catalog.NameLabel, title)
	}
	return rec, nil
}

// flatten removes newlines so patterns never depend on line boundaries.
func flatten(page string) string {
	return strings.ReplaceAll(page, "\n", "")
}
