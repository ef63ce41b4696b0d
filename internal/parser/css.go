package parser

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/zhongyi/internal/catalog"
	"github.com/IshaanNene/zhongyi/internal/types"
)

// CSSDetailExtractor extracts label/value containers with goquery selectors.
// Values are the inner HTML of each container so the sanitizer sees the same
// raw markup as with the regex engine.
type CSSDetailExtractor struct {
	sel    catalog.Selectors
	logger *slog.Logger
}

// NewCSSDetailExtractor creates a CSS selector detail extractor.
func NewCSSDetailExtractor(sel catalog.Selectors, logger *slog.Logger) *CSSDetailExtractor {
	return &CSSDetailExtractor{
		sel:    sel,
		logger: logger.With("component", "css_parser"),
	}
}

// ExtractDetail implements DetailExtractor.
func (p *CSSDetailExtractor) ExtractDetail(page string) (*types.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(flatten(page)))
	if err != nil {
		return nil, &types.ParseError{Pattern: p.sel.Label, Err: err}
	}

	labels := p.innerHTML(doc, p.sel.Label)
	values := p.innerHTML(doc, p.sel.Value)

	var title string
	if p.sel.Title != "" {
		if titles := p.innerHTML(doc, p.sel.Title); len(titles) > 0 {
			title = titles[0]
		}
	}

	return buildRecord(labels, values, title)
}

func (p *CSSDetailExtractor) innerHTML(doc *goquery.Document, selector string) []string {
	var values []string
	doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		val, err := sel.Html()
		if err != nil {
			p.logger.Debug("render inner html", "selector", selector, "error", err)
			return
		}
		values = append(values, val)
	})
	return values
}
