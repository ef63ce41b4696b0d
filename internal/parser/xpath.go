package parser

import (
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/zhongyi/internal/catalog"
	"github.com/IshaanNene/zhongyi/internal/types"
)

// XPathDetailExtractor extracts label/value containers with XPath expressions.
type XPathDetailExtractor struct {
	sel    catalog.Selectors
	logger *slog.Logger
}

// NewXPathDetailExtractor creates an XPath detail extractor.
func NewXPathDetailExtractor(sel catalog.Selectors, logger *slog.Logger) *XPathDetailExtractor {
	return &XPathDetailExtractor{
		sel:    sel,
		logger: logger.With("component", "xpath_parser"),
	}
}

// ExtractDetail implements DetailExtractor.
func (p *XPathDetailExtractor) ExtractDetail(page string) (*types.Record, error) {
	doc, err := html.Parse(strings.NewReader(flatten(page)))
	if err != nil {
		return nil, &types.ParseError{Pattern: p.sel.Label, Err: err}
	}

	labels, err := p.innerHTML(doc, p.sel.Label)
	if err != nil {
		return nil, err
	}
	values, err := p.innerHTML(doc, p.sel.Value)
	if err != nil {
		return nil, err
	}

	var title string
	if p.sel.Title != "" {
		titles, err := p.innerHTML(doc, p.sel.Title)
		if err != nil {
			return nil, err
		}
		if len(titles) > 0 {
			title = titles[0]
		}
	}

	return buildRecord(labels, values, title)
}

func (p *XPathDetailExtractor) innerHTML(doc *html.Node, expr string) ([]string, error) {
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, &types.ParseError{Pattern: expr, Err: err}
	}

	values := make([]string, 0, len(nodes))
	for _, node := range nodes {
		values = append(values, htmlquery.OutputHTML(node, false))
	}
	return values, nil
}
