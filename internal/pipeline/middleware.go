package pipeline

import (
	"log/slog"
	"regexp"

	"golang.org/x/net/html"

	"github.com/IshaanNene/zhongyi/internal/config"
	"github.com/IshaanNene/zhongyi/internal/types"
)

var (
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	bracketRe = regexp.MustCompile(`\[.*?\]`)
)

// StripTags removes every <...> markup tag, keeping the text between tags.
func StripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}

// StripBrackets removes every [...] group, such as pinyin glosses.
func StripBrackets(s string) string {
	return bracketRe.ReplaceAllString(s, "")
}

// UnescapeEntities decodes named and numeric HTML character references.
func UnescapeEntities(s string) string {
	return html.UnescapeString(s)
}

// Sanitize applies the value cleanup in its fixed order: tags, brackets,
// then entities when unescape is set.
func Sanitize(s string, unescape bool) string {
	s = StripBrackets(StripTags(s))
	if unescape {
		s = UnescapeEntities(s)
	}
	return s
}

// StripTagsMiddleware removes markup tags from every value.
type StripTagsMiddleware struct{}

func (m *StripTagsMiddleware) Name() string { return "strip_tags" }

func (m *StripTagsMiddleware) Process(rec *types.Record) (*types.Record, error) {
	rec.Map(StripTags)
	return rec, nil
}

// StripBracketsMiddleware removes bracketed annotations from every value.
type StripBracketsMiddleware struct{}

func (m *StripBracketsMiddleware) Name() string { return "strip_brackets" }

func (m *StripBracketsMiddleware) Process(rec *types.Record) (*types.Record, error) {
	rec.Map(StripBrackets)
	return rec, nil
}

// UnescapeEntitiesMiddleware decodes HTML entities in every value.
type UnescapeEntitiesMiddleware struct{}

func (m *UnescapeEntitiesMiddleware) Name() string { return "unescape_entities" }

func (m *UnescapeEntitiesMiddleware) Process(rec *types.Record) (*types.Record, error) {
	rec.Map(UnescapeEntities)
	return rec, nil
}

// NewSanitizer builds the value cleanup chain.
func NewSanitizer(cfg config.SanitizeConfig, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&StripTagsMiddleware{})
	p.Use(&StripBracketsMiddleware{})
	if cfg.UnescapeEntities {
		p.Use(&UnescapeEntitiesMiddleware{})
	}
	return p
}
