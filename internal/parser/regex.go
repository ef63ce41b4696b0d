package parser

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/IshaanNene/zhongyi/internal/catalog"
	"github.com/IshaanNene/zhongyi/internal/types"
)

var (
	patternMu    sync.Mutex
	patternCache = make(map[string]*regexp.Regexp)
)

// getOrCompile returns a cached compiled regex or compiles and caches a new one.
func getOrCompile(pattern string) (*regexp.Regexp, error) {
	patternMu.Lock()
	defer patternMu.Unlock()

	if re, ok := patternCache[pattern]; ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}

	patternCache[pattern] = re
	return re, nil
}

var digitsRe = regexp.MustCompile(`^\d+$`)

// RegexListingExtractor extracts listing entries with a two-group pattern.
type RegexListingExtractor struct {
	re        *regexp.Regexp
	idGroup   int
	nameGroup int
}

// NewRegexListingExtractor compiles a listing pattern.
func NewRegexListingExtractor(p catalog.ListingPattern) (*RegexListingExtractor, error) {
	re, err := getOrCompile(p.Pattern)
	if err != nil {
		return nil, err
	}
	if p.IDGroup < 1 || p.NameGroup < 1 || p.IDGroup > re.NumSubexp() || p.NameGroup > re.NumSubexp() {
		return nil, &types.ParseError{
			Pattern: p.Pattern,
			Err:     fmt.Errorf("groups id=%d name=%d out of range (pattern has %d)", p.IDGroup, p.NameGroup, re.NumSubexp()),
		}
	}
	return &RegexListingExtractor{re: re, idGroup: p.IDGroup, nameGroup: p.NameGroup}, nil
}

// ExtractListing implements ListingExtractor. No match is an empty result, not an error.
func (x *RegexListingExtractor) ExtractListing(page string) ([]types.ListingEntry, error) {
	var entries []types.ListingEntry
	for _, m := range x.re.FindAllStringSubmatch(flatten(page), -1) {
		id := strings.TrimSpace(m[x.idGroup])
		if !digitsRe.MatchString(id) {
			continue
		}
		entries = append(entries, types.ListingEntry{
			ID:   id,
			Name: strings.TrimSpace(m[x.nameGroup]),
		})
	}
	return entries, nil
}

// RegexDetailExtractor runs independent label and value patterns and pairs
// their matches by position.
type RegexDetailExtractor struct {
	label *regexp.Regexp
	value *regexp.Regexp
	title *regexp.Regexp
}

// NewRegexDetailExtractor compiles a detail pattern set.
func NewRegexDetailExtractor(p catalog.DetailPattern) (*RegexDetailExtractor, error) {
	label, err := getOrCompile(p.Label)
	if err != nil {
		return nil, err
	}
	value, err := getOrCompile(p.Value)
	if err != nil {
		return nil, err
	}

	x := &RegexDetailExtractor{label: label, value: value}
	if p.Title != "" {
		if x.title, err = getOrCompile(p.Title); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// ExtractDetail implements DetailExtractor.
func (x *RegexDetailExtractor) ExtractDetail(page string) (*types.Record, error) {
	page = flatten(page)

	labels := firstGroups(x.label, page)
	values := firstGroups(x.value, page)

	var title string
	if x.title != nil {
		if m := x.title.FindStringSubmatch(page); len(m) > 1 {
			title = m[1]
		}
	}

	return buildRecord(labels, values, title)
}

// firstGroups returns the first capture group of every match in document order.
func firstGroups(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			out = append(out, m[1])
		}
	}
	return out
}
