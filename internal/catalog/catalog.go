// Package catalog holds the fixed description of every scraped category:
// where its pages live, how its markup is matched and where its rows go.
package catalog

import (
	"fmt"
	"strings"

	"github.com/IshaanNene/zhongyi/internal/types"
)

// DefaultBaseURL is the site every category is scraped from.
const DefaultBaseURL = "https://www.zhiyuanzhongyi.com"

// NameLabel is the leading label injected by name-override categories.
const NameLabel = "name"

// ListingPattern is a two-group capture over a listing page. The group
// order differs between categories, so it is carried explicitly.
type ListingPattern struct {
	Pattern   string
	IDGroup   int
	NameGroup int
}

// Selectors locate the same containers as a DetailPattern for DOM engines.
type Selectors struct {
	Label string
	Value string
	Title string
}

// DetailPattern describes label and value containers of a detail page.
// A non-empty Title makes the category a name-override category.
type DetailPattern struct {
	Label string
	Value string
	Title string

	CSS   Selectors
	XPath Selectors
}

// Category is the static configuration of one catalog domain.
type Category struct {
	Key             string
	Title           string
	ListingURL      string
	DetailURLPrefix string
	Listing         ListingPattern
	Detail          DetailPattern
	FileName        string
	SheetName       string
}

// DetailURL returns the detail page URL for a listing id.
func (c Category) DetailURL(id string) string {
	return c.DetailURLPrefix + id
}

// OverridesName reports whether detail pages carry their own display name.
func (c Category) OverridesName() bool {
	return c.Detail.Title != ""
}

type definition struct {
	key, title  string
	listingPath string
	detailPath  string
	listing     ListingPattern
	detail      DetailPattern
	output      string
}

var definitions = []definition{
	{
		key:         "herbs",
		title:       "中药",
		listingPath: "/traditional",
		detailPath:  "/traditionaldetails?id=",
		listing: ListingPattern{
			Pattern:   `<a href="/traditionaldetails\?id=(\d+)" target="_blank" data-v-bce4c468>(.*?)</a>`,
			IDGroup:   1,
			NameGroup: 2,
		},
		detail: DetailPattern{
			Label: `<div class="left_title" data-v-0bab2978>(.*?)</div>`,
			Value: `<div class="right_msg" data-v-0bab2978>(.*?)</div>`,
			CSS:   Selectors{Label: "div.left_title", Value: "div.right_msg"},
			XPath: Selectors{Label: "//div[@class='left_title']", Value: "//div[@class='right_msg']"},
		},
		output: "中药信息",
	},
	// Only the herbs markup above is confirmed against the site. The patterns
	// and selectors of the three categories below are placeholders until
	// checked against live pages.
	{
		key:         "prescriptions",
		title:       "方剂",
		listingPath: "/prescription",
		detailPath:  "/prescriptiondetails?id=",
		listing: ListingPattern{
			Pattern:   `<a href="/prescriptiondetails\?id=(\d+)" target="_blank" data-v-5c2a7e1d>(.*?)</a>`,
			IDGroup:   1,
			NameGroup: 2,
		},
		detail: DetailPattern{
			Label: `<div class="left_title" data-v-3f6b8d2c>(.*?)</div>`,
			Value: `<div class="right_msg" data-v-3f6b8d2c>(.*?)</div>`,
			CSS:   Selectors{Label: "div.left_title", Value: "div.right_msg"},
			XPath: Selectors{Label: "//div[@class='left_title']", Value: "//div[@class='right_msg']"},
		},
		output: "方剂信息",
	},
	{
		key:         "patent",
		title:       "中成药",
		listingPath: "/chinesepatent",
		detailPath:  "/chinesepatentdetails?id=",
		listing: ListingPattern{
			Pattern:   `<div class="drug_name" data-v-7e4d19a6>(.*?)</div>\s*<a href="/chinesepatentdetails\?id=(\d+)"`,
			IDGroup:   2,
			NameGroup: 1,
		},
		detail: DetailPattern{
			Label: `<span class="label" data-v-2b9c6e1f>(.*?)</span>`,
			Value: `<span class="content" data-v-2b9c6e1f>(.*?)</span>`,
			Title: `<div class="detail_title" data-v-2b9c6e1f>(.*?)</div>`,
			CSS:   Selectors{Label: "span.label", Value: "span.content", Title: "div.detail_title"},
			XPath: Selectors{
				Label: "//span[@class='label']",
				Value: "//span[@class='content']",
				Title: "//div[@class='detail_title']",
			},
		},
		output: "中成药信息",
	},
	{
		key:         "diet",
		title:       "药膳",
		listingPath: "/dietotherapy",
		detailPath:  "/dietotherapydetails?id=",
		listing: ListingPattern{
			Pattern:   `<div class="diet_item" data-id="(\d+)" data-v-91c3a5e7>\s*<p class="diet_name" data-v-91c3a5e7>(.*?)</p>`,
			IDGroup:   1,
			NameGroup: 2,
		},
		detail: DetailPattern{
			Label: `<div class="left_title" data-v-6d1e0b4a>(.*?)</div>`,
			Value: `<div class="right_msg" data-v-6d1e0b4a>(.*?)</div>`,
			Title: `<h2 class="diet_title" data-v-6d1e0b4a>(.*?)</h2>`,
			CSS:   Selectors{Label: "div.left_title", Value: "div.right_msg", Title: "h2.diet_title"},
			XPath: Selectors{
				Label: "//div[@class='left_title']",
				Value: "//div[@class='right_msg']",
				Title: "//h2[@class='diet_title']",
			},
		},
		output: "药膳信息",
	},
}

// All returns the four categories in run order, rooted at baseURL.
func All(baseURL string) []Category {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	out := make([]Category, len(definitions))
	for i, d := range definitions {
		out[i] = Category{
			Key:             d.key,
			Title:           d.title,
			ListingURL:      baseURL + d.listingPath,
			DetailURLPrefix: baseURL + d.detailPath,
			Listing:         d.listing,
			Detail:          d.detail,
			FileName:        d.output + ".xlsx",
			SheetName:       d.output,
		}
	}
	return out
}

// Keys returns the category keys in run order.
func Keys() []string {
	keys := make([]string, len(definitions))
	for i, d := range definitions {
		keys[i] = d.key
	}
	return keys
}

// Lookup returns the category with the given key.
func Lookup(baseURL, key string) (Category, error) {
	for _, c := range All(baseURL) {
		if c.Key == key {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q (valid: %s)", types.ErrUnknownCategory, key, strings.Join(Keys(), ", "))
}

// Select returns the named categories in run order regardless of the order
// they were asked for. An empty selection means all categories.
func Select(baseURL string, only []string) ([]Category, error) {
	all := All(baseURL)
	if len(only) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(only))
	for _, key := range only {
		if _, err := Lookup(baseURL, key); err != nil {
			return nil, err
		}
		want[key] = true
	}

	var out []Category
	for _, c := range all {
		if want[c.Key] {
			out = append(out, c)
		}
	}
	return out, nil
}
