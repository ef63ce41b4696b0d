package parser

import (
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/zhongyi/internal/catalog"
	"github.com/IshaanNene/zhongyi/internal/pipeline"
	"github.com/IshaanNene/zhongyi/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const herbListingHTML = `<div class="list">
<a href="/traditionaldetails?id=101" target="_blank" data-v-bce4c468>  甘草
</a>
<a href="/traditionaldetails?id=102" target="_blank" data-v-bce4c468>黄芪</a>
<a href="/about">关于</a>
</div>`

const herbDetailHTML = `<html><body>
<div class="row"><div class="left_title" data-v-0bab2978>性味</div>
<div class="right_msg" data-v-0bab2978>甘，平。</div></div>
<div class="row"><div class="left_title" data-v-0bab2978>用法用量</div>
<div class="right_msg" data-v-0bab2978><b>1[yī]条</b></div></div>
<div class="row"><div class="left_title" data-v-0bab2978>功效</div>
<div class="right_msg" data-v-0bab2978>补脾益气</div></div>
</body></html>`

const patentListingHTML = `<ul>
<li><div class="drug_name" data-v-7e4d19a6> 六味地黄丸 </div>
<a href="/chinesepatentdetails?id=7" target="_blank">查看</a></li>
<li><div class="drug_name" data-v-7e4d19a6>逍遥丸</div> <a href="/chinesepatentdetails?id=8">查看</a></li>
</ul>`

const patentDetailHTML = `<div class="detail_title" data-v-2b9c6e1f> 六味地黄丸 </div>
<p><span class="label" data-v-2b9c6e1f>成分</span><span class="content" data-v-2b9c6e1f>熟地黄、山茱萸</span></p>
<p><span class="label" data-v-2b9c6e1f>功能主治</span><span class="content" data-v-2b9c6e1f>滋阴补肾</span></p>`

const dietListingHTML = `<div class="diet_item" data-id="31" data-v-91c3a5e7>
  <p class="diet_name" data-v-91c3a5e7>山药粥</p></div>
<div class="diet_item" data-id="32" data-v-91c3a5e7><p class="diet_name" data-v-91c3a5e7>当归生姜羊肉汤</p></div>`

func mustCategory(t *testing.T, key string) catalog.Category {
	t.Helper()
	c, err := catalog.Lookup("", key)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func listing(t *testing.T, key, page string) []types.ListingEntry {
	t.Helper()
	x, err := NewListingExtractor(mustCategory(t, key))
	if err != nil {
		t.Fatalf("build listing extractor: %v", err)
	}
	entries, err := x.ExtractListing(page)
	if err != nil {
		t.Fatalf("extract listing: %v", err)
	}
	return entries
}

// --- Listing ---

func TestListingHerbs(t *testing.T) {
	got := listing(t, "herbs", herbListingHTML)
	want := []types.ListingEntry{{ID: "101", Name: "甘草"}, {ID: "102", Name: "黄芪"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestListingPatentNameBeforeID(t *testing.T) {
	got := listing(t, "patent", patentListingHTML)
	want := []types.ListingEntry{{ID: "7", Name: "六味地黄丸"}, {ID: "8", Name: "逍遥丸"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestListingDietContainers(t *testing.T) {
	got := listing(t, "diet", dietListingHTML)
	want := []types.ListingEntry{{ID: "31", Name: "山药粥"}, {ID: "32", Name: "当归生姜羊肉汤"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestListingNoMatchIsEmpty(t *testing.T) {
	for _, key := range catalog.Keys() {
		if got := listing(t, key, "<html><body>维护中</body></html>"); len(got) != 0 {
			t.Errorf("%s: expected no entries, got %v", key, got)
		}
	}
}

func TestListingEntriesAreClean(t *testing.T) {
	idRe := regexp.MustCompile(`^\d+$`)
	pages := map[string]string{
		"herbs":  herbListingHTML,
		"patent": patentListingHTML,
		"diet":   dietListingHTML,
	}
	for key, page := range pages {
		for _, e := range listing(t, key, page) {
			if !idRe.MatchString(e.ID) {
				t.Errorf("%s: id %q is not numeric", key, e.ID)
			}
			if e.Name != trimmed(e.Name) {
				t.Errorf("%s: name %q has surrounding whitespace", key, e.Name)
			}
		}
	}
}

func TestListingRejectsBadGroups(t *testing.T) {
	_, err := NewRegexListingExtractor(catalog.ListingPattern{Pattern: `id=(\d+)`, IDGroup: 1, NameGroup: 2})
	var pe *types.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

// --- Pairing ---

func TestPairFieldsTruncates(t *testing.T) {
	tests := []struct {
		labels, values []string
		want           int
	}{
		{[]string{"a", "b", "c"}, []string{"1", "2", "3"}, 3},
		{[]string{"a", "b", "c"}, []string{"1"}, 1},
		{[]string{"a"}, []string{"1", "2", "3"}, 1},
		{nil, []string{"1"}, 0},
	}

	for _, tt := range tests {
		got := PairFields(tt.labels, tt.values)
		if len(got) != tt.want {
			t.Errorf("labels=%d values=%d: expected %d pairs, got %d", len(tt.labels), len(tt.values), tt.want, len(got))
		}
		for i, f := range got {
			if f.Label != tt.labels[i] || f.Value != tt.values[i] {
				t.Errorf("pair %d misaligned: %+v", i, f)
			}
		}
	}
}

// --- Detail ---

func TestRegexDetailHerbs(t *testing.T) {
	x, err := NewDetailExtractor(EngineRegex, mustCategory(t, "herbs"), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := x.ExtractDetail(herbDetailHTML)
	if err != nil {
		t.Fatalf("extract detail: %v", err)
	}

	if diff := cmp.Diff([]string{"性味", "用法用量", "功效"}, rec.Keys()); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if v, _ := rec.Get("用法用量"); v != "<b>1[yī]条</b>" {
		t.Errorf("raw value should be untouched by extraction, got %q", v)
	}
}

func TestRegexDetailTruncatesUnevenPage(t *testing.T) {
	x, _ := NewRegexDetailExtractor(mustCategory(t, "herbs").Detail)
	page := herbDetailHTML + `<div class="left_title" data-v-0bab2978>注意</div>`

	rec, err := x.ExtractDetail(page)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Len() != 3 {
		t.Errorf("expected 3 pairs, got %d: %s", rec.Len(), rec)
	}
}

func TestRegexDetailEmpty(t *testing.T) {
	x, _ := NewRegexDetailExtractor(mustCategory(t, "herbs").Detail)

	pages := []string{
		"<html>404</html>",
		`<div class="left_title" data-v-0bab2978>性味</div>`,
		`<div class="right_msg" data-v-0bab2978>甘</div>`,
	}
	for _, page := range pages {
		rec, err := x.ExtractDetail(page)
		if !errors.Is(err, types.ErrEmptyExtraction) {
			t.Errorf("expected ErrEmptyExtraction for %q, got %v", page, err)
		}
		if rec != nil {
			t.Errorf("expected nil record for %q", page)
		}
	}
}

func TestRegexDetailNameOverride(t *testing.T) {
	x, _ := NewRegexDetailExtractor(mustCategory(t, "patent").Detail)
	rec, err := x.ExtractDetail(patentDetailHTML)
	if err != nil {
		t.Fatal(err)
	}

	want := []types.Field{
		{Label: catalog.NameLabel, Value: "六味地黄丸"},
		{Label: "成分", Value: "熟地黄、山茱萸"},
		{Label: "功能主治", Value: "滋阴补肾"},
	}
	if diff := cmp.Diff(want, rec.Fields()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestRegexDetailWithoutTitleHasNoName(t *testing.T) {
	x, _ := NewRegexDetailExtractor(mustCategory(t, "patent").Detail)
	page := `<span class="label" data-v-2b9c6e1f>成分</span><span class="content" data-v-2b9c6e1f>茯苓</span>`
	rec, err := x.ExtractDetail(page)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Has(catalog.NameLabel) {
		t.Errorf("name must only come from the title container, got %s", rec)
	}
}

func TestDOMEnginesMatchRegex(t *testing.T) {
	cases := []struct {
		key  string
		page string
	}{
		{"herbs", herbDetailHTML},
		{"patent", patentDetailHTML},
	}

	for _, tc := range cases {
		cat := mustCategory(t, tc.key)
		regex, _ := NewDetailExtractor(EngineRegex, cat, testLogger)
		want, err := regex.ExtractDetail(tc.page)
		if err != nil {
			t.Fatal(err)
		}

		for _, engine := range []string{EngineCSS, EngineXPath} {
			x, err := NewDetailExtractor(engine, cat, testLogger)
			if err != nil {
				t.Fatalf("%s: %v", engine, err)
			}
			got, err := x.ExtractDetail(tc.page)
			if err != nil {
				t.Fatalf("%s/%s: %v", tc.key, engine, err)
			}
			if diff := cmp.Diff(want.Fields(), got.Fields()); diff != "" {
				t.Errorf("%s/%s differs from regex (-want +got):\n%s", tc.key, engine, diff)
			}
		}
	}
}

const entityDetailHTML = `<div class="left_title" data-v-0bab2978>用法&amp;用量</div>
<div class="right_msg" data-v-0bab2978>3&nbsp;g &amp; 煎 a & b &lt;注&gt; &quot;后下&quot;</div>`

func TestDOMEnginesMatchRegexAfterDecoding(t *testing.T) {
	cat := mustCategory(t, "herbs")
	regex, _ := NewDetailExtractor(EngineRegex, cat, testLogger)
	raw, err := regex.ExtractDetail(entityDetailHTML)
	if err != nil {
		t.Fatal(err)
	}
	if got := raw.Values()[0]; got != "3&nbsp;g &amp; 煎 a & b &lt;注&gt; &quot;后下&quot;" {
		t.Fatalf("regex value should be the page source, got %q", got)
	}

	want := []types.Field{{Label: "用法&amp;用量", Value: "3\u00a0g & 煎 a & b <注> \"后下\""}}
	if diff := cmp.Diff(want, decoded(raw)); diff != "" {
		t.Errorf("regex decoded mismatch (-want +got):\n%s", diff)
	}

	for _, engine := range []string{EngineCSS, EngineXPath} {
		if !NormalizesEntities(engine) {
			t.Errorf("%s should report entity normalization", engine)
		}
		x, _ := NewDetailExtractor(engine, cat, testLogger)
		got, err := x.ExtractDetail(entityDetailHTML)
		if err != nil {
			t.Fatalf("%s: %v", engine, err)
		}
		if diff := cmp.Diff(want, decoded(got)); diff != "" {
			t.Errorf("%s differs from regex after decoding (-want +got):\n%s", engine, diff)
		}
	}

	if NormalizesEntities(EngineRegex) {
		t.Error("regex engine returns page source and needs no decoding")
	}
}

// decoded runs the value cleanup with entity decoding on.
func decoded(rec *types.Record) []types.Field {
	out := rec.Clone()
	out.Map(func(v string) string { return pipeline.Sanitize(v, true) })
	return out.Fields()
}

func TestDOMEngineEmpty(t *testing.T) {
	x := NewCSSDetailExtractor(mustCategory(t, "herbs").Detail.CSS, testLogger)
	if _, err := x.ExtractDetail("<p>nothing</p>"); !errors.Is(err, types.ErrEmptyExtraction) {
		t.Errorf("expected ErrEmptyExtraction, got %v", err)
	}
}

func TestUnknownEngine(t *testing.T) {
	if _, err := NewDetailExtractor("lua", mustCategory(t, "herbs"), testLogger); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func trimmed(s string) string {
	return regexp.MustCompile(`^\s+|\s+$`).ReplaceAllString(s, "")
}

// --- Benchmarks ---

func BenchmarkRegexDetail(b *testing.B) {
	cat, _ := catalog.Lookup("", "herbs")
	x, _ := NewRegexDetailExtractor(cat.Detail)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x.ExtractDetail(herbDetailHTML)
	}
}
