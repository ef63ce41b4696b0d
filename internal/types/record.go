package types

import "strings"

// ListingEntry is one (id, display name) pair found on a category listing page.
type ListingEntry struct {
	ID   string
	Name string
}

// Field is a single label/value pair of a detail page.
type Field struct {
	Label string
	Value string
}

// Record is an ordered label -> value mapping describing one catalog item.
// Key order is the order of first appearance on the detail page.
type Record struct {
	// Category is the catalog key the record belongs to.
	Category string

	// SourceURL is the detail page this record was extracted from.
	SourceURL string

	fields []Field
	index  map[string]int
}

// NewRecord creates an empty record.
func NewRecord(category, sourceURL string) *Record {
	return &Record{
		Category:  category,
		SourceURL: sourceURL,
		index:     make(map[string]int),
	}
}

// RecordFromFields builds a record from pairs. A repeated label keeps its
// first position and takes the later value.
func RecordFromFields(fields []Field) *Record {
	r := NewRecord("", "")
	for _, f := range fields {
		r.Set(f.Label, f.Value)
	}
	return r
}

// Set stores a value. New labels are appended; existing labels keep their position.
func (r *Record) Set(label, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[label]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[label] = len(r.fields)
	r.fields = append(r.fields, Field{Label: label, Value: value})
}

// Prepend stores a value as the leading field, moving the label to the front
// if it already exists.
func (r *Record) Prepend(label, value string) {
	if i, ok := r.index[label]; ok {
		r.fields = append(r.fields[:i], r.fields[i+1:]...)
	}
	r.fields = append([]Field{{Label: label, Value: value}}, r.fields...)
	r.reindex()
}

// Get retrieves a value by label.
func (r *Record) Get(label string) (string, bool) {
	i, ok := r.index[label]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Has returns true if the label exists.
func (r *Record) Has(label string) bool {
	_, ok := r.index[label]
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Keys returns all labels in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Label
	}
	return keys
}

// Values returns all values in label order.
func (r *Record) Values() []string {
	values := make([]string, len(r.fields))
	for i, f := range r.fields {
		values[i] = f.Value
	}
	return values
}

// Fields returns a copy of the pairs in order.
func (r *Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Map rewrites every value in place. Labels and their order are untouched.
func (r *Record) Map(fn func(string) string) {
	for i := range r.fields {
		r.fields[i].Value = fn(r.fields[i].Value)
	}
}

// Project returns the values for the given labels, empty for missing ones.
func (r *Record) Project(labels []string) []string {
	row := make([]string, len(labels))
	for i, l := range labels {
		row[i], _ = r.Get(l)
	}
	return row
}

// String renders the record as label=value pairs for log lines.
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Label)
		sb.WriteByte('=')
		sb.WriteString(f.Value)
	}
	sb.WriteByte('}')
	return sb.String()
}

// Clone creates a deep copy of the record.
func (r *Record) Clone() *Record {
	clone := &Record{
		Category:  r.Category,
		SourceURL: r.SourceURL,
		fields:    append([]Field(nil), r.fields...),
	}
	clone.reindex()
	return clone
}

func (r *Record) reindex() {
	r.index = make(map[string]int, len(r.fields))
	for i, f := range r.fields {
		r.index[f.Label] = i
	}
}
