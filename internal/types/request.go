package types

import (
	"fmt"
	"net/http"
	"net/url"
)

// Request is a page to be fetched.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Tag categorizes this request ("listing" or "detail").
	Tag string

	// Category is the catalog key this request belongs to.
	Category string
}

// Request tags.
const (
	TagListing = "listing"
	TagDetail  = "detail"
)

// NewRequest creates a GET request.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidURL, rawURL)
	}

	return &Request{
		URL:    u,
		Method: http.MethodGet,
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
