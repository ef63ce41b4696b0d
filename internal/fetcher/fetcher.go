package fetcher

import (
	"context"

	"github.com/IshaanNene/zhongyi/internal/types"
)

// Fetcher is the interface for page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the page at the given request's URL as UTF-8 text.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// Get fetches rawURL as a page of the given kind ("listing" or "detail")
// belonging to a catalog category.
func Get(ctx context.Context, f Fetcher, rawURL, tag, category string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	req.Tag = tag
	req.Category = category

	return f.Fetch(ctx, req)
}
