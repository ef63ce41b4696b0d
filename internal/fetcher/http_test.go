package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/zhongyi/internal/config"
	"github.com/IshaanNene/zhongyi/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f := NewHTTPFetcher(config.DefaultConfig(), testLogger)
	t.Cleanup(func() { f.Close() })
	return f
}

func fetchBody(ctx context.Context, f Fetcher, rawURL, tag string) (string, error) {
	resp, err := Get(ctx, f, rawURL, tag, "herbs")
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

func TestFetchIgnoresDeclaredCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte("<p>甘草</p>"))
	}))
	defer server.Close()

	body, err := fetchBody(context.Background(), newTestFetcher(t), server.URL, types.TagListing)
	require.NoError(t, err)
	assert.Equal(t, "<p>甘草</p>", body)
}

func TestFetchDecompresses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		switch r.URL.Path {
		case "/gzip":
			zw := gzip.NewWriter(&buf)
			zw.Write([]byte("黄芪"))
			zw.Close()
			w.Header().Set("Content-Encoding", "gzip")
		case "/br":
			bw := brotli.NewWriter(&buf)
			bw.Write([]byte("当归"))
			bw.Close()
			w.Header().Set("Content-Encoding", "br")
		}
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	f := newTestFetcher(t)

	body, err := fetchBody(context.Background(), f, server.URL+"/gzip", types.TagDetail)
	require.NoError(t, err)
	assert.Equal(t, "黄芪", body)

	body, err = fetchBody(context.Background(), f, server.URL+"/br", types.TagDetail)
	require.NoError(t, err)
	assert.Equal(t, "当归", body)
}

func TestFetchEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := fetchBody(context.Background(), newTestFetcher(t), server.URL, types.TagDetail)
	require.Error(t, err)

	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, types.ErrEmptyResponse)
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := fetchBody(context.Background(), newTestFetcher(t), server.URL, types.TagDetail)

	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := fetchBody(context.Background(), newTestFetcher(t), url, types.TagDetail)

	var fe *types.FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := fetchBody(context.Background(), newTestFetcher(t), "mailto:someone", types.TagDetail)
	assert.ErrorIs(t, err, types.ErrInvalidURL)
}

func TestFetchBodyLimit(t *testing.T) {
	page := strings.Repeat("<div class=\"left_title\">性味</div>", 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gzip" {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			zw.Write([]byte(page))
			zw.Close()
			w.Header().Set("Content-Encoding", "gzip")
			w.Write(buf.Bytes())
			return
		}
		w.Write([]byte(page))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.MaxBodySize = int64(len(page))
	f := NewHTTPFetcher(cfg, testLogger)
	defer f.Close()

	body, err := fetchBody(context.Background(), f, server.URL, types.TagDetail)
	require.NoError(t, err, "a page of exactly the limit is accepted")
	assert.Equal(t, page, body)

	cfg.Fetcher.MaxBodySize = int64(len(page)) - 40
	for _, path := range []string{"/plain", "/gzip"} {
		_, err := fetchBody(context.Background(), f, server.URL+path, types.TagDetail)
		var fe *types.FetchError
		require.ErrorAs(t, err, &fe, path)
		assert.ErrorIs(t, err, types.ErrBodyTooLarge, path)
	}
}

func TestGetSetsRequestFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := Get(context.Background(), newTestFetcher(t), server.URL+"/start", types.TagListing, "diet")
	require.NoError(t, err)
	assert.Equal(t, types.TagListing, resp.Request.Tag)
	assert.Equal(t, "diet", resp.Request.Category)
	assert.Equal(t, server.URL+"/final", resp.FinalURL)
	assert.Positive(t, resp.FetchDuration)
}

func TestPolitenessDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.PolitenessDelay = 100 * time.Millisecond
	f := NewHTTPFetcher(cfg, testLogger)
	defer f.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := fetchBody(context.Background(), f, server.URL, types.TagDetail)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestDecodeUTF8(t *testing.T) {
	got, err := DecodeUTF8([]byte("\xef\xbb\xbf药膳"))
	require.NoError(t, err)
	assert.Equal(t, "药膳", got)

	got, err = DecodeUTF8([]byte{'a', 0xff, 'b'})
	require.NoError(t, err)
	assert.Equal(t, "a\uFFFDb", got)
}
