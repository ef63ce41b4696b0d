package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for a scrape run.
type Metrics struct {
	ListingsFetched atomic.Int64
	DetailsFetched  atomic.Int64
	FetchErrors     atomic.Int64
	EntriesListed   atomic.Int64
	RecordsWritten  atomic.Int64
	RecordsSkipped  atomic.Int64
	BytesDownloaded atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"zhongyi_listings_fetched_total", "Listing pages fetched", m.ListingsFetched.Load()},
		{"zhongyi_details_fetched_total", "Detail pages fetched", m.DetailsFetched.Load()},
		{"zhongyi_fetch_errors_total", "Pages that could not be fetched", m.FetchErrors.Load()},
		{"zhongyi_entries_listed_total", "Entries discovered on listing pages", m.EntriesListed.Load()},
		{"zhongyi_records_written_total", "Records appended to outputs", m.RecordsWritten.Load()},
		{"zhongyi_records_skipped_total", "Detail pages without label/value pairs", m.RecordsSkipped.Load()},
		{"zhongyi_bytes_downloaded_total", "Decoded page bytes downloaded", m.BytesDownloaded.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"listings_fetched": m.ListingsFetched.Load(),
		"details_fetched":  m.DetailsFetched.Load(),
		"fetch_errors":     m.FetchErrors.Load(),
		"entries_listed":   m.EntriesListed.Load(),
		"records_written":  m.RecordsWritten.Load(),
		"records_skipped":  m.RecordsSkipped.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
	}
}
