package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/zhongyi/internal/types"
)

// CSVSink appends records as CSV rows with the same header rule as XLSXSink.
type CSVSink struct {
	path    string
	file    *os.File
	writer  *csv.Writer
	headers []string
	mu      sync.Mutex
	count   int
	logger  *slog.Logger
}

// OpenCSV opens a CSV file for appending, reading the header of an existing file.
func OpenCSV(outputPath string, logger *slog.Logger) (*CSVSink, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, csvErr(outputPath, fmt.Errorf("create output dir: %w", err))
	}

	headers, err := readCSVHeader(outputPath)
	if err != nil {
		return nil, csvErr(outputPath, err)
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, csvErr(outputPath, fmt.Errorf("open output file: %w", err))
	}

	return &CSVSink{
		path:    outputPath,
		file:    f,
		writer:  csv.NewWriter(f),
		headers: headers,
		logger:  logger.With("component", "csv_storage", "path", outputPath),
	}, nil
}

func readCSVHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open existing output: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read existing header: %w", err)
	}
	return header, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Append(rec *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	headers, writeHeader := resolveHeader(s.headers, rec)
	if writeHeader {
		if err := s.writer.Write(headers); err != nil {
			return csvErr(s.path, fmt.Errorf("write CSV header: %w", err))
		}
		s.headers = headers
	}

	if err := s.writer.Write(rec.Project(s.headers)); err != nil {
		return csvErr(s.path, fmt.Errorf("write CSV row: %w", err))
	}
	s.count++

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return csvErr(s.path, err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("CSV written", "rows_appended", s.count)
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return csvErr(s.path, err)
	}
	return s.file.Close()
}

func csvErr(path string, err error) error {
	return &types.StorageError{Backend: "csv", Path: path, Err: err}
}
