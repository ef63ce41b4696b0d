package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/zhongyi/internal/types"
)

// defaultSheet is the sheet excelize creates in a new workbook.
const defaultSheet = "Sheet1"

// XLSXSink appends records as rows of a single named sheet. The workbook is
// saved after every row so a crash never loses an already appended record.
type XLSXSink struct {
	path    string
	sheet   string
	file    *excelize.File
	header  []string
	nextRow int
	count   int
	mu      sync.Mutex
	logger  *slog.Logger
}

// OpenXLSX opens path for appending, creating a workbook with one sheet named
// sheet if the file does not exist yet. An existing file is never re-initialized.
func OpenXLSX(path, sheet string, logger *slog.Logger) (*XLSXSink, error) {
	logger = logger.With("component", "xlsx_storage", "path", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, xlsxErr(path, fmt.Errorf("create output dir: %w", err))
	}

	var f *excelize.File
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		var err error
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, xlsxErr(path, fmt.Errorf("open workbook: %w", err))
		}
		idx, err := f.GetSheetIndex(sheet)
		if err != nil {
			f.Close()
			return nil, xlsxErr(path, err)
		}
		if idx == -1 {
			if _, err := f.NewSheet(sheet); err != nil {
				f.Close()
				return nil, xlsxErr(path, fmt.Errorf("add sheet %q: %w", sheet, err))
			}
		}
		logger.Info("output file exists, skipping initialization")

	case errors.Is(statErr, os.ErrNotExist):
		f = excelize.NewFile()
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			f.Close()
			return nil, xlsxErr(path, fmt.Errorf("name sheet %q: %w", sheet, err))
		}
		if err := f.SaveAs(path); err != nil {
			f.Close()
			return nil, xlsxErr(path, fmt.Errorf("create workbook: %w", err))
		}
		logger.Info("output file initialized", "sheet", sheet)

	default:
		return nil, xlsxErr(path, statErr)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, xlsxErr(path, fmt.Errorf("read rows: %w", err))
	}

	s := &XLSXSink{
		path:    path,
		sheet:   sheet,
		file:    f,
		nextRow: len(rows) + 1,
		logger:  logger,
	}
	if len(rows) > 0 {
		s.header = rows[0]
	}
	return s, nil
}

func (s *XLSXSink) Name() string { return "xlsx" }

// Header returns the header row in effect, nil before the first record.
func (s *XLSXSink) Header() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.header...)
}

func (s *XLSXSink) Append(rec *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, writeHeader := resolveHeader(s.header, rec)
	if writeHeader {
		if err := s.writeRow(header); err != nil {
			return xlsxErr(s.path, fmt.Errorf("write header: %w", err))
		}
		s.header = header
	}

	row := rec.Project(s.header)
	for i, v := range row {
		if n := utf8.RuneCountInString(v); n > excelize.TotalCellChars {
			s.logger.Warn("value truncated to cell limit",
				"label", s.header[i],
				"length", n,
				"limit", excelize.TotalCellChars,
				"source", rec.SourceURL,
			)
		}
	}

	if err := s.writeRow(row); err != nil {
		return xlsxErr(s.path, fmt.Errorf("write row: %w", err))
	}
	if err := s.file.Save(); err != nil {
		return xlsxErr(s.path, fmt.Errorf("save workbook: %w", err))
	}

	s.count++
	s.logger.Debug("row appended", "row", s.nextRow-1, "fields", rec.Len())
	return nil
}

func (s *XLSXSink) writeRow(values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, s.nextRow)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := s.file.SetSheetRow(s.sheet, cell, &row); err != nil {
		return err
	}
	s.nextRow++
	return nil
}

func (s *XLSXSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("XLSX written", "rows_appended", s.count)
	if err := s.file.Close(); err != nil {
		return xlsxErr(s.path, err)
	}
	return nil
}

func xlsxErr(path string, err error) error {
	return &types.StorageError{Backend: "xlsx", Path: path, Err: err}
}
