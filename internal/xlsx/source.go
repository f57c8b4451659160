// Package xlsx adapts Excel workbooks into import row sources.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"skladtrack/internal/engine"
)

// requiredColumns must appear in the header row for an import to make sense.
var requiredColumns = []string{"number", "name"}

// Source streams the first sheet of an .xlsx workbook as an engine.RowSource.
// The first row is the header; column names are matched case-insensitively.
type Source struct {
	workbook *excelize.File
	rows     *excelize.Rows
	headers  []string
}

// Open reads a workbook from the given filesystem. The filesystem is
// injectable (afero) so tests and callers can supply in-memory files.
func Open(fs afero.Fs, path string) (*Source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return New(f)
}

// New reads a workbook from r and positions the source after the header row.
func New(r io.Reader) (*Source, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}

	sheet := workbook.GetSheetName(0)
	if sheet == "" {
		_ = workbook.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := workbook.Rows(sheet)
	if err != nil {
		_ = workbook.Close()
		return nil, fmt.Errorf("iterate sheet %s: %w", sheet, err)
	}
	if !rows.Next() {
		_ = workbook.Close()
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = workbook.Close()
		return nil, fmt.Errorf("read header row: %w", err)
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = strings.ToLower(strings.TrimSpace(c))
	}
	for _, required := range requiredColumns {
		found := false
		for _, h := range headers {
			if h == required {
				found = true
				break
			}
		}
		if !found {
			_ = workbook.Close()
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	return &Source{workbook: workbook, rows: rows, headers: headers}, nil
}

// Next returns the next data row, or nil when the sheet is exhausted.
func (s *Source) Next() (engine.Row, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, fmt.Errorf("advance row: %w", err)
		}
		return nil, nil
	}
	cols, err := s.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read row: %w", err)
	}

	row := make(engine.Row, len(s.headers))
	for i, header := range s.headers {
		if header == "" {
			continue
		}
		if i < len(cols) {
			row[header] = strings.TrimSpace(cols[i])
		} else {
			row[header] = ""
		}
	}
	return row, nil
}

// Close releases the underlying workbook.
func (s *Source) Close() error {
	if err := s.rows.Close(); err != nil {
		_ = s.workbook.Close()
		return err
	}
	return s.workbook.Close()
}
