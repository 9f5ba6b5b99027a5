// Package table reads and writes the account spreadsheet: a CSV file with a
// header row whose first column holds the account identifier.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("table has no header row")

const (
	// ResultColumn is the header of the column receiving resolved URLs.
	ResultColumn = "Profile Image URL"
	// FailureMarker is written when no URL could be resolved.
	FailureMarker = "Failed to fetch URL"
)

// Table is an in-memory CSV document.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read parses a CSV document. Rows may have differing field counts.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return &Table{Header: header, Rows: records[1:]}, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write emits the header followed by every row, padding short rows to the
// header width.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writer.Write(t.pad(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFile writes the table to a temporary file beside path and renames it
// into place, so readers never observe a partial file.
func (t *Table) WriteFile(path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = t.Write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// EnsureColumn returns the index of the named header column, appending it
// when missing.
func (t *Table) EnsureColumn(name string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	t.Header = append(t.Header, name)
	return len(t.Header) - 1
}

// Account returns the identifier held in row's first field.
func Account(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

// Set stores value at col, growing row as needed, and returns the row.
func Set(row []string, col int, value string) []string {
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = value
	return row
}

func (t *Table) pad(row []string) []string {
	if len(row) >= len(t.Header) {
		return row
	}
	padded := make([]string, len(t.Header))
	copy(padded, row)
	return padded
}
