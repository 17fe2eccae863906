// Package tabular reads the input work list and writes the result sheet.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/UniQw/bulkscan/internal/ledger"
)

// DetectLimit is how many leading rows are scanned when detecting URL columns.
const DetectLimit = 200

// Suffixes of the two columns appended per URL field.
const (
	ValueSuffix  = "_VALUE"
	StatusSuffix = "_STATUS"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("tabular: missing header row")

// Table is a parsed CSV file: the header and every row keyed by column name.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// Cell returns the value at row/column, or "" when out of range.
func (t *Table) Cell(row int, col string) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][col]
}

// ReadFile parses the CSV at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses CSV from r, tolerating a leading UTF-8 BOM and ragged rows.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	t := &Table{Headers: headers}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// DetectURLFields returns the columns, in header order, where any of the first
// DetectLimit rows holds an http:// or https:// value.
func DetectURLFields(t *Table) []string {
	limit := len(t.Rows)
	if limit > DetectLimit {
		limit = DetectLimit
	}
	var out []string
	for _, h := range t.Headers {
		for i := 0; i < limit; i++ {
			v := strings.ToLower(strings.TrimSpace(t.Rows[i][h]))
			if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// Writer materializes snapshots into a CSV file next to the input columns.
type Writer struct {
	Path   string
	Table  *Table
	Fields []string
}

// NewWriter returns a writer for the given table and URL fields.
func NewWriter(path string, t *Table, fields []string) *Writer {
	return &Writer{Path: path, Table: t, Fields: fields}
}

// Headers returns the output header: input columns then two per field.
func (w *Writer) Headers() []string {
	out := make([]string, 0, len(w.Table.Headers)+2*len(w.Fields))
	out = append(out, w.Table.Headers...)
	for _, f := range w.Fields {
		out = append(out, f+ValueSuffix, f+StatusSuffix)
	}
	return out
}

// StatusText is what the status column shows for an entry: the extraction
// method on success, otherwise the status label.
func StatusText(e ledger.Entry) string {
	if e.Status == ledger.StatusSuccess {
		return e.Detail
	}
	return string(e.Status)
}

// Encode writes the sheet for s to dst with a BOM and CRLF line endings.
func (w *Writer) Encode(dst io.Writer, s ledger.Snapshot) error {
	if _, err := dst.Write(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(dst)
	cw.UseCRLF = true
	if err := cw.Write(w.Headers()); err != nil {
		return err
	}
	rec := make([]string, 0, len(w.Table.Headers)+2*len(w.Fields))
	for idx, row := range w.Table.Rows {
		rec = rec[:0]
		for _, h := range w.Table.Headers {
			rec = append(rec, row[h])
		}
		for _, f := range w.Fields {
			e, ok := s.Get(ledger.Key{Row: idx, Field: f})
			if !ok {
				rec = append(rec, "", "")
				continue
			}
			rec = append(rec, e.Value, StatusText(e))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Materialize writes the sheet to a temp file and renames it over Path.
func (w *Writer) Materialize(s ledger.Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(w.Path), filepath.Base(w.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("tabular: %w", err)
	}
	name := tmp.Name()
	bw := bufio.NewWriter(tmp)
	if err := w.Encode(bw, s); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, w.Path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
