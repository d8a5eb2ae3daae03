package core

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are trimmed and lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// rowSource streams the data rows of one input file, extracting only the
// expected columns. Extra columns are ignored; columns missing from the
// header, or cells missing from a short line, are absent from the Row.
type rowSource struct {
	reader  *csv.Reader
	columns []string
	index   HeaderIndex
}

// newRowSource reads the header line of r. A file without any line yields a
// source with no rows.
func newRowSource(r io.Reader, columns []string) (*rowSource, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	src := &rowSource{reader: cr, columns: columns}

	header, err := cr.Read()
	if err == io.EOF {
		return src, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	src.index = MakeHeaderIndex(header)
	return src, nil
}

// Next returns the next data row, or io.EOF when the file is exhausted.
func (s *rowSource) Next() (Row, error) {
	if s.index == nil {
		return nil, io.EOF
	}
	record, err := s.reader.Read()
	if err != nil {
		return nil, err
	}

	row := make(Row, len(s.columns))
	for _, col := range s.columns {
		pos, ok := s.index[col]
		if !ok || pos >= len(record) {
			continue
		}
		row[col] = strings.ToValidUTF8(record[pos], "\uFFFD")
	}
	return row, nil
}
