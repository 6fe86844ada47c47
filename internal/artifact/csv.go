package artifact

import (
	"bytes"
	"encoding/csv"
	"io"
)

// BOM is the UTF-8 byte order mark written ahead of every CSV so spreadsheet
// tools on Windows detect the encoding.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Writer wraps csv.Writer for writing artifact tables.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the table's column row.
func (w *Writer) WriteHeader(t *table) error {
	return w.csv.Write(t.Columns)
}

// WriteRows writes every data row of the table.
func (w *Writer) WriteRows(t *table) error {
	for _, row := range t.Rows {
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func renderCSV(t *table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(BOM)
	w := NewWriter(&buf)
	if err := w.WriteHeader(t); err != nil {
		return nil, err
	}
	if err := w.WriteRows(t); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
