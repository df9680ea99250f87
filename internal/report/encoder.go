package report

import (
	"bytes"
	"encoding/csv"
	"io"
)

// Encode writes the header followed by one line per row.
func Encode(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return &EncodingError{Err: err}
	}
	for _, row := range rows {
		if err := writer.Write(row.Values()); err != nil {
			return &EncodingError{Err: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &EncodingError{Err: err}
	}
	return nil
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
