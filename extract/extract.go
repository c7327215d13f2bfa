// Package extract turns uploaded documents into plain text for the
// generation input box. Delimited and plain formats are handled inline;
// page-oriented and spreadsheet formats are reported as unsupported.
package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupported wraps the file types this service does not extract.
var ErrUnsupported = fmt.Errorf("unsupported file type")

// Result is the extracted text with the detected kind.
type Result struct {
	Text string `json:"text"`
	Kind string `json:"type"`
}

// FromFile extracts text from r based on the file name's extension.
func FromFile(name string, r io.Reader) (Result, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "txt", "md":
		data, err := io.ReadAll(r)
		if err != nil {
			return Result{}, fmt.Errorf("read file: %w", err)
		}
		return Result{Text: string(data), Kind: "text"}, nil
	case "csv":
		text, err := fromCSV(r)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: text, Kind: "csv"}, nil
	case "pdf", "docx", "doc", "xlsx":
		// Page-oriented and spreadsheet extraction is degraded in this
		// service; callers surface the error to the uploader.
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, name)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
}

// fromCSV renders rows as labelled key/value lines using the header row,
// which reads better as generation input than raw comma text.
func fromCSV(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}

	var b strings.Builder
	b.WriteString("CSV Data:\n\n")
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv: %w", err)
		}
		row++
		fmt.Fprintf(&b, "Row %d:\n", row)
		for i, value := range record {
			key := fmt.Sprintf("column %d", i+1)
			if i < len(header) {
				key = header[i]
			}
			fmt.Fprintf(&b, "  %s: %s\n", key, value)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
