// Package export encodes datasets into downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/voicebridge/data-connector/internal/connectors"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatExcel Format = "xlsx"
)

// ErrUnknownFormat wraps the offending format name.
var ErrUnknownFormat = fmt.Errorf("unknown export format")

// ParseFormat normalizes a format query value. Empty defaults to CSV.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for download headers.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Extension returns the file extension without a dot.
func (f Format) Extension() string {
	return string(f)
}

// Encode renders records in the given format. Tabular formats (CSV, Excel)
// flatten nested maps into dotted columns; JSON preserves structure.
func Encode(records []connectors.Record, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return encodeCSV(records)
	case FormatJSON:
		return json.MarshalIndent(records, "", "  ")
	case FormatExcel:
		return encodeExcel(records)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

func encodeCSV(records []connectors.Record) ([]byte, error) {
	flat := flattenAll(records)
	columns := Columns(flat)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(columns))
	for _, r := range flat {
		for i, col := range columns {
			row[i] = cell(r[col])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeExcel(records []connectors.Record) ([]byte, error) {
	flat := flattenAll(records)
	columns := Columns(flat)

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write sheet header: %w", err)
	}

	for i, r := range flat {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = r[col]
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return nil, fmt.Errorf("failed to write sheet row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func flattenAll(records []connectors.Record) []connectors.Record {
	flat := make([]connectors.Record, len(records))
	for i, r := range records {
		flat[i] = Flatten(r)
	}
	return flat
}
