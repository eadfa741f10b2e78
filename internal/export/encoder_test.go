package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/voicebridge/data-connector/internal/connectors"
)

func sampleRecords() []connectors.Record {
	return []connectors.Record{
		{"id": "cust_001", "name": "Sarah Johnson", "deal_value": 4500},
		{"id": "cust_002", "name": "James Chen", "deal_value": 12000},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":      FormatCSV,
		"csv":   FormatCSV,
		"json":  FormatJSON,
		"xlsx":  FormatExcel,
		"excel": FormatExcel,
	}
	for input, want := range cases {
		got, err := ParseFormat(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFlatten(t *testing.T) {
	record := connectors.Record{
		"id": "cust_001",
		"usage": map[string]any{
			"api_calls": 120,
			"limits":    map[string]any{"daily": 500},
		},
	}

	flat := Flatten(record)

	assert.Equal(t, "cust_001", flat["id"])
	assert.Equal(t, 120, flat["usage.api_calls"])
	assert.Equal(t, 500, flat["usage.limits.daily"])
	assert.NotContains(t, flat, "usage")
}

func TestEncodeCSV(t *testing.T) {
	payload, err := Encode(sampleRecords(), FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Columns are sorted for a stable layout.
	assert.Equal(t, []string{"deal_value", "id", "name"}, rows[0])
	assert.Equal(t, []string{"4500", "cust_001", "Sarah Johnson"}, rows[1])
}

func TestEncodeCSVFlattensNested(t *testing.T) {
	records := []connectors.Record{
		{"id": "a", "usage": map[string]any{"calls": 7}},
	}

	payload, err := Encode(records, FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "usage.calls"}, rows[0])
	assert.Equal(t, []string{"a", "7"}, rows[1])
}

func TestEncodeJSON(t *testing.T) {
	payload, err := Encode(sampleRecords(), FormatJSON)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "cust_002", decoded[1]["id"])
}

func TestEncodeExcel(t *testing.T) {
	payload, err := Encode(sampleRecords(), FormatExcel)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"deal_value", "id", "name"}, rows[0])
	assert.Equal(t, "James Chen", rows[2][2])
}

func TestEncodeEmptyDataset(t *testing.T) {
	payload, err := Encode(nil, FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	assert.Empty(t, rows)
}
