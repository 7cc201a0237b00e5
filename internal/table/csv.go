package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV encodes t with a header row followed by one record per row.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.columns); err != nil {
		return err
	}
	for _, row := range t.rows {
		record := make([]string, len(t.columns))
		for i, column := range t.columns {
			record[i] = FormatValue(row[column])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV decodes a table written by WriteCSV. Cells are kept as strings;
// empty cells become nil.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return New(), nil
	}
	t := New(records[0]...)
	for n, record := range records[1:] {
		if len(record) > len(t.columns) {
			return nil, fmt.Errorf("read csv: record %d has %d fields, header has %d", n+1, len(record), len(t.columns))
		}
		row := make(Row, len(t.columns))
		for i, column := range t.columns {
			if i < len(record) && record[i] != "" {
				row[column] = record[i]
			} else {
				row[column] = nil
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// FormatValue renders a cell as text.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
