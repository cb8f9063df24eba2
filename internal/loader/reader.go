package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Record is one table row keyed by schema column name. Empty cells are
// present with an empty string value.
type Record map[string]string

// ReadTable reads a tabular file into schema-keyed records, dispatching
// on the file extension: .xlsx via excelize, .csv via encoding/csv.
func ReadTable(path string, schema Schema) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path, schema)
	case ".csv":
		return readCSV(path, schema)
	default:
		return nil, fmt.Errorf("%s table %s: unsupported file type", schema.Name, path)
	}
}

func readXLSX(path string, schema Schema) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s table: %w", schema.Name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s table %s: workbook has no sheets", schema.Name, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s sheet %q: %w", schema.Name, sheets[0], err)
	}

	return recordsFromRows(rows, schema, path)
}

func readCSV(path string, schema Schema) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s table: %w", schema.Name, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // ragged exports happen; schema mapping handles width
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s table: %w", schema.Name, err)
	}

	return recordsFromRows(rows, schema, path)
}

// recordsFromRows locates the header row (the first row carrying every
// required column of the schema) and maps the data rows below it.
func recordsFromRows(rows [][]string, schema Schema, path string) ([]Record, error) {
	headerRow, colIndex := findHeader(rows, schema)
	if headerRow < 0 {
		return nil, fmt.Errorf("%s table %s: no header row with columns %v",
			schema.Name, path, schema.Required)
	}

	var records []Record
	for _, row := range rows[headerRow+1:] {
		if isEmptyRow(row) {
			continue
		}
		rec := make(Record, len(colIndex))
		for col, idx := range colIndex {
			if idx < len(row) {
				rec[col] = strings.TrimSpace(row[idx])
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

func findHeader(rows [][]string, schema Schema) (int, map[string]int) {
	want := append(append([]string{}, schema.Required...), schema.Optional...)

	for i, row := range rows {
		index := make(map[string]int, len(want))
		for j, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			for _, col := range want {
				if name == col {
					index[col] = j
				}
			}
		}

		complete := true
		for _, col := range schema.Required {
			if _, ok := index[col]; !ok {
				complete = false
				break
			}
		}
		if complete {
			return i, index
		}
	}
	return -1, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
