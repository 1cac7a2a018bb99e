package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook. Numeric cells are written as numbers.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := requireHeaders(data, "xlsx"); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	row := 1
	if data.Title != "" {
		if err := f.SetCellValue(defaultSheet, "A1", data.Title); err != nil {
			return nil, fmt.Errorf("write xlsx title: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
		if len(data.Headers) > 1 {
			if err := f.MergeCell(defaultSheet, "A1", last); err != nil {
				return nil, fmt.Errorf("merge xlsx title: %w", err)
			}
		}
		row = 2
	}

	for col, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		if err := f.SetCellValue(defaultSheet, cell, header); err != nil {
			return nil, fmt.Errorf("write xlsx header: %w", err)
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
	if err := f.SetCellStyle(defaultSheet, first, last, headerStyle); err != nil {
		return nil, fmt.Errorf("style xlsx header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(data.Headers))
	_ = f.SetColWidth(defaultSheet, "A", lastCol, 18)

	for _, values := range data.Rows {
		row++
		for col, header := range data.Headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(defaultSheet, cell, cellValue(values[header])); err != nil {
				return nil, fmt.Errorf("write xlsx row: %w", err)
			}
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(raw string) interface{} {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	return raw
}
