package export

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
)

const (
	SheetExtractions = "Extractions"
	SheetFields      = "Fields"
)

// Row is one processed document. Err is set when the document failed as a whole.
type Row struct {
	Path string
	Doc  extract.DocumentExtraction
	Err  error
}

var bandFill = map[constants.ConfidenceBand]string{
	constants.BandHigh:    "#C6EFCE",
	constants.BandMedium:  "#FFEB9C",
	constants.BandLow:     "#F8CBAD",
	constants.BandVeryLow: "#FFC7CE",
}

// WriteXLSX renders rows as a workbook: one row per document with a value and a confidence
// column per field, confidence cells shaded by band, plus a sheet listing the field spec.
func WriteXLSX(spec extract.FieldSpec, rows []Row, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetExtractions); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	const sheet = SheetExtractions

	styles := make(map[constants.ConfidenceBand]int, len(bandFill))
	for band, color := range bandFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if err != nil {
			return nil, fmt.Errorf("xlsx style: %w", err)
		}
		styles[band] = id
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	keys := spec.Keys()
	headers := []string{"File"}
	for _, k := range keys {
		headers = append(headers, k, k+" confidence")
	}
	headers = append(headers, "Overall Confidence", "Pages", "Error")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellStyle(sheet, "A1", lastCol+"1", header)

	row := 2
	for _, r := range rows {
		write := func(col int, v any) string {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
			return cell
		}

		write(1, filepath.Base(r.Path))
		col := 2
		for _, k := range keys {
			if r.Err == nil {
				fr := r.Doc.Fields[k]
				if fr.Value != nil {
					write(col, truncate(*fr.Value, 500))
				}
				cell := write(col+1, fr.Confidence)
				_ = f.SetCellStyle(sheet, cell, cell, styles[constants.BandFor(fr.Confidence)])
			}
			col += 2
		}
		if r.Err == nil {
			write(col, r.Doc.OverallConfidence)
			write(col+1, r.Doc.PageCount)
		} else {
			write(col+2, fmt.Sprintf("%s: %s", common.Kind(r.Err), truncate(r.Err.Error(), 300)))
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 32) // file
	for i := range keys {
		valueCol, _ := excelize.ColumnNumberToName(2 + 2*i)
		confCol, _ := excelize.ColumnNumberToName(3 + 2*i)
		_ = f.SetColWidth(sheet, valueCol, valueCol, 28)
		_ = f.SetColWidth(sheet, confCol, confCol, 12)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.NewSheet(SheetFields); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	_ = f.SetCellValue(SheetFields, "A1", "Field")
	_ = f.SetCellValue(SheetFields, "B1", "Description")
	_ = f.SetCellStyle(SheetFields, "A1", "B1", header)
	for i, fd := range spec.Fields() {
		_ = f.SetCellValue(SheetFields, fmt.Sprintf("A%d", i+2), fd.Key)
		_ = f.SetCellValue(SheetFields, fmt.Sprintf("B%d", i+2), fd.Description)
	}
	_ = f.SetColWidth(SheetFields, "A", "A", 24)
	_ = f.SetColWidth(SheetFields, "B", "B", 80)

	if idx, err := f.GetSheetIndex(sheet); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"fields", len(keys),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
