package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"PairLab/internal/domain/models"
)

// ExportTimeLayout is the ISO-8601 layout used for exported timestamps (UTC, ms).
const ExportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

const exportSheet = "Sheet1"

var exportHeader = []string{"Time", "X_Close", "Y_Close", "Spread"}

// ExportFilename names the export for a pair, e.g. BTCUSDT_ETHUSDT_data.csv.
func ExportFilename(symbolX, symbolY, ext string) string {
	return fmt.Sprintf("%s_%s_data.%s", symbolX, symbolY, ext)
}

// WriteCSV writes one row per aligned point. The spread column is the
// unweighted y - x, independent of any hedge ratio.
func WriteCSV(w io.Writer, points []models.AlignedPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	xs, ys := Closes(points)
	spread := RawSpread(xs, ys)
	for i, p := range points {
		row := []string{
			p.Time.UTC().Format(ExportTimeLayout),
			strconv.FormatFloat(p.CloseX, 'f', -1, 64),
			strconv.FormatFloat(p.CloseY, 'f', -1, 64),
			strconv.FormatFloat(spread[i], 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same rows as WriteCSV into a single-sheet workbook.
func WriteXLSX(w io.Writer, points []models.AlignedPoint) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	xs, ys := Closes(points)
	spread := RawSpread(xs, ys)
	for i, p := range points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{p.Time.UTC().Format(ExportTimeLayout), p.CloseX, p.CloseY, spread[i]}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f.Write(w)
}
