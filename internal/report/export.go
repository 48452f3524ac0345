package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"vital-monitor/internal/models"
)

// MeasurementExportHeader is the column layout of the xlsx export.
var MeasurementExportHeader = []string{
	"Timestamp",
	"SpO2 (%)",
	"Heart Rate (bpm)",
	"Respiratory Rate (rpm)",
	"Temperature (°C)",
	"Systolic BP (mmHg)",
	"Diastolic BP (mmHg)",
	"Activity Level",
}

// ExportMeasurements generates an xlsx workbook with one row per
// measurement, insertion order preserved.
func ExportMeasurements(measurements []models.Measurement) ([]byte, error) {
	f := excelize.NewFile()
	// Don't defer Close here, WriteTo needs the file open.

	sheetName := "Measurements"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for col, header := range MeasurementExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, m := range measurements {
		row := []interface{}{
			m.Timestamp.Format("2006-01-02 15:04:05"),
			m.SpO2,
			m.HeartRate,
			m.RespiratoryRate,
			m.Temperature,
			m.SystolicBP,
			m.DiastolicBP,
			m.ActivityLevel,
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}
