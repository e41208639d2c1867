package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"autodrive-bridge/internal/models"

	"github.com/xuri/excelize/v2"
)

// exportPageSize 导出上限（一次取全部，不分页）
const exportPageSize = 10000

// TripExportHeader 行程导出表头
var TripExportHeader = []string{
	"Trip ID",
	"Vehicle ID",
	"Mode",
	"Status",
	"Start Time",
	"End Time",
	"Duration (s)",
	"Distance (m)",
	"Avg Speed",
	"Max Speed",
}

// GenerateTripExport 生成行程历史 Excel 文件
// trips 为空时只生成表头
func GenerateTripExport(trips []*models.Trip) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Trips"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 设置表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 写入表头
	for col, header := range TripExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to get cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 写入数据行
	for rowIdx, trip := range trips {
		values := []any{
			trip.TripID,
			trip.VehicleID,
			trip.Mode,
			trip.Status,
			trip.StartTime.Format(time.RFC3339),
			formatOptionalTime(trip.EndTime),
			formatOptionalInt(trip.DurationSeconds),
			formatOptionalFloat(trip.DistanceTraveled),
			formatOptionalFloat(trip.AvgSpeed),
			formatOptionalFloat(trip.MaxSpeed),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to get cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}

	return buf.Bytes(), nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatOptionalInt(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptionalFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
