package export

import (
	"bytes"
	"fmt"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/xuri/excelize/v2"
)

const USERS_SHEET = "Users"

// UsersHeader is the fixed part of the header. One column per sensor type follows it.
var UsersHeader = []string{
	"Base Name",
	"Display Name",
	"Building",
	"Street",
	"Manufacturer",
	"Model",
	"Control Entity",
}

// UsersWorkbook renders the canonical user list as an xlsx file.
func UsersWorkbook(users []domain.UserRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(USERS_SHEET)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

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
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	headers := append([]string{}, UsersHeader...)
	for _, t := range domain.SensorTypes {
		headers = append(headers, string(t))
	}
	if err := f.SetSheetRow(USERS_SHEET, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(USERS_SHEET, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(USERS_SHEET, "A", lastCol, 22); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, u := range users {
		row := userRow(u)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(USERS_SHEET, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if len(users) > 0 {
		if err := f.AutoFilter(USERS_SHEET, "A1:"+last, nil); err != nil {
			return nil, fmt.Errorf("failed to set auto filter: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func userRow(u domain.UserRecord) []any {
	var manufacturer, model string
	if u.Device != nil {
		manufacturer = u.Device.Manufacturer
		model = u.Device.Model
	}
	row := []any{u.BaseName, u.DisplayName, u.Building, u.Street, manufacturer, model, u.ControlEntity}
	for _, t := range domain.SensorTypes {
		row = append(row, u.Sensors[t])
	}
	return row
}
