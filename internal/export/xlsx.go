package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"svarak-backend/internal/models"
)

// XLSXFilename mirrors CSVFilename with the spreadsheet extension.
func XLSXFilename(now time.Time) string {
	return fmt.Sprintf("certovske-objednavky-%s.xlsx", now.Format("2006-01-02-150405"))
}

// OrdersXLSX renders the same one-row-per-item layout as the CSV export
// into a single-sheet workbook.
func OrdersXLSX(orders []models.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, h := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, order := range orders {
		var orderNumber interface{}
		if order.OrderNumber != nil {
			orderNumber = *order.OrderNumber
		}
		for _, item := range order.Items {
			values := []interface{}{
				order.ID,
				orderNumber,
				item.Name,
				item.Price,
				yesNo(order.IsStaffOrder),
				order.Timestamp,
				order.CreatedAt.Format(time.RFC3339),
				order.Total,
				order.Note,
				yesNo(order.Completed),
			}
			for col, v := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, row)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return nil, err
				}
			}
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
