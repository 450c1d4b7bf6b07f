package reports

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"
)

// ExportRevenueExcel streams the revenue-by-day report as an xlsx attachment.
func ExportRevenueExcel(ctx context.Context, w http.ResponseWriter, days int) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Sheet1")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := getRevenueByDay(ctx, days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Add headers
	f.SetCellValue("Sheet1", "A1", "Day")
	f.SetCellValue("Sheet1", "B1", "OrderCount")
	f.SetCellValue("Sheet1", "C1", "Revenue")

	// Add data
	for i, d := range data {
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(i+2), d.Day)
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(i+2), d.OrderCount)
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(i+2), d.Revenue.InexactFloat64())
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=revenue.xlsx")
	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write file", http.StatusInternalServerError)
	}
}
