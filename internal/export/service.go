package export

import (
	"fmt"
	"time"
)

// ExportListing renders the exception listing in the requested format.
// Supported formats are "csv" and "pdf".
func ExportListing(rows []Row, format, dateFrom, dateTo string) (*Result, error) {
	title := "Exception Listing"
	switch format {
	case "csv":
		return ExportCSV(rows, title)
	case "pdf":
		html, err := RenderListingHTML(TemplateData{
			Title:     title,
			DateFrom:  dateFrom,
			DateTo:    dateTo,
			Generated: time.Now().Format("2006-01-02 15:04"),
			Rows:      rows,
		})
		if err != nil {
			return nil, fmt.Errorf("render listing: %w", err)
		}
		return exportPDF(html, title)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
