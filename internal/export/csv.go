package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var csvHeader = []string{
	"date", "name", "gender", "person_id",
	"company", "platoon", "squad", "squad_leader", "recruitment_place",
	"thought", "body", "spirit", "training", "management",
	"sources",
}

// ExportCSV renders the exception listing as UTF-8 CSV. The leading BOM
// keeps Excel from mangling non-ASCII names.
func ExportCSV(rows []Row, title string) (*Result, error) {
	var buf bytes.Buffer
	buf.WriteString("\xef\xbb\xbf")

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Date, row.Name, row.Gender, row.PersonID,
			row.Company, row.Platoon, row.Squad, row.SquadLeader, row.RecruitmentPlace,
			mark(row.Thought), mark(row.Body), mark(row.Spirit), mark(row.Training), mark(row.Management),
			row.Sources,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(title) + ".csv",
		MimeType: "text/csv; charset=utf-8",
	}, nil
}

func mark(flagged bool) string {
	if flagged {
		return "abnormal"
	}
	return ""
}
