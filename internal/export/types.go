// Package export renders the exception listing for download: CSV for
// spreadsheet use and PDF via headless Chrome for printable reports.
package export

import "errors"

// Result is a rendered export artifact.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates chromium is not installed on the host.
var ErrPDFDependencyMissing = errors.New("pdf export dependency missing")

// Row is one exception listing entry to render. The app layer maps engine
// records into this shape so the package stays decoupled from the engine.
type Row struct {
	Date             string
	Name             string
	Gender           string
	PersonID         string
	Company          string
	Platoon          string
	Squad            string
	SquadLeader      string
	RecruitmentPlace string

	Thought    bool
	Body       bool
	Spirit     bool
	Training   bool
	Management bool

	Sources string
}
