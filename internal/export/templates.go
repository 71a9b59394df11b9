package export

import (
	"bytes"
	"html/template"
)

// TemplateData holds listing data for report rendering.
type TemplateData struct {
	Title     string
	DateFrom  string
	DateTo    string
	Generated string
	Rows      []Row
}

var listingTemplate = template.Must(template.New("listing").Funcs(template.FuncMap{
	"mark": mark,
}).Parse(listingHTML))

// RenderListingHTML renders the exception listing report.
func RenderListingHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := listingTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const listingHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; font-size: 11px; margin: 1.5rem; }
    h1 { font-size: 16px; border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; margin-bottom: 1rem; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #999; padding: 4px 6px; text-align: left; }
    th { background: #eee; }
    td.flag { text-align: center; color: #b00; font-weight: bold; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    {{if .DateFrom}}from {{.DateFrom}} {{end}}{{if .DateTo}}to {{.DateTo}} {{end}}| generated {{.Generated}} | {{len .Rows}} records
  </div>
  <table>
    <tr>
      <th>Date</th><th>Name</th><th>Gender</th><th>ID</th>
      <th>Company</th><th>Platoon</th><th>Squad</th>
      <th>Thought</th><th>Body</th><th>Spirit</th><th>Training</th><th>Management</th>
      <th>Sources</th>
    </tr>
    {{range .Rows}}
    <tr>
      <td>{{.Date}}</td><td>{{.Name}}</td><td>{{.Gender}}</td><td>{{.PersonID}}</td>
      <td>{{.Company}}</td><td>{{.Platoon}}</td><td>{{.Squad}}</td>
      <td class="flag">{{mark .Thought}}</td>
      <td class="flag">{{mark .Body}}</td>
      <td class="flag">{{mark .Spirit}}</td>
      <td class="flag">{{mark .Training}}</td>
      <td class="flag">{{mark .Management}}</td>
      <td>{{.Sources}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>`
