// Package report turns a decoded submissions file into the admin dashboard.
package report

import (
	"html/template"
	"io"
	"sort"

	"github.com/akave-ai/consultlog/internal/csvcodec"
	"github.com/akave-ai/consultlog/internal/model"
)

// SourceCount is the number of submissions from one source.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// View is everything the dashboard shows.
type View struct {
	Total    int            `json:"total"`
	BySource []SourceCount  `json:"by_source"`
	Headers  []string       `json:"headers"`
	Rows     [][]string     `json:"-"`
	Records  []csvcodec.Row `json:"records"`
}

// Build computes summary counts and a row per record. Missing cells are empty.
func Build(doc csvcodec.Document) View {
	v := View{
		Total:   doc.Len(),
		Headers: doc.Headers,
		Rows:    make([][]string, 0, doc.Len()),
		Records: doc.Records,
	}
	if v.Headers == nil {
		v.Headers = []string{}
	}
	if v.Records == nil {
		v.Records = []csvcodec.Row{}
	}
	counts := make(map[string]int)
	for i, r := range doc.Records {
		src := r.Get("source")
		if src == "" {
			src = model.DefaultSource
		}
		counts[src]++
		v.Rows = append(v.Rows, doc.Values(i))
	}
	v.BySource = make([]SourceCount, 0, len(counts))
	for src, n := range counts {
		v.BySource = append(v.BySource, SourceCount{Source: src, Count: n})
	}
	sort.Slice(v.BySource, func(i, j int) bool {
		if v.BySource[i].Count != v.BySource[j].Count {
			return v.BySource[i].Count > v.BySource[j].Count
		}
		return v.BySource[i].Source < v.BySource[j].Source
	})
	return v
}

var page = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Consultations</title>
  <style>body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;margin:20px} table{border-collapse:collapse;width:100%} thead{background:#f8f8f8} h1{margin-bottom:16px} th{text-align:left;padding:8px;border-bottom:1px solid #ddd} td{padding:8px;border-bottom:1px solid #eee;white-space:pre-wrap} .summary{margin-bottom:16px} .download-btn{background:#007bff;color:white;padding:10px 20px;border-radius:5px;margin-bottom:20px;text-decoration:none;display:inline-block} .download-btn:hover{background:#0056b3}</style>
</head>
<body>
  <h1>Consultations ({{.Total}})</h1>
  <a href="{{.DownloadURL}}" class="download-btn">Download CSV</a>
  <ul class="summary">
  {{- range .BySource}}
    <li>{{.Source}}: {{.Count}}</li>
  {{- end}}
  </ul>
  <table>
    <thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>
    {{- range .Rows}}
      <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
    {{- end}}
    </tbody>
  </table>
</body>
</html>
`))

// Render writes the dashboard page. downloadURL is the link behind the
// download button.
func Render(w io.Writer, v View, downloadURL string) error {
	return page.Execute(w, struct {
		View
		DownloadURL string
	}{v, downloadURL})
}

// RenderEmpty writes the placeholder shown before any submission exists.
func RenderEmpty(w io.Writer) error {
	_, err := io.WriteString(w, "<h2>No submissions yet</h2>")
	return err
}
