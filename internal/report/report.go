package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	texttemplate "text/template"
	"time"

	"github.com/FranksOps/prospector/internal/storage"
)

// Summary contains aggregated counts about one prospecting run, or about a
// set of stored prospects when built by Summarize.
type Summary struct {
	RunID string `json:"run_id,omitempty"`
	Niche string `json:"niche,omitempty"`

	Queries       int `json:"queries"`
	FailedQueries int `json:"failed_queries"`
	RawResults    int `json:"raw_results"`
	UniqueURLs    int `json:"unique_urls"`
	Filtered      int `json:"filtered"`

	Prospects    int `json:"prospects"`
	WithEmails   int `json:"with_emails"`
	WithContacts int `json:"with_contact_links"`
	PagesOK      int `json:"pages_ok"`
	PagesFailed  int `json:"pages_failed"`
	Challenges   int `json:"challenges"`
	Emails       int `json:"emails"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

// AddProspects folds the per-row counts of ps into s.
func (s *Summary) AddProspects(ps []*storage.Prospect) {
	for _, p := range ps {
		s.Prospects++
		s.Emails += len(p.Emails)
		if len(p.Emails) > 0 {
			s.WithEmails++
		}
		if len(p.ContactLinks) > 0 {
			s.WithContacts++
		}
	}
}

// Summarize builds a summary from stored prospects. Stage counts are unknown
// after the fact and left at zero; the time range spans CreatedAt.
func Summarize(prospects []*storage.Prospect) Summary {
	var s Summary
	if len(prospects) == 0 {
		return s
	}

	s.AddProspects(prospects)

	s.StartTime = prospects[0].CreatedAt
	s.EndTime = prospects[0].CreatedAt
	runID := prospects[0].RunID
	for _, p := range prospects {
		if p.CreatedAt.Before(s.StartTime) {
			s.StartTime = p.CreatedAt
		}
		if p.CreatedAt.After(s.EndTime) {
			s.EndTime = p.CreatedAt
		}
		if p.RunID != runID {
			runID = ""
		}
	}
	s.RunID = runID
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

const textTmpl = `Prospect Run Summary
--------------------
{{- if .RunID}}
Run:            {{.RunID}}
{{- end}}
{{- if .Niche}}
Niche:          {{.Niche}}
{{- end}}
Time:           {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:       {{.Duration}}

Search
  Queries:      {{.Queries}} ({{.FailedQueries}} failed)
  Results:      {{.RawResults}}
  Unique URLs:  {{.UniqueURLs}}
  Filtered:     {{.Filtered}}

Prospects:      {{.Prospects}}
  With emails:  {{.WithEmails}}
  With links:   {{.WithContacts}}
  Emails found: {{.Emails}}

Pages
  OK:           {{.PagesOK}}
  Failed:       {{.PagesFailed}}
  Challenges:   {{.Challenges}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := texttemplate.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}

	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Prospect Run Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Prospect Run Report</h1>
  {{- if .Niche}}
  <p><strong>Niche:</strong> {{.Niche}}</p>
  {{- end}}
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Prospects</div>
    <div class="stat-val">{{.Prospects}}</div>
  </div>
  <div class="stat-card">
    <div>Emails Found</div>
    <div class="stat-val">{{.Emails}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Queries</div>
    <div class="stat-val" style="color: {{if gt .FailedQueries 0}}red{{else}}green{{end}};">{{.FailedQueries}}</div>
  </div>
  <div class="stat-card">
    <div>Challenges</div>
    <div class="stat-val" style="color: {{if gt .Challenges 0}}red{{else}}green{{end}};">{{.Challenges}}</div>
  </div>

  <h3>Stages</h3>
  <table>
    <tr><th>Stage</th><th>Count</th></tr>
    <tr><td>Queries</td><td>{{.Queries}}</td></tr>
    <tr><td>Raw results</td><td>{{.RawResults}}</td></tr>
    <tr><td>Unique URLs</td><td>{{.UniqueURLs}}</td></tr>
    <tr><td>After filters</td><td>{{.Filtered}}</td></tr>
    <tr><td>Prospects</td><td>{{.Prospects}}</td></tr>
  </table>

  <h3>Pages</h3>
  <table>
    <tr><th>Outcome</th><th>Count</th></tr>
    <tr><td>OK</td><td>{{.PagesOK}}</td></tr>
    <tr><td>Failed</td><td>{{.PagesFailed}}</td></tr>
    <tr><td>With emails</td><td>{{.WithEmails}}</td></tr>
    <tr><td>With contact links</td><td>{{.WithContacts}}</td></tr>
  </table>
</body>
</html>
`

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}

	return nil
}

// Write renders summary in the named format: text, json or html.
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	case "html":
		return WriteHTML(w, summary)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}
