package report

import (
	"bytes"
	_ "embed"
	"html/template"
	"time"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/session"
)

//go:embed report.html.tmpl
var htmlTemplate string

// HTMLReporter renders a self-contained HTML page.
type HTMLReporter struct{}

type htmlData struct {
	GeneratedAt time.Time
	Checklist   *checklist.Checklist
	Session     *session.Session
	Stats       Stats
	Sections    [][]Row
	Variables   []varPair
}

type varPair struct {
	Name, Value string
}

func (r *HTMLReporter) Generate(c *checklist.Checklist, sess *session.Session) ([]byte, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"resultClass": resultClass,
		"resultLabel": resultCell,
	}).Parse(htmlTemplate)
	if err != nil {
		return nil, err
	}

	rows := BuildRows(c, sess)
	data := htmlData{
		GeneratedAt: time.Now().UTC(),
		Checklist:   c,
		Session:     sess,
		Stats:       Collect(rows),
		Sections:    groupBySection(rows),
	}
	for _, key := range sortedVarKeys(sess.Variables) {
		data.Variables = append(data.Variables, varPair{Name: key, Value: sess.Variables[key]})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *HTMLReporter) Extension() string { return ".html" }

func resultClass(row Row) string {
	if !row.Answered() {
		return "unanswered"
	}
	return string(row.Result)
}
