package notify

import (
	"bytes"
	"errors"
	"text/template"
	"time"
)

const DefaultTemplate = `[Workbook {{.EventLabel}}]
File: {{.File}}
{{ if .FileID }}Run: {{.FileID}}
{{ end }}{{ if .Error }}Error: {{.Error}}
{{ end }}Rows: inserted={{.Inserted}} updated={{.Updated}} skipped={{.Skipped}}
Parse Errors: {{.ParseErrors}}
{{ if .Duration }}Duration: {{.Duration}}
{{ end }}Occurred: {{.OccurredAt}}`

// TemplateData provides fields for rendering alert content.
type TemplateData struct {
	File        string
	FileID      string
	Status      string
	EventLabel  string
	Error       string
	Inserted    int
	Updated     int
	Skipped     int
	ParseErrors int
	Duration    string
	OccurredAt  string
}

// Template renders alert content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an alert template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("ingest-alert").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildTemplateData(alert Alert) TemplateData {
	occurred := alert.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	duration := ""
	if alert.Duration > 0 {
		duration = alert.Duration.Round(time.Millisecond).String()
	}
	return TemplateData{
		File:        alert.File,
		FileID:      alert.FileID,
		Status:      alert.Status,
		EventLabel:  eventLabel(alert.Status),
		Error:       alert.Error,
		Inserted:    alert.Inserted,
		Updated:     alert.Updated,
		Skipped:     alert.Skipped,
		ParseErrors: alert.ParseErrors,
		Duration:    duration,
		OccurredAt:  occurred.UTC().Format(time.RFC3339),
	}
}
