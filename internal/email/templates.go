package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type leadNotificationEmailData struct {
	baseEmailData
	LeadNotification
	HighPriority bool
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderLeadNotification returns the subject and HTML body for lead.
func RenderLeadNotification(lead LeadNotification) (string, string, error) {
	high := lead.Priority == "high"
	subjectFmt := subjectLeadFmt
	if high {
		subjectFmt = subjectHighPriorityFmt
	}
	subject := fmt.Sprintf(subjectFmt, lead.Service, lead.Range)

	content, err := renderEmailTemplate("lead_notification.html", leadNotificationEmailData{
		baseEmailData: baseEmailData{
			Title:      "New enquiry",
			Heading:    "New " + lead.Service + " enquiry",
			Subheading: "Ballpark " + lead.Range,
		},
		LeadNotification: lead,
		HighPriority:      high,
	})
	if err != nil {
		return "", "", err
	}
	return subject, content, nil
}
