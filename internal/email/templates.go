package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type actionEmailData struct {
	Title         string
	Heading       string
	RecipientName string
	Body          string
	CTALabel      string
	CTAURL        string
}

// Render produces the HTML body of msg.
func Render(msg Message) (string, error) {
	name := msg.Template
	if name == "" {
		name = "action_generic"
	}
	files := []string{"templates/base.html", "templates/" + name + ".html"}
	tmpl, err := template.New("base.html").ParseFS(templateFS, files...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	heading := msg.Heading
	if heading == "" {
		heading = msg.Subject
	}
	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "email", actionEmailData{
		Title:         msg.Subject,
		Heading:       heading,
		RecipientName: msg.RecipientName,
		Body:          msg.Body,
		CTALabel:      msg.CTALabel,
		CTAURL:        msg.CTAURL,
	})
	if err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
