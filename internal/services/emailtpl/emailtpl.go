package emailtpl

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

const (
	LeadNotification = "lead_notification"
	TeamInvitation   = "team_invitation"
	Generic          = "generic"
)

//go:embed html/*.html
var files embed.FS

var defaultSubjects = map[string]string{
	LeadNotification: "New lead captured",
	TeamInvitation:   "You're invited to join a LeadChat team",
	Generic:          "Message from LeadChat",
}

// Renderer holds one parsed template set per message kind.
type Renderer struct {
	sets map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{sets: make(map[string]*template.Template, len(defaultSubjects))}
	for name := range defaultSubjects {
		t, err := template.New(name).Option("missingkey=zero").ParseFS(files, "html/layout.html", "html/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.sets[name] = t
	}
	return r, nil
}

func (r *Renderer) Has(name string) bool {
	_, ok := r.sets[name]
	return ok
}

// Render returns the subject and HTML body. data["subject"] overrides the
// default subject; a "body" string is split into paragraphs for generic.
func (r *Renderer) Render(name string, data map[string]any) (string, string, error) {
	t, ok := r.sets[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	if data == nil {
		data = map[string]any{}
	}
	if body, ok := data["body"].(string); ok && data["paragraphs"] == nil {
		data["paragraphs"] = paragraphs(body)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", "", fmt.Errorf("render template %s: %w", name, err)
	}
	subject := defaultSubjects[name]
	if s, ok := data["subject"].(string); ok && strings.TrimSpace(s) != "" {
		subject = strings.TrimSpace(s)
	}
	return subject, buf.String(), nil
}

func paragraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
