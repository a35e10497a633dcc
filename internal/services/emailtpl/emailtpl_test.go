package emailtpl

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	subject, html, err := r.Render(LeadNotification, map[string]any{
		"agent_name": "Front desk",
		"lead_name":  "Ada <script>",
		"lead_email": "ada@example.com",
		"message":    "Call me",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "New lead captured" {
		t.Fatalf("subject=%q", subject)
	}
	if !strings.Contains(html, "Front desk") || !strings.Contains(html, "mailto:ada@example.com") {
		t.Fatalf("missing fields: %s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("lead input must be escaped: %s", html)
	}
	if strings.Contains(html, "Phone") {
		t.Fatalf("empty phone row should be omitted")
	}

	subject, html, err = r.Render(Generic, map[string]any{"subject": "Hello", "body": "one\n\ntwo"})
	if err != nil {
		t.Fatalf("Render generic: %v", err)
	}
	if subject != "Hello" || !strings.Contains(html, "<p>one</p>") || !strings.Contains(html, "<p>two</p>") {
		t.Fatalf("generic: subject=%q html=%s", subject, html)
	}

	if _, _, err := r.Render("nope", nil); err == nil {
		t.Fatalf("expected unknown template error")
	}
}
