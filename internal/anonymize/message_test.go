package anonymize

import (
	"strings"
	"testing"
)

func TestRedactMessagesScrubsUserText(t *testing.T) {
	a := New(&recordingAuditor{})

	messages := []Message{
		{Role: RoleUser, Content: Text("My DOB is 01/01/1990 and phone 555-000-1111")},
		{Role: RoleAssistant, Content: Text("Tell me more about your symptoms.")},
	}

	clean, err := a.RedactMessages(messages, "chat")
	if err != nil {
		t.Fatalf("RedactMessages: %v", err)
	}

	first := string(clean[0].Content.(Text))
	if strings.Contains(first, "01/01/1990") || strings.Contains(first, "555-000-1111") {
		t.Errorf("PHI survived: %q", first)
	}

	// Assistant message has no PHI — passes through verbatim.
	if got := string(clean[1].Content.(Text)); got != "Tell me more about your symptoms." {
		t.Errorf("clean message was modified: %q", got)
	}
}

func TestRedactMessagesFieldIDs(t *testing.T) {
	audit := &recordingAuditor{}
	a := New(audit)

	messages := []Message{
		{Role: RoleUser, Content: Text("SSN 123-45-6789")},
	}
	if _, err := a.RedactMessages(messages, "symptom_chat"); err != nil {
		t.Fatalf("RedactMessages: %v", err)
	}

	if len(audit.redactions) != 1 {
		t.Fatalf("expected 1 redaction event, got %d", len(audit.redactions))
	}
	if got := audit.redactions[0].fieldID; got != "symptom_chat[0](user)" {
		t.Errorf("wrong field id: %s", got)
	}
}

func TestRedactMessagesMultimodal(t *testing.T) {
	audit := &recordingAuditor{}
	a := New(audit)

	messages := []Message{
		{
			Role: RoleUser,
			Content: Parts{
				TextPart{Text: "My email is foo@bar.com and I have chest pain"},
				ImagePart{Data: "base64abc", MIME: "image/jpeg"},
			},
		},
	}

	clean, err := a.RedactMessages(messages, "scan")
	if err != nil {
		t.Fatalf("RedactMessages: %v", err)
	}

	parts := clean[0].Content.(Parts)
	text := parts[0].(TextPart)
	if strings.Contains(text.Text, "foo@bar.com") {
		t.Errorf("email survived in text part: %q", text.Text)
	}

	img := parts[1].(ImagePart)
	if img.Data != "base64abc" || img.MIME != "image/jpeg" {
		t.Errorf("image part was touched: %+v", img)
	}

	if audit.redactions[0].fieldID != "scan[0](user).text" {
		t.Errorf("wrong part field id: %s", audit.redactions[0].fieldID)
	}
}

func TestRedactMessagesDoesNotMutateInput(t *testing.T) {
	a := New(&recordingAuditor{})

	originalText := "Call me at 555-123-4567"
	messages := []Message{
		{Role: RoleUser, Content: Text(originalText)},
		{
			Role: RoleUser,
			Content: Parts{
				TextPart{Text: originalText},
				ImagePart{Data: "imgdata", MIME: "image/png"},
			},
		},
	}

	if _, err := a.RedactMessages(messages, "test"); err != nil {
		t.Fatalf("RedactMessages: %v", err)
	}

	if got := string(messages[0].Content.(Text)); got != originalText {
		t.Errorf("input text content mutated: %q", got)
	}
	parts := messages[1].Content.(Parts)
	if got := parts[0].(TextPart).Text; got != originalText {
		t.Errorf("input text part mutated: %q", got)
	}
	if got := parts[1].(ImagePart).Data; got != "imgdata" {
		t.Errorf("input image part mutated: %q", got)
	}
}

func TestRedactMessagesMalformed(t *testing.T) {
	a := New(&recordingAuditor{})

	tests := []struct {
		name string
		msgs []Message
	}{
		{"unknown role", []Message{{Role: "system", Content: Text("hi")}}},
		{"empty role", []Message{{Content: Text("hi")}}},
		{"missing content", []Message{{Role: RoleUser}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.RedactMessages(tt.msgs, "test"); err == nil {
				t.Error("expected error for malformed message")
			}
		})
	}
}

func TestRedactMessagesEmptyList(t *testing.T) {
	a := New(&recordingAuditor{})

	clean, err := a.RedactMessages(nil, "test")
	if err != nil {
		t.Fatalf("RedactMessages: %v", err)
	}
	if len(clean) != 0 {
		t.Errorf("expected empty result, got %d messages", len(clean))
	}
}
