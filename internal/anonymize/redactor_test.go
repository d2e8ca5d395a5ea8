package anonymize

import (
	"strings"
	"testing"
)

// recordingAuditor captures audit events for assertions. Shared by the other
// test files in this package.
type recordingAuditor struct {
	redactions []redactionEvent
	cleans     []string
	images     []imageEvent
	failures   []string
}

type redactionEvent struct {
	fieldID    string
	categories []string
}

type imageEvent struct {
	fieldID          string
	originalBytes    int
	cleanBytes       int
	metadataSegments int
}

func (r *recordingAuditor) TextRedacted(fieldID string, categories []string) {
	r.redactions = append(r.redactions, redactionEvent{fieldID, categories})
}

func (r *recordingAuditor) TextClean(fieldID string) {
	r.cleans = append(r.cleans, fieldID)
}

func (r *recordingAuditor) ImageSanitized(fieldID string, originalBytes, cleanBytes, metadataSegments int) {
	r.images = append(r.images, imageEvent{fieldID, originalBytes, cleanBytes, metadataSegments})
}

func (r *recordingAuditor) ImageFailed(fieldID string, err error) {
	r.failures = append(r.failures, fieldID)
}

func TestRedactSSN(t *testing.T) {
	a := New(nil)

	result := a.RedactText("My SSN is 123-45-6789.", "test")
	if strings.Contains(result.Sanitized, "123-45-6789") {
		t.Errorf("SSN not redacted: %q", result.Sanitized)
	}
	if !strings.Contains(result.Sanitized, "[ID_REDACTED]") {
		t.Errorf("missing ID token in %q", result.Sanitized)
	}
}

func TestRedactMRN(t *testing.T) {
	a := New(nil)

	tests := []string{
		"MRN: 12345678",
		"MR# 54321",
		"Patient ID 998877",
	}
	for _, input := range tests {
		result := a.RedactText(input, "test")
		if !strings.Contains(result.Sanitized, "[ID_REDACTED]") {
			t.Errorf("MRN not redacted in %q -> %q", input, result.Sanitized)
		}
	}
}

func TestRedactPhone(t *testing.T) {
	a := New(nil)

	tests := []struct {
		input string
		gone  string
	}{
		{"Call me at (555) 123-4567 anytime.", "123-4567"},
		{"My number is 555-123-4567.", "555-123-4567"},
		{"Intl: +1 555 123 4567", "555 123 4567"},
	}
	for _, tt := range tests {
		result := a.RedactText(tt.input, "test")
		if strings.Contains(result.Sanitized, tt.gone) {
			t.Errorf("phone not redacted: %q still in %q", tt.gone, result.Sanitized)
		}
		if !strings.Contains(result.Sanitized, "[PHONE_REDACTED]") {
			t.Errorf("missing phone token in %q", result.Sanitized)
		}
	}
}

func TestRedactEmail(t *testing.T) {
	a := New(nil)

	result := a.RedactText("Email me at john.doe@hospital.com", "test")
	if strings.Contains(result.Sanitized, "john.doe@hospital.com") {
		t.Error("email not redacted")
	}
	if !strings.Contains(result.Sanitized, "[EMAIL_REDACTED]") {
		t.Error("missing email token")
	}
}

func TestRedactDates(t *testing.T) {
	a := New(nil)

	tests := []struct {
		input string
		gone  string
	}{
		{"Test date: 2023-06-15", "2023-06-15"},
		{"Visit on 01/15/1980 went fine", "01/15/1980"},
		{"Admitted January 15, 1980 overnight", "January 15, 1980"},
	}
	for _, tt := range tests {
		result := a.RedactText(tt.input, "test")
		if strings.Contains(result.Sanitized, tt.gone) {
			t.Errorf("date not redacted: %q still in %q", tt.gone, result.Sanitized)
		}
		if !strings.Contains(result.Sanitized, "[DATE_REDACTED]") {
			t.Errorf("missing date token in %q", result.Sanitized)
		}
	}
}

func TestRedactZip(t *testing.T) {
	a := New(nil)

	result := a.RedactText("Lives near 18501-1234", "test")
	if strings.Contains(result.Sanitized, "18501-1234") {
		t.Error("ZIP+4 not redacted")
	}
	if !strings.Contains(result.Sanitized, "[ZIP_REDACTED]") {
		t.Error("missing ZIP token")
	}
}

func TestRedactNamedField(t *testing.T) {
	a := New(nil)

	result := a.RedactText("Name: John Smith presented with cough", "test")
	if strings.Contains(result.Sanitized, "John Smith") {
		t.Errorf("named field not redacted: %q", result.Sanitized)
	}
	if !strings.Contains(result.Sanitized, "[NAME_REDACTED]") {
		t.Error("missing name token")
	}
}

func TestRedactDOBLabel(t *testing.T) {
	a := New(nil)

	result := a.RedactText("Date of Birth: January 15 1980", "test")
	if strings.Contains(result.Sanitized, "January 15 1980") {
		t.Errorf("DOB not redacted: %q", result.Sanitized)
	}
}

func TestRedactStreetAddress(t *testing.T) {
	a := New(nil)

	result := a.RedactText("Lives at 123 Main Street", "test")
	if strings.Contains(result.Sanitized, "123 Main Street") {
		t.Error("address not redacted")
	}
	if !strings.Contains(result.Sanitized, "[ADDRESS_REDACTED]") {
		t.Error("missing address token")
	}
}

func TestRedactNoPHIUnchanged(t *testing.T) {
	audit := &recordingAuditor{}
	a := New(audit)

	text := "Patient has COPD with moderate severity."
	result := a.RedactText(text, "clinical_note")
	if result.Sanitized != text {
		t.Errorf("clean text was modified: %q", result.Sanitized)
	}
	if len(result.Categories) != 0 {
		t.Errorf("unexpected categories: %v", result.Categories)
	}
	if len(audit.cleans) != 1 || audit.cleans[0] != "clinical_note" {
		t.Errorf("expected one clean event, got %v", audit.cleans)
	}
}

func TestRedactEmptyInput(t *testing.T) {
	audit := &recordingAuditor{}
	a := New(audit)

	result := a.RedactText("", "test")
	if result.Sanitized != "" || result.Categories != nil {
		t.Errorf("empty input should be identity, got %+v", result)
	}
	if len(audit.cleans) != 0 && len(audit.redactions) != 0 {
		t.Error("empty input should not emit events")
	}
}

func TestRedactCombinedPHI(t *testing.T) {
	audit := &recordingAuditor{}
	a := New(audit)

	msg := "I'm a patient, my email is me@clinic.org, phone 555-999-0000, DOB 03/22/1975"
	result := a.RedactText(msg, "symptom_chat[0](user)")

	for _, leaked := range []string{"me@clinic.org", "555-999-0000", "03/22/1975"} {
		if strings.Contains(result.Sanitized, leaked) {
			t.Errorf("PHI %q leaked into %q", leaked, result.Sanitized)
		}
	}

	found := map[string]bool{}
	for _, c := range result.Categories {
		found[c] = true
	}
	if !found["email"] {
		t.Error("missing email category")
	}
	if !found["phone"] {
		t.Error("missing phone category")
	}
	if !found["date"] && !found["dob_label"] {
		t.Errorf("expected date or dob_label, got %v", result.Categories)
	}

	if len(audit.redactions) != 1 {
		t.Fatalf("expected one redaction event, got %d", len(audit.redactions))
	}
	if audit.redactions[0].fieldID != "symptom_chat[0](user)" {
		t.Errorf("wrong field id: %s", audit.redactions[0].fieldID)
	}
}

func TestRedactIdempotent(t *testing.T) {
	a := New(nil)

	inputs := []string{
		"My SSN is 123-45-6789.",
		"DOB: 03/22/1975 and email me@clinic.org",
		"Name: Jane Doe, 456 Oak Avenue, 90210",
		"Date of Birth: January 15 1980",
		"MRN: 12345678 phone (555) 123-4567",
	}
	for _, input := range inputs {
		once := a.RedactText(input, "test").Sanitized
		twice := a.RedactText(once, "test").Sanitized
		if once != twice {
			t.Errorf("not idempotent for %q:\n first: %q\nsecond: %q", input, once, twice)
		}
	}
}

func TestReplacementTokensNeverMatch(t *testing.T) {
	for _, c := range registry {
		for _, other := range registry {
			if other.Pattern.MatchString(c.Replacement) {
				t.Errorf("token %q of %s matches category %s", c.Replacement, c.Label, other.Label)
			}
		}
	}
}
