// Package anonymize implements the HIPAA PHI de-identification core: free-text
// redaction, quasi-identifier bucketing, conversation-tree redaction, and image
// metadata stripping. Everything here is a pure transformation — no I/O, no
// retained state — so any data headed for a cloud AI model can be passed
// through it first.
//
// The regex patterns are intentionally conservative. They may over-redact in
// rare cases, but that is the correct trade-off for PHI.
package anonymize

import "regexp"

// Category is one class of PHI: a label, a compiled matcher, and the
// placeholder token that replaces every match.
type Category struct {
	Label       string
	Pattern     *regexp.Regexp
	Replacement string
}

// registry is the canonical, ordered category table. Compiled once at package
// load and read-only afterward, so it is safe to share across any number of
// concurrent redaction calls without locks.
//
// Order matters: each category runs over the cumulative result of the previous
// substitutions. Label-anchored categories (named_field, dob_label) are
// deliberately allowed to consume spans a narrower category (date) would also
// match — once a span is replaced it can never re-match.
var registry = compileRegistry()

func compileRegistry() []Category {
	defs := []struct {
		label       string
		pattern     string
		replacement string
	}{
		// SSN — 123-45-6789 or 123 45 6789
		{"ssn",
			`\b\d{3}[- ]\d{2}[- ]\d{4}\b`,
			"[ID_REDACTED]"},

		// Medical record number — "MRN: 12345", "MR# 54321", "Patient ID 998877"
		{"mrn",
			`\b(?:MRN|MR#|Patient\s*ID|Pt\.?\s*ID|Record\s*(?:No|Num|Number)?\.?)\s*[:#]?\s*\d{4,12}\b`,
			"[ID_REDACTED]"},

		// Phone — (555) 123-4567 | 555-123-4567 | 5551234567 | +1 555 123 4567
		{"phone",
			`\b(?:\+?1[\s\-.]?)?\(?\d{3}\)?[\s\-.]?\d{3}[\s\-.]?\d{4}\b`,
			"[PHONE_REDACTED]"},

		// Email
		{"email",
			`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`,
			"[EMAIL_REDACTED]"},

		// Dates — MM/DD/YYYY, DD-MM-YYYY, Month DD YYYY, YYYY-MM-DD
		{"date",
			`\b(?:\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}|` +
				`(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|` +
				`Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|` +
				`Dec(?:ember)?)\s+\d{1,2}[,\s]+\d{4}|` +
				`\d{4}[/\-.]\d{2}[/\-.]\d{2})\b`,
			"[DATE_REDACTED]"},

		// US ZIP — 12345 or 12345-6789
		{"zip_code",
			`\b\d{5}(?:-\d{4})?\b`,
			"[ZIP_REDACTED]"},

		// Name-labeled fields — "Name: John Smith", "Patient: ..."
		{"named_field",
			`(?i)\b(?:patient|name|pt\.?)\s*[:\-]\s*[A-Za-z][A-Za-z\s'\-]{2,40}`,
			"[NAME_REDACTED]"},

		// DOB-labeled fields — "DOB: ...", "Date of Birth: ...". The trailing
		// \b after the label keeps the pattern from re-matching inside its own
		// replacement token, which keeps redaction idempotent.
		{"dob_label",
			`(?i)\b(?:DOB|Date\s+of\s+Birth|Birth(?:date|day)?)\b\s*[:\-]?\s*[^\n,;]{0,30}`,
			"[DOB_REDACTED]"},

		// Street address lines — "123 Main St", "456 Oak Avenue"
		{"street_address",
			`\b\d{1,5}\s+[A-Za-z][A-Za-z\s]{2,30}(?:St(?:reet)?|Ave(?:nue)?|Rd|Road|` +
				`Blvd|Boulevard|Dr(?:ive)?|Ln|Lane|Ct|Court|Pl|Place|Way|Pkwy|Hwy)\b`,
			"[ADDRESS_REDACTED]"},
	}

	categories := make([]Category, 0, len(defs))
	for _, d := range defs {
		categories = append(categories, Category{
			Label:       d.label,
			Pattern:     regexp.MustCompile(d.pattern),
			Replacement: d.replacement,
		})
	}
	return categories
}

// Categories returns the registered category labels in application order.
func Categories() []string {
	labels := make([]string, len(registry))
	for i, c := range registry {
		labels[i] = c.Label
	}
	return labels
}
