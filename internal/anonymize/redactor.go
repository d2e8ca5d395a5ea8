package anonymize

// RedactionResult is the outcome of a single text redaction pass.
type RedactionResult struct {
	// Sanitized is the input with every category match replaced by its token.
	Sanitized string
	// Categories lists the labels that matched, in registry order. Labels are
	// the only thing about a match that may ever reach an audit trail.
	Categories []string
}

// Anonymizer applies the category registry and reports to an audit sink. It
// holds no per-call state; a single instance is safe for unbounded concurrent
// use.
type Anonymizer struct {
	audit Auditor
}

// New creates an Anonymizer reporting to the given sink. A nil sink falls
// back to process-log auditing.
func New(audit Auditor) *Anonymizer {
	if audit == nil {
		audit = LogAuditor{}
	}
	return &Anonymizer{audit: audit}
}

// RedactText scans text for known PHI patterns and replaces every match with
// the category's placeholder token. Categories run in registration order over
// the cumulative result, and each substitution is exhaustive, so no substring
// that matched in the original input survives to the output.
//
// Emits one audit event per call — which category labels were found, never
// the values. Empty input is an identity pass-through with no event.
func (a *Anonymizer) RedactText(text, fieldID string) RedactionResult {
	if text == "" {
		return RedactionResult{Sanitized: text}
	}

	result := text
	var found []string
	for _, c := range registry {
		if !c.Pattern.MatchString(result) {
			continue
		}
		result = c.Pattern.ReplaceAllString(result, c.Replacement)
		found = append(found, c.Label)
	}

	if len(found) > 0 {
		a.audit.TextRedacted(fieldID, found)
	} else {
		a.audit.TextClean(fieldID)
	}

	return RedactionResult{Sanitized: result, Categories: found}
}
