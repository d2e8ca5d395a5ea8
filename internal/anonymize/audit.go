package anonymize

import "log"

// Auditor receives de-identification audit events. Implementations are handed
// category labels and byte counts only — never a matched value. The field ID
// is a caller-supplied locator ("symptom_chat[0](user)") used purely for
// traceability.
type Auditor interface {
	// TextRedacted fires once per redaction call that replaced anything.
	TextRedacted(fieldID string, categories []string)

	// TextClean fires when a redaction call found no PHI, so "ran and found
	// nothing" stays distinguishable from "did not run".
	TextClean(fieldID string)

	// ImageSanitized fires after a successful metadata strip.
	ImageSanitized(fieldID string, originalBytes, cleanBytes, metadataSegments int)

	// ImageFailed fires when an image could not be decoded or re-encoded and
	// the original bytes were passed through.
	ImageFailed(fieldID string, err error)
}

// LogAuditor writes audit events to the process log. It is the default sink
// when no audit store is configured.
type LogAuditor struct{}

func (LogAuditor) TextRedacted(fieldID string, categories []string) {
	log.Printf("[anonymizer] PHI scrubbed field=%s categories=%v", fieldID, categories)
}

func (LogAuditor) TextClean(fieldID string) {
	log.Printf("[anonymizer] no PHI detected field=%s", fieldID)
}

func (LogAuditor) ImageSanitized(fieldID string, originalBytes, cleanBytes, metadataSegments int) {
	log.Printf("[anonymizer] image metadata stripped field=%s original_kb=%d clean_kb=%d segments_removed=%d",
		fieldID, originalBytes/1024, cleanBytes/1024, metadataSegments)
}

func (LogAuditor) ImageFailed(fieldID string, err error) {
	log.Printf("[anonymizer] ERROR image strip failed field=%s err=%v — passing original bytes through", fieldID, err)
}
