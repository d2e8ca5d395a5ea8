package anonymize

import "fmt"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Content is a message payload: either plain Text or an ordered list of
// Parts. The sealed interface gives the redactor exhaustive case handling
// instead of runtime shape-guessing.
type Content interface{ isContent() }

// Text is a plain-text message body.
type Text string

func (Text) isContent() {}

// Parts is a heterogeneous multimodal body.
type Parts []Part

func (Parts) isContent() {}

// Part is one entry of a multimodal body.
type Part interface{ isPart() }

// TextPart is a text fragment within a multimodal body.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// ImagePart is an opaque image payload. The message-tree redactor never
// inspects or transforms it — image PHI lives in metadata, and stripping that
// is SanitizeImage's job at the point of ingestion.
type ImagePart struct {
	Data string // base64-encoded image bytes
	MIME string
}

func (ImagePart) isPart() {}

// Message is one turn of a conversation. The caller keeps ownership; the
// redactor always returns a newly built tree.
type Message struct {
	Role    Role
	Content Content
}

// RedactMessages returns a new message list with every text body and text
// part redacted. Image parts are copied through untouched. The input is never
// mutated.
//
// Each message gets the audit field ID "{fieldPrefix}[{i}]({role})", with a
// ".text" suffix for parts. A message with an unknown role or missing content
// is a caller error, not something to guess around.
func (a *Anonymizer) RedactMessages(messages []Message, fieldPrefix string) ([]Message, error) {
	clean := make([]Message, 0, len(messages))

	for i, msg := range messages {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			return nil, fmt.Errorf("message %d: unknown role %q", i, msg.Role)
		}
		if msg.Content == nil {
			return nil, fmt.Errorf("message %d: missing content", i)
		}

		field := fmt.Sprintf("%s[%d](%s)", fieldPrefix, i, msg.Role)

		switch content := msg.Content.(type) {
		case Text:
			clean = append(clean, Message{
				Role:    msg.Role,
				Content: Text(a.RedactText(string(content), field).Sanitized),
			})

		case Parts:
			parts := make(Parts, 0, len(content))
			for j, p := range content {
				switch part := p.(type) {
				case TextPart:
					parts = append(parts, TextPart{
						Text: a.RedactText(part.Text, field+".text").Sanitized,
					})
				case ImagePart:
					parts = append(parts, part)
				default:
					return nil, fmt.Errorf("message %d part %d: unsupported part type %T", i, j, p)
				}
			}
			clean = append(clean, Message{Role: msg.Role, Content: parts})

		default:
			return nil, fmt.Errorf("message %d: unsupported content type %T", i, msg.Content)
		}
	}

	return clean, nil
}
