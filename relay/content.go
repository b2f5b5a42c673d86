package relay

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// userContent normalizes the caller's new input into Content before anything
// provider-specific happens. Plain text stays plain; attachments force the
// structured form with the text as the first part.
func userContent(input string, attachments []Attachment) Content {
	if len(attachments) == 0 {
		return TextContent(input)
	}
	parts := make([]ContentPart, 0, len(attachments)+1)
	if input != "" {
		parts = append(parts, ContentPart{Text: input})
	}
	for i := range attachments {
		a := attachments[i]
		parts = append(parts, ContentPart{Attachment: &a})
	}
	return Content{Parts: parts}
}

// FlatText joins the text carried by content, ignoring attachments. Useful
// when a caller needs a plain-text view of a stored turn.
func (c Content) FlatText() string {
	if len(c.Parts) == 0 {
		return c.Text
	}
	out := ""
	for _, p := range c.Parts {
		if p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// attachmentDataURI renders an attachment as a base64 data URI for providers
// that take image content by URL.
func attachmentDataURI(a Attachment) string {
	return fmt.Sprintf("data:%s;base64,%s", a.MIMEType, base64.StdEncoding.EncodeToString(a.Data))
}

// marshalContent serializes content for storage.
func marshalContent(c Content) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("relay: encode content: %w", err)
	}
	return string(b), nil
}

// unmarshalContent restores stored content. Rows written before structured
// content existed hold bare text; fall back to wrapping them.
func unmarshalContent(s string) Content {
	var c Content
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return TextContent(s)
	}
	return c
}
