package mailsync

import (
	"bytes"
	"fmt"
	"net/mail"
	"time"

	"github.com/jhillyerd/enmime"
)

// ParsedMessage is the header and body material extracted from one raw
// message, ready for identity resolution and row construction.
type ParsedMessage struct {
	MessageID       string
	Subject         string
	Sender          string
	Recipients      string
	CC              string
	Date            time.Time
	DateHeader      string
	Text            string
	HTML            string
	HasAttachments  bool
	AttachmentCount int
}

// ParseRawMessage parses a raw RFC 5322 message with enmime. Attachment
// counting skips inline parts referenced from the body (content-ID present):
// embedded images are not attachments from the user's point of view.
func ParseRawMessage(raw []byte) (*ParsedMessage, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	parsed := &ParsedMessage{
		MessageID:  envelope.GetHeader("Message-Id"),
		Subject:    envelope.GetHeader("Subject"),
		Sender:     envelope.GetHeader("From"),
		Recipients: envelope.GetHeader("To"),
		CC:         envelope.GetHeader("Cc"),
		DateHeader: envelope.GetHeader("Date"),
		Text:       envelope.Text,
		HTML:       envelope.HTML,
	}

	if parsed.DateHeader != "" {
		if date, err := mail.ParseDate(parsed.DateHeader); err == nil {
			parsed.Date = date
		}
	}

	parsed.AttachmentCount = len(envelope.Attachments)
	for _, part := range envelope.Inlines {
		if part.FileName != "" && part.ContentID == "" {
			parsed.AttachmentCount++
		}
	}
	for _, part := range envelope.OtherParts {
		if part.FileName != "" {
			parsed.AttachmentCount++
		}
	}
	parsed.HasAttachments = parsed.AttachmentCount > 0

	return parsed, nil
}
