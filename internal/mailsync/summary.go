package mailsync

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
)

const summaryLength = 300

var (
	summaryPunctuation = regexp.MustCompile(`[.,!?;:'"()\[\]{}<>/\\_—–-]`)
	summaryWhitespace  = regexp.MustCompile(`\s+`)
)

// BuildSummary produces the short preview text stored on a message row. The
// HTML body is preferred because plain-text alternatives are often stale or
// missing; it is reduced to text, stripped of punctuation noise, whitespace-
// collapsed, and cut to a fixed rune budget. An attachment annotation is
// prepended when the message carries attachments.
func BuildSummary(textBody, htmlBody string, attachmentCount int) string {
	body := textBody
	if htmlBody != "" {
		if text, err := html2text.FromString(htmlBody, html2text.Options{TextOnly: true}); err == nil {
			body = text
		}
	}

	body = summaryPunctuation.ReplaceAllString(body, " ")
	body = summaryWhitespace.ReplaceAllString(body, " ")
	body = strings.TrimSpace(body)

	if runes := []rune(body); len(runes) > summaryLength {
		body = string(runes[:summaryLength])
	}

	if attachmentCount > 0 {
		body = fmt.Sprintf("(%d attachments) %s", attachmentCount, body)
	}

	return body
}
