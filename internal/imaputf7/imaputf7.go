// Package imaputf7 implements the modified UTF-7 folder name encoding
// defined in RFC 3501 section 5.1.3.
//
// Decode is deliberately fail-open: malformed escape sequences are passed
// through unchanged (with the leading '&' restored) instead of producing an
// error, so a misbehaving server can never make folder listing fail.
package imaputf7

import (
	"encoding/base64"
	"strings"
	"unicode/utf16"
)

const (
	min = 0x20 // minimum self-representing value
	max = 0x7E // maximum self-representing value
)

// Modified UTF-7 uses ',' instead of '/' and no padding.
var b64 = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+,").WithPadding(base64.NoPadding)

// Encode converts a folder name to its modified UTF-7 form. Printable ASCII
// passes through, '&' becomes "&-", and every other run of characters is
// emitted as a "&<base64 of UTF-16BE>-" block.
func Encode(s string) string {
	var out strings.Builder
	var pending []uint16

	flush := func() {
		if len(pending) == 0 {
			return
		}
		raw := make([]byte, 2*len(pending))
		for i, u := range pending {
			raw[2*i] = byte(u >> 8)
			raw[2*i+1] = byte(u)
		}
		out.WriteByte('&')
		out.WriteString(b64.EncodeToString(raw))
		out.WriteByte('-')
		pending = pending[:0]
	}

	for _, r := range s {
		if r >= min && r <= max {
			flush()
			if r == '&' {
				out.WriteString("&-")
			} else {
				out.WriteByte(byte(r))
			}
			continue
		}
		pending = append(pending, utf16.Encode([]rune{r})...)
	}
	flush()

	return out.String()
}

// Decode converts a modified UTF-7 folder name back to its human-readable
// form. It never fails: anything that does not parse as an escape block is
// kept verbatim with the leading '&' restored.
func Decode(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}

	var out strings.Builder
	blocks := strings.Split(s, "&")
	out.WriteString(blocks[0])

	for _, block := range blocks[1:] {
		if block == "" {
			out.WriteByte('&')
			continue
		}

		dash := strings.IndexByte(block, '-')
		if dash == -1 {
			// Unterminated escape, keep it as-is.
			out.WriteByte('&')
			out.WriteString(block)
			continue
		}

		encoded := block[:dash]
		rest := block[dash+1:]

		if encoded == "" {
			// "&-" is the escaped form of a literal '&'.
			out.WriteByte('&')
			out.WriteString(rest)
			continue
		}

		decoded, ok := decodeBlock(encoded)
		if !ok {
			out.WriteByte('&')
			out.WriteString(block)
			continue
		}
		out.WriteString(decoded)
		out.WriteString(rest)
	}

	return out.String()
}

// decodeBlock decodes the base64 payload of one escape block.
func decodeBlock(encoded string) (string, bool) {
	raw, err := b64.DecodeString(encoded)
	if err != nil || len(raw)%2 != 0 {
		return "", false
	}

	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}

	return string(utf16.Decode(units)), true
}
