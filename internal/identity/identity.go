// Package identity derives stable message identifiers and content
// fingerprints for messages that may not carry a usable Message-ID.
package identity

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// fallbackDomain is used in generated identifiers when the sender has no
// parseable domain.
const fallbackDomain = "content-hash"

// ConflictChecker reports how many mirrored rows in an account already carry
// a given content fingerprint. The db store satisfies it.
type ConflictChecker interface {
	CountByFingerprint(ctx context.Context, accountID int64, fingerprint string) (int, error)
}

// ResolveInput carries the metadata the resolver works from. UID zero means
// the message's location is unknown.
type ResolveInput struct {
	AccountID  int64
	MessageID  string
	Sender     string
	Recipients string
	Subject    string
	Date       string
	Folder     string
	UID        uint32
}

var (
	recipientSplit = regexp.MustCompile(`[,;]\s*`)
	replyMarker    = regexp.MustCompile(`^(?i:re|fwd|回复|转发|答复):\s*`)
)

// NormalizeAddress extracts the bare address from a possibly display-named
// address and lowercases it: "Jane Doe <Jane@Example.com>" -> "jane@example.com".
func NormalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(strings.TrimSpace(addr.Address))
	}
	// Unparseable headers still happen in the wild; fall back to pulling
	// out whatever sits between angle brackets.
	if open := strings.LastIndexByte(s, '<'); open != -1 {
		if close := strings.IndexByte(s[open:], '>'); close != -1 {
			s = s[open+1 : open+close]
		}
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeAddressList normalizes a comma/semicolon separated recipient list:
// each address is normalized, the list is sorted and joined with commas, so
// ordering and display names do not affect the fingerprint.
func NormalizeAddressList(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	parts := recipientSplit.Split(s, -1)
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		normalized = append(normalized, NormalizeAddress(p))
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}

// NormalizeSubject strips one leading reply/forward marker, localized
// variants included.
func NormalizeSubject(s string) string {
	return strings.TrimSpace(replyMarker.ReplaceAllString(s, ""))
}

// Fingerprint computes the content fingerprint: a SHA-256 digest over the
// normalized sender, recipients, subject and date, joined with '|'.
func Fingerprint(sender, recipients, subject, date string) string {
	combined := strings.Join([]string{
		NormalizeAddress(sender),
		NormalizeAddressList(recipients),
		NormalizeSubject(subject),
		date,
	}, "|")
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])
}

// LocationKey builds the composite IMAP location key folder|uid|uidvalidity.
func LocationKey(folder string, uid uint32, uidValidity string) string {
	return fmt.Sprintf("%s|%d|%s", folder, uid, uidValidity)
}

// locationSuffix is the 6-character positional disambiguator appended to a
// generated identifier when two distinct messages share a fingerprint:
// 3 hex characters of the folder name hash plus UID mod 1000 as 3 digits.
func locationSuffix(folder string, uid uint32) string {
	folderHash := md5.Sum([]byte(folder))
	return fmt.Sprintf("%s%03d", hex.EncodeToString(folderHash[:])[:3], uid%1000)
}

// Resolve produces a stable identifier for a message, preferring its native
// Message-ID, then a content-derived deterministic identifier, then a random
// one. It returns the identifier, whether it was generated, and the content
// fingerprint (always computed).
//
// The content-derived path consults the ConflictChecker: if any row in the
// account already carries the same fingerprint, the identifier gets a
// positional suffix so both rows can coexist. Distinct broadcast copies of
// one message delivered into several folders take this path.
func Resolve(ctx context.Context, checker ConflictChecker, in ResolveInput) (id string, generated bool, fingerprint string, err error) {
	fingerprint = Fingerprint(in.Sender, in.Recipients, in.Subject, in.Date)

	if native := strings.TrimSpace(in.MessageID); native != "" {
		return native, false, fingerprint, nil
	}

	if in.Recipients != "" && in.Subject != "" && in.Date != "" && in.Folder != "" && in.UID != 0 {
		domain := senderDomain(in.Sender, fallbackDomain)
		suffix := ""
		if checker != nil {
			count, cerr := checker.CountByFingerprint(ctx, in.AccountID, fingerprint)
			if cerr != nil {
				return "", false, "", fmt.Errorf("fingerprint conflict check failed: %w", cerr)
			}
			if count >= 1 {
				suffix = "." + locationSuffix(in.Folder, in.UID)
			}
		}
		return fmt.Sprintf("<%s%s@%s>", fingerprint[:24], suffix, domain), true, fingerprint, nil
	}

	// Insufficient metadata: a random identifier scoped to the sender's
	// domain is the best we can do.
	u := uuid.New()
	return fmt.Sprintf("<%s@%s>", hex.EncodeToString(u[:]), senderDomain(in.Sender, "localhost")), true, fingerprint, nil
}

func senderDomain(sender, fallback string) string {
	addr := NormalizeAddress(sender)
	if at := strings.LastIndexByte(addr, '@'); at != -1 && at < len(addr)-1 {
		return addr[at+1:]
	}
	return fallback
}
