package mailsync

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/emersion/go-imap"
)

// statusQuerier is the slice of the mailbox session the STATUS fallback
// needs.
type statusQuerier interface {
	StatusUIDValidity(wireName string) (uint32, error)
}

// uidValidityInput carries everything the strategies may consult.
type uidValidityInput struct {
	Selected  *imap.MailboxStatus
	Session   statusQuerier
	WireName  string
	AccountID int64
	Folder    string
}

type uidValidityStrategy struct {
	name    string
	resolve func(in uidValidityInput) (string, bool)
}

// uidValidityStrategies are tried in order; the first one that produces a
// value wins. The derived fallback always produces one, so resolution never
// fails — a folder whose server reports no UIDVALIDITY still gets a stable
// generation marker.
var uidValidityStrategies = []uidValidityStrategy{
	{"select-response", uidValidityFromSelect},
	{"status-query", uidValidityFromStatus},
	{"derived", derivedUIDValidity},
}

// resolveUIDValidity returns the UIDVALIDITY string for the selected folder.
func resolveUIDValidity(in uidValidityInput) string {
	for _, strategy := range uidValidityStrategies {
		if v, ok := strategy.resolve(in); ok {
			return v
		}
	}
	// Unreachable: the derived strategy always resolves.
	return ""
}

func uidValidityFromSelect(in uidValidityInput) (string, bool) {
	if in.Selected == nil || in.Selected.UidValidity == 0 {
		return "", false
	}
	return strconv.FormatUint(uint64(in.Selected.UidValidity), 10), true
}

func uidValidityFromStatus(in uidValidityInput) (string, bool) {
	if in.Session == nil {
		return "", false
	}
	v, err := in.Session.StatusUIDValidity(in.WireName)
	if err != nil || v == 0 {
		return "", false
	}
	return strconv.FormatUint(uint64(v), 10), true
}

// derivedUIDValidity fabricates a deterministic generation marker from the
// account and folder name, for servers that never report one.
func derivedUIDValidity(in uidValidityInput) (string, bool) {
	sum := md5.Sum([]byte(fmt.Sprintf("%d-%s", in.AccountID, in.Folder)))
	digest := hex.EncodeToString(sum[:])
	n, err := strconv.ParseUint(digest[:8], 16, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}
