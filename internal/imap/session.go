// Package imap wraps one authenticated connection to a remote mailbox server
// behind a Session value. A Session is owned exclusively by the operation or
// reconciliation pass that dialed it and is never cached across runs.
package imap

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/skovert/mailmirror/internal/models"
)

// dialTimeout bounds connection establishment. Individual commands rely on
// the transport's defaults.
const dialTimeout = 5 * time.Second

// FetchedMessage is one message pulled with flags and its full raw content.
type FetchedMessage struct {
	UID   uint32
	Flags []string
	Raw   []byte
}

// Session owns one live IMAP connection for one account. All methods are
// blocking; callers running concurrent work offload them to goroutines.
type Session struct {
	account *models.Account
	client  *client.Client
}

// Dial establishes the transport (TLS or plain per account config) and
// authenticates. Transport failures surface as *ConnectError, credential
// rejections as *AuthError.
func Dial(account *models.Account) (*Session, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	addr := account.Address()

	var c *client.Client
	var err error
	if account.IMAPTLS {
		c, err = client.DialWithDialerTLS(dialer, addr, nil)
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, &ConnectError{Err: err}
	}

	if err := c.Login(account.Username, account.Password); err != nil {
		_ = c.Logout()
		return nil, &AuthError{Err: err}
	}

	return &Session{account: account, client: c}, nil
}

// Account returns the account this session was dialed for.
func (s *Session) Account() *models.Account {
	return s.account
}

// ListFolders issues LIST and returns the raw entries for the catalog
// resolver to interpret.
func (s *Session) ListFolders() ([]*imap.MailboxInfo, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.client.List("", "*", mailboxes)
	}()

	var infos []*imap.MailboxInfo
	for m := range mailboxes {
		infos = append(infos, m)
	}

	if err := <-done; err != nil {
		return nil, commandError("list", err)
	}

	return infos, nil
}

// Select selects a folder for subsequent UID operations. The returned status
// carries the folder's UIDVALIDITY when the server includes it.
func (s *Session) Select(wireName string, readOnly bool) (*imap.MailboxStatus, error) {
	mbox, err := s.client.Select(wireName, readOnly)
	if err != nil {
		return nil, commandError("select", err)
	}
	return mbox, nil
}

// StatusUIDValidity is the fallback UIDVALIDITY query for servers whose
// select response omits it.
func (s *Session) StatusUIDValidity(wireName string) (uint32, error) {
	status, err := s.client.Status(wireName, []imap.StatusItem{imap.StatusUidValidity})
	if err != nil {
		return 0, commandError("status", err)
	}
	return status.UidValidity, nil
}

// SearchAllUIDs returns the selected folder's complete UID set.
func (s *Session) SearchAllUIDs() ([]uint32, error) {
	uids, err := s.client.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, commandError("uid search", err)
	}
	return uids, nil
}

// FetchFull fetches flags and the full raw content (BODY.PEEK[]) for the
// given UIDs. The peek variant leaves \Seen untouched on the server.
func (s *Session) FetchFull(uids []uint32) ([]*FetchedMessage, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var fetched []*FetchedMessage
	for msg := range messages {
		fm := &FetchedMessage{UID: msg.Uid, Flags: msg.Flags}
		if body := msg.GetBody(section); body != nil {
			raw, err := io.ReadAll(body)
			if err != nil {
				// Drain the channel before surfacing the error.
				for range messages {
				}
				<-done
				return nil, fmt.Errorf("failed to read message body for UID %d: %w", msg.Uid, err)
			}
			fm.Raw = raw
		}
		fetched = append(fetched, fm)
	}

	if err := <-done; err != nil {
		return nil, commandError("uid fetch", err)
	}

	return fetched, nil
}

// AddFlags adds flags to the given UIDs in the selected folder.
func (s *Session) AddFlags(uids []uint32, flags ...string) error {
	return s.storeFlags(imap.AddFlags, uids, flags)
}

// RemoveFlags removes flags from the given UIDs in the selected folder.
func (s *Session) RemoveFlags(uids []uint32, flags ...string) error {
	return s.storeFlags(imap.RemoveFlags, uids, flags)
}

func (s *Session) storeFlags(op imap.FlagsOp, uids []uint32, flags []string) error {
	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	item := imap.FormatFlagsOp(op, true)
	values := make([]interface{}, len(flags))
	for i, f := range flags {
		values[i] = f
	}

	return commandError("uid store", s.client.UidStore(seqSet, item, values, nil))
}

// Copy copies the given UIDs from the selected folder to the target folder.
func (s *Session) Copy(uids []uint32, targetWireName string) error {
	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	return commandError("uid copy", s.client.UidCopy(seqSet, targetWireName))
}

// Expunge permanently removes messages marked \Deleted in the selected folder.
func (s *Session) Expunge() error {
	return commandError("expunge", s.client.Expunge(nil))
}

// CreateFolder creates a folder by its wire-encoded name.
func (s *Session) CreateFolder(wireName string) error {
	return commandError("create", s.client.Create(wireName))
}

// RenameFolder renames a folder; both names are wire-encoded.
func (s *Session) RenameFolder(oldWireName, newWireName string) error {
	return commandError("rename", s.client.Rename(oldWireName, newWireName))
}

// DeleteFolder deletes a folder by its wire-encoded name.
func (s *Session) DeleteFolder(wireName string) error {
	return commandError("delete", s.client.Delete(wireName))
}

// CloseFolder closes the currently selected folder.
func (s *Session) CloseFolder() error {
	return commandError("close", s.client.Close())
}

// Logout logs out and drops the connection. Idempotent: calling it on an
// already-closed session is a no-op.
func (s *Session) Logout() {
	if s.client == nil {
		return
	}
	// The server may already have dropped the connection; nothing useful
	// to do with the error here.
	_ = s.client.Logout()
	s.client = nil
}
