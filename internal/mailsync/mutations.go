package mailsync

import (
	"context"
	"fmt"
	"log"

	"github.com/emersion/go-imap"

	imapx "github.com/skovert/mailmirror/internal/imap"
	"github.com/skovert/mailmirror/internal/imaputf7"
	"github.com/skovert/mailmirror/internal/rawstore"
)

// inboxFolder is where a deleted folder's messages are preserved.
const inboxFolder = "INBOX"

// Executor applies folder mutations to the remote mailbox and keeps the
// local mirror consistent with them. Each operation dials its own session
// and emits one catalog-invalidation event on success.
type Executor struct {
	repo     Repository
	raw      *rawstore.Store
	notifier Notifier
}

func NewExecutor(repo Repository, raw *rawstore.Store, notifier Notifier) *Executor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Executor{repo: repo, raw: raw, notifier: notifier}
}

// CreateFolder creates a folder on the server, under parent when given. The
// wire name is built with the parent's reported delimiter.
func (e *Executor) CreateFolder(ctx context.Context, accountID int64, name, parent string) (bool, error) {
	session, err := e.dial(ctx, accountID)
	if err != nil {
		return false, err
	}
	defer session.Logout()

	wireName := imaputf7.Encode(name)
	if parent != "" {
		delimiter := "/"
		parentWire := imaputf7.Encode(parent)
		if folders, err := imapx.ResolveFolders(session); err == nil {
			for _, folder := range folders {
				if folder.Name == parent {
					parentWire = folder.WireName
					if folder.Delimiter != "" {
						delimiter = folder.Delimiter
					}
					break
				}
			}
		}
		wireName = parentWire + delimiter + wireName
	}

	if err := session.CreateFolder(wireName); err != nil {
		return false, fmt.Errorf("failed to create folder %q: %w", name, err)
	}

	e.notifier.CatalogChanged(accountID)
	return true, nil
}

// RenameFolder renames a folder on the server and rewrites the mirrored
// folder paths, the folder itself and all descendants, in one transaction.
func (e *Executor) RenameFolder(ctx context.Context, accountID int64, oldName, newName string) (bool, error) {
	session, err := e.dial(ctx, accountID)
	if err != nil {
		return false, err
	}
	defer session.Logout()

	oldWire := imapx.WireFolderName(session, oldName)
	if err := session.RenameFolder(oldWire, imaputf7.Encode(newName)); err != nil {
		return false, fmt.Errorf("failed to rename folder %q: %w", oldName, err)
	}

	if err := e.repo.RenameFolderPaths(ctx, accountID, oldName, newName); err != nil {
		return false, err
	}

	e.notifier.CatalogChanged(accountID)
	return true, nil
}

// DeleteFolder removes a folder. Messages still in it are preserved: copied
// to the inbox remotely, flagged deleted and expunged from the folder, and
// their mirrored rows repointed at the inbox for the next pass to re-match.
// A folder that cannot be selected remotely gets local-only cleanup.
func (e *Executor) DeleteFolder(ctx context.Context, accountID int64, name string) error {
	session, err := e.dial(ctx, accountID)
	if err != nil {
		return err
	}
	defer session.Logout()

	wireName := imapx.WireFolderName(session, name)

	status, err := session.Select(wireName, false)
	if err != nil {
		log.Printf("Folder %q not selectable for account %d, cleaning up locally: %v", name, accountID, err)
		return e.purgeLocal(ctx, accountID, name)
	}

	if status.Messages > 0 {
		uids, err := session.SearchAllUIDs()
		if err != nil {
			return fmt.Errorf("failed to list messages in %q: %w", name, err)
		}
		if len(uids) > 0 {
			if err := session.Copy(uids, inboxFolder); err != nil {
				return fmt.Errorf("failed to move messages out of %q: %w", name, err)
			}
			if err := session.AddFlags(uids, imap.DeletedFlag); err != nil {
				return fmt.Errorf("failed to flag messages in %q: %w", name, err)
			}
			if err := session.Expunge(); err != nil {
				return fmt.Errorf("failed to expunge %q: %w", name, err)
			}
			if err := e.repo.ReassignFolder(ctx, accountID, name, uids, inboxFolder); err != nil {
				return err
			}
		}
	}

	if err := session.CloseFolder(); err != nil {
		log.Printf("Failed to close folder %q: %v", name, err)
	}

	if err := session.DeleteFolder(wireName); err != nil {
		return fmt.Errorf("failed to delete folder %q: %w", name, err)
	}

	return e.purgeLocal(ctx, accountID, name)
}

func (e *Executor) purgeLocal(ctx context.Context, accountID int64, folder string) error {
	paths, err := e.repo.PurgeFolder(ctx, accountID, folder)
	if err != nil {
		return err
	}
	if e.raw != nil {
		if err := e.raw.RemoveAll(paths); err != nil {
			log.Printf("Failed to remove raw copies for folder %q: %v", folder, err)
		}
	}

	e.notifier.CatalogChanged(accountID)
	return nil
}

func (e *Executor) dial(ctx context.Context, accountID int64) (*imapx.Session, error) {
	account, err := e.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return imapx.Dial(account)
}
