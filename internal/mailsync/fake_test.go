package mailsync

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skovert/mailmirror/internal/db"
	"github.com/skovert/mailmirror/internal/models"
)

// fakeRepo is an in-memory Repository with the same contract as db.Store:
// Find* misses are (nil, nil), duplicate inserts are (false, nil).
type fakeRepo struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	statuses map[int64]string
	lastSync map[int64]time.Time
	messages []*models.Message
	nextID   int64
}

func newFakeRepo(accounts ...*models.Account) *fakeRepo {
	repo := &fakeRepo{
		accounts: make(map[int64]*models.Account),
		statuses: make(map[int64]string),
		lastSync: make(map[int64]time.Time),
	}
	for _, account := range accounts {
		repo.accounts[account.ID] = account
	}
	return repo
}

func (f *fakeRepo) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, db.ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeRepo) ListActiveAccounts(context.Context) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Account
	for _, account := range f.accounts {
		if account.IsActive {
			out = append(out, account)
		}
	}
	return out, nil
}

func (f *fakeRepo) SetSyncStatus(_ context.Context, accountID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[accountID] = status
	return nil
}

func (f *fakeRepo) SetLastSync(_ context.Context, accountID int64, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSync[accountID] = t
	return nil
}

func (f *fakeRepo) FolderMessageRefs(_ context.Context, accountID int64, folder string) ([]models.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []models.MessageRef
	for _, m := range f.messages {
		if m.AccountID == accountID && m.Folder == folder {
			refs = append(refs, models.MessageRef{
				UID:         m.UID,
				UIDValidity: m.UIDValidity,
				MessageID:   m.MessageID,
				Fingerprint: m.Fingerprint,
				RawPath:     m.RawPath,
			})
		}
	}
	return refs, nil
}

func (f *fakeRepo) DeleteMessagesByUID(_ context.Context, accountID int64, folder string, uids []uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	gone := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		gone[uid] = true
	}
	var kept []*models.Message
	for _, m := range f.messages {
		if m.AccountID == accountID && m.Folder == folder && gone[m.UID] {
			continue
		}
		kept = append(kept, m)
	}
	f.messages = kept
	return nil
}

func (f *fakeRepo) FindByMessageID(_ context.Context, accountID int64, messageID string) (*models.Message, error) {
	return f.find(func(m *models.Message) bool {
		return m.AccountID == accountID && m.MessageID == messageID
	}), nil
}

func (f *fakeRepo) FindByFingerprint(_ context.Context, accountID int64, fingerprint string) (*models.Message, error) {
	return f.find(func(m *models.Message) bool {
		return m.AccountID == accountID && m.Fingerprint == fingerprint
	}), nil
}

func (f *fakeRepo) FindByLocation(_ context.Context, accountID int64, folder string, uid uint32, uidValidity string) (*models.Message, error) {
	return f.find(func(m *models.Message) bool {
		return m.AccountID == accountID && m.Folder == folder && m.UID == uid && m.UIDValidity == uidValidity
	}), nil
}

func (f *fakeRepo) CountByFingerprint(_ context.Context, accountID int64, fingerprint string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.messages {
		if m.AccountID == accountID && m.Fingerprint == fingerprint {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) InsertMessage(_ context.Context, message *models.Message) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.AccountID == message.AccountID &&
			m.MessageID == message.MessageID &&
			m.Fingerprint == message.Fingerprint &&
			m.Folder == message.Folder &&
			m.UID == message.UID {
			return false, nil
		}
	}
	f.nextID++
	message.ID = f.nextID
	stored := *message
	f.messages = append(f.messages, &stored)
	return true, nil
}

func (f *fakeRepo) UpdateMessage(_ context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.messages {
		if m.ID == message.ID {
			stored := *message
			f.messages[i] = &stored
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) SetRawPath(_ context.Context, messageID int64, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == messageID {
			m.RawPath = path
		}
	}
	return nil
}

func (f *fakeRepo) RenameFolderPaths(_ context.Context, accountID int64, oldName, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.AccountID != accountID {
			continue
		}
		if m.Folder == oldName {
			m.Folder = newName
		} else if strings.HasPrefix(m.Folder, oldName+"/") {
			m.Folder = newName + "/" + strings.TrimPrefix(m.Folder, oldName+"/")
		}
	}
	return nil
}

func (f *fakeRepo) ReassignFolder(_ context.Context, accountID int64, folder string, uids []uint32, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	moved := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		moved[uid] = true
	}
	for _, m := range f.messages {
		if m.AccountID == accountID && m.Folder == folder && moved[m.UID] {
			m.Folder = target
		}
	}
	return nil
}

func (f *fakeRepo) PurgeFolder(_ context.Context, accountID int64, folder string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	var kept []*models.Message
	for _, m := range f.messages {
		if m.AccountID == accountID && m.Folder == folder {
			if m.RawPath != "" {
				paths = append(paths, m.RawPath)
			}
			continue
		}
		kept = append(kept, m)
	}
	f.messages = kept
	return paths, nil
}

func (f *fakeRepo) find(match func(*models.Message) bool) *models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if match(m) {
			copied := *m
			return &copied
		}
	}
	return nil
}

func (f *fakeRepo) count(accountID int64, folder string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.AccountID == accountID && m.Folder == folder {
			n++
		}
	}
	return n
}

func (f *fakeRepo) seed(message *models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	message.ID = f.nextID
	stored := *message
	f.messages = append(f.messages, &stored)
}

// countNotifier records catalog-invalidation events.
type countNotifier struct {
	mu     sync.Mutex
	events []int64
}

func (n *countNotifier) CatalogChanged(accountID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, accountID)
}

func (n *countNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
