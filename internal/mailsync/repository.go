// Package mailsync reconciles the local mirror of each account's folders
// with the remote mailbox and applies folder mutations to both sides.
package mailsync

import (
	"context"
	"time"

	"github.com/skovert/mailmirror/internal/models"
)

// Repository is the storage boundary the sync engine drives. Implemented by
// db.Store; tests substitute an in-memory fake.
//
// Find* methods return (nil, nil) when no row matches. InsertMessage reports
// a unique-constraint violation as (false, nil): the message already exists.
type Repository interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListActiveAccounts(ctx context.Context) ([]*models.Account, error)
	SetSyncStatus(ctx context.Context, accountID int64, status string) error
	SetLastSync(ctx context.Context, accountID int64, t time.Time) error

	FolderMessageRefs(ctx context.Context, accountID int64, folder string) ([]models.MessageRef, error)
	DeleteMessagesByUID(ctx context.Context, accountID int64, folder string, uids []uint32) error
	FindByMessageID(ctx context.Context, accountID int64, messageID string) (*models.Message, error)
	FindByFingerprint(ctx context.Context, accountID int64, fingerprint string) (*models.Message, error)
	FindByLocation(ctx context.Context, accountID int64, folder string, uid uint32, uidValidity string) (*models.Message, error)
	CountByFingerprint(ctx context.Context, accountID int64, fingerprint string) (int, error)
	InsertMessage(ctx context.Context, message *models.Message) (bool, error)
	UpdateMessage(ctx context.Context, message *models.Message) error
	SetRawPath(ctx context.Context, messageID int64, path string) error
	RenameFolderPaths(ctx context.Context, accountID int64, oldName, newName string) error
	ReassignFolder(ctx context.Context, accountID int64, folder string, uids []uint32, target string) error
	PurgeFolder(ctx context.Context, accountID int64, folder string) ([]string, error)
}
