package models

import (
	"strconv"
	"time"
)

// Sync status values stored on an account.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusFailed  = "failed"
)

// Account holds the connection parameters and sync state for one remote mailbox.
// The sync engine treats it as read-only; only the sync status and last-sync
// timestamp are written back.
type Account struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	IMAPHost     string     `json:"imap_host"`
	IMAPPort     int        `json:"imap_port"`
	IMAPTLS      bool       `json:"imap_tls"`
	Username     string     `json:"username"`
	Password     string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	SyncStatus   string     `json:"sync_status"`
	LastSyncAt   *time.Time `json:"last_sync_at"`
	SyncInterval int        `json:"sync_interval_seconds"`
}

// Address returns the host:port address of the account's IMAP server.
func (a *Account) Address() string {
	return a.IMAPHost + ":" + strconv.Itoa(a.IMAPPort)
}
