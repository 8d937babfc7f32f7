package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/skovert/mailmirror/internal/models"
)

// ErrAccountNotFound is returned when a requested account cannot be found.
var ErrAccountNotFound = errors.New("account not found")

const accountColumns = `
	id,
	name,
	email,
	imap_host,
	imap_port,
	imap_tls,
	username,
	password,
	is_active,
	sync_status,
	last_sync_at,
	sync_interval_seconds`

// GetAccount returns one account by ID.
func (s *Store) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// ListActiveAccounts returns all accounts with syncing enabled.
func (s *Store) ListActiveAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// CreateAccount inserts an account and populates its ID. Used by the admin
// surface and tests; the sync engine itself never creates accounts.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (name, email, imap_host, imap_port, imap_tls, username, password, is_active, sync_interval_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		account.Name,
		account.Email,
		account.IMAPHost,
		account.IMAPPort,
		account.IMAPTLS,
		account.Username,
		account.Password,
		account.IsActive,
		account.SyncInterval,
	).Scan(&account.ID)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// SetSyncStatus updates an account's sync status field.
func (s *Store) SetSyncStatus(ctx context.Context, accountID int64, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts SET sync_status = $2, updated_at = now() WHERE id = $1
	`, accountID, status)
	if err != nil {
		return fmt.Errorf("failed to set sync status: %w", err)
	}
	return nil
}

// SetLastSync updates an account's last successful sync timestamp.
func (s *Store) SetLastSync(ctx context.Context, accountID int64, t time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts SET last_sync_at = $2, updated_at = now() WHERE id = $1
	`, accountID, t)
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.IMAPHost,
		&account.IMAPPort,
		&account.IMAPTLS,
		&account.Username,
		&account.Password,
		&account.IsActive,
		&account.SyncStatus,
		&account.LastSyncAt,
		&account.SyncInterval,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
