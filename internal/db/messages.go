package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/skovert/mailmirror/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

const messageColumns = `
	id,
	account_id,
	folder,
	uid,
	uidvalidity,
	message_id,
	is_generated_message_id,
	fingerprint,
	location_key,
	subject,
	sender,
	recipients,
	cc,
	received_at,
	summary,
	has_attachments,
	attachment_count,
	is_read,
	is_deleted,
	raw_path`

// FolderMessageRefs returns the UID-level projection of the mirrored rows in
// one folder, used to diff against the server's UID set.
func (s *Store) FolderMessageRefs(ctx context.Context, accountID int64, folder string) ([]models.MessageRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT uid, uidvalidity, message_id, fingerprint, raw_path
		FROM messages
		WHERE account_id = $1 AND folder = $2
	`, accountID, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder message refs: %w", err)
	}
	defer rows.Close()

	var refs []models.MessageRef
	for rows.Next() {
		var ref models.MessageRef
		var uid int64
		if err := rows.Scan(&uid, &ref.UIDValidity, &ref.MessageID, &ref.Fingerprint, &ref.RawPath); err != nil {
			return nil, fmt.Errorf("failed to scan message ref: %w", err)
		}
		ref.UID = uint32(uid)
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message refs: %w", err)
	}

	return refs, nil
}

// DeleteMessagesByUID removes the rows for the given UIDs in one folder.
func (s *Store) DeleteMessagesByUID(ctx context.Context, accountID int64, folder string, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		DELETE FROM messages
		WHERE account_id = $1 AND folder = $2 AND uid = ANY($3)
	`, accountID, folder, uidsToInt64(uids))
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	return nil
}

// FindByMessageID returns the row carrying the given message identifier
// within one account, or nil when none exists.
func (s *Store) FindByMessageID(ctx context.Context, accountID int64, messageID string) (*models.Message, error) {
	return s.findOne(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE account_id = $1 AND message_id = $2
		ORDER BY id
		LIMIT 1
	`, accountID, messageID)
}

// FindByFingerprint returns the row carrying the given content fingerprint
// within one account, or nil when none exists.
func (s *Store) FindByFingerprint(ctx context.Context, accountID int64, fingerprint string) (*models.Message, error) {
	return s.findOne(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE account_id = $1 AND fingerprint = $2
		ORDER BY id
		LIMIT 1
	`, accountID, fingerprint)
}

// FindByLocation returns the row at the given IMAP location, or nil when
// none exists. The UID only identifies a message together with the
// UIDVALIDITY it was captured under.
func (s *Store) FindByLocation(ctx context.Context, accountID int64, folder string, uid uint32, uidValidity string) (*models.Message, error) {
	return s.findOne(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE account_id = $1 AND folder = $2 AND uid = $3 AND uidvalidity = $4
		LIMIT 1
	`, accountID, folder, int64(uid), uidValidity)
}

// CountByFingerprint reports how many rows in an account share a content
// fingerprint. Satisfies identity.ConflictChecker.
func (s *Store) CountByFingerprint(ctx context.Context, accountID int64, fingerprint string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages WHERE account_id = $1 AND fingerprint = $2
	`, accountID, fingerprint).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count by fingerprint: %w", err)
	}
	return count, nil
}

// InsertMessage inserts a new mirrored row and populates its ID. A unique
// constraint violation means the message already exists and is reported as
// inserted == false, not as an error.
func (s *Store) InsertMessage(ctx context.Context, message *models.Message) (bool, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (
			account_id,
			folder,
			uid,
			uidvalidity,
			message_id,
			is_generated_message_id,
			fingerprint,
			location_key,
			subject,
			sender,
			recipients,
			cc,
			received_at,
			summary,
			has_attachments,
			attachment_count,
			is_read,
			raw_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`,
		message.AccountID,
		message.Folder,
		int64(message.UID),
		message.UIDValidity,
		message.MessageID,
		message.GeneratedID,
		message.Fingerprint,
		message.LocationKey,
		message.Subject,
		message.Sender,
		message.Recipients,
		message.CC,
		message.ReceivedAt,
		message.Summary,
		message.HasAttachments,
		message.AttachmentCount,
		message.IsRead,
		message.RawPath,
	).Scan(&message.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	return true, nil
}

// UpdateMessage refreshes an existing mirrored row in place.
func (s *Store) UpdateMessage(ctx context.Context, message *models.Message) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET
			folder = $2,
			uid = $3,
			uidvalidity = $4,
			message_id = $5,
			is_generated_message_id = $6,
			fingerprint = $7,
			location_key = $8,
			subject = $9,
			sender = $10,
			recipients = $11,
			cc = $12,
			received_at = $13,
			summary = $14,
			has_attachments = $15,
			attachment_count = $16,
			is_read = $17,
			raw_path = $18,
			updated_at = now()
		WHERE id = $1
	`,
		message.ID,
		message.Folder,
		int64(message.UID),
		message.UIDValidity,
		message.MessageID,
		message.GeneratedID,
		message.Fingerprint,
		message.LocationKey,
		message.Subject,
		message.Sender,
		message.Recipients,
		message.CC,
		message.ReceivedAt,
		message.Summary,
		message.HasAttachments,
		message.AttachmentCount,
		message.IsRead,
		message.RawPath,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	return nil
}

// SetRawPath records the cached raw-copy path on a row.
func (s *Store) SetRawPath(ctx context.Context, messageID int64, path string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET raw_path = $2, updated_at = now() WHERE id = $1
	`, messageID, path)
	if err != nil {
		return fmt.Errorf("failed to set raw path: %w", err)
	}
	return nil
}

// RenameFolderPaths rewrites the folder field after a remote rename: the
// folder itself by exact match, plus a prefix rewrite for every descendant.
// Both updates run in one transaction.
func (s *Store) RenameFolderPaths(ctx context.Context, accountID int64, oldName, newName string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE messages SET folder = $3, updated_at = now()
		WHERE account_id = $1 AND folder = $2
	`, accountID, oldName, newName)
	if err != nil {
		return fmt.Errorf("failed to rename folder: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE messages
		SET folder = $3 || substring(folder FROM char_length($2) + 1), updated_at = now()
		WHERE account_id = $1 AND folder LIKE $2 || '%'
	`, accountID, oldName+"/", newName+"/")
	if err != nil {
		return fmt.Errorf("failed to rename subfolders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit folder rename: %w", err)
	}

	return nil
}

// ReassignFolder repoints the rows for the given UIDs to another folder,
// used when a deleted folder's messages are moved to the inbox.
func (s *Store) ReassignFolder(ctx context.Context, accountID int64, folder string, uids []uint32, target string) error {
	if len(uids) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET folder = $4, updated_at = now()
		WHERE account_id = $1 AND folder = $2 AND uid = ANY($3)
	`, accountID, folder, uidsToInt64(uids), target)
	if err != nil {
		return fmt.Errorf("failed to reassign folder: %w", err)
	}

	return nil
}

// PurgeFolder deletes every row in one folder and returns the raw-copy paths
// that were attached to them so the caller can remove the files.
func (s *Store) PurgeFolder(ctx context.Context, accountID int64, folder string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM messages
		WHERE account_id = $1 AND folder = $2
		RETURNING raw_path
	`, accountID, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to purge folder: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan raw path: %w", err)
		}
		if path != "" {
			paths = append(paths, path)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purged rows: %w", err)
	}

	return paths, nil
}

// CountMessages returns the number of mirrored rows in one folder. Used by
// tests and the admin surface.
func (s *Store) CountMessages(ctx context.Context, accountID int64, folder string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages WHERE account_id = $1 AND folder = $2
	`, accountID, folder).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (s *Store) findOne(ctx context.Context, query string, args ...any) (*models.Message, error) {
	var msg models.Message
	var uid int64

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&msg.ID,
		&msg.AccountID,
		&msg.Folder,
		&uid,
		&msg.UIDValidity,
		&msg.MessageID,
		&msg.GeneratedID,
		&msg.Fingerprint,
		&msg.LocationKey,
		&msg.Subject,
		&msg.Sender,
		&msg.Recipients,
		&msg.CC,
		&msg.ReceivedAt,
		&msg.Summary,
		&msg.HasAttachments,
		&msg.AttachmentCount,
		&msg.IsRead,
		&msg.IsDeleted,
		&msg.RawPath,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}

	msg.UID = uint32(uid)
	return &msg, nil
}

func uidsToInt64(uids []uint32) []int64 {
	out := make([]int64, len(uids))
	for i, uid := range uids {
		out[i] = int64(uid)
	}
	return out
}
