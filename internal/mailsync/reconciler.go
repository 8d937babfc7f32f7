package mailsync

import (
	"context"
	"log"
	"time"

	"github.com/emersion/go-imap"

	"github.com/skovert/mailmirror/internal/identity"
	imapx "github.com/skovert/mailmirror/internal/imap"
	"github.com/skovert/mailmirror/internal/models"
	"github.com/skovert/mailmirror/internal/rawstore"
)

// Reconciler brings the local mirror of one folder in line with the remote
// mailbox: it removes rows for messages gone from the server and ingests
// messages the mirror has not seen.
type Reconciler struct {
	repo Repository
	gov  *Governor
	raw  *rawstore.Store
}

func NewReconciler(repo Repository, gov *Governor, raw *rawstore.Store) *Reconciler {
	return &Reconciler{repo: repo, gov: gov, raw: raw}
}

// SyncFolder runs one reconciliation pass over a folder. Message-level
// failures are recorded in the report and do not abort the pass; a failure
// to select or search the folder does.
func (r *Reconciler) SyncFolder(ctx context.Context, session *imapx.Session, account *models.Account, folder *models.RemoteFolder) FolderReport {
	report := FolderReport{Folder: folder.Name}

	status, err := session.Select(folder.WireName, true)
	if err != nil {
		log.Printf("Skipping folder %q for account %d: select failed: %v", folder.Name, account.ID, err)
		report.Err = err
		return report
	}

	uidValidity := resolveUIDValidity(uidValidityInput{
		Selected:  status,
		Session:   session,
		WireName:  folder.WireName,
		AccountID: account.ID,
		Folder:    folder.Name,
	})
	report.UIDValidity = uidValidity

	local, err := r.repo.FolderMessageRefs(ctx, account.ID, folder.Name)
	if err != nil {
		report.Err = err
		return report
	}

	// A UIDVALIDITY change means every stored UID is stale: the deletion
	// pass and UID matching are suppressed and messages are re-matched by
	// identity instead.
	validityChanged := false
	for _, ref := range local {
		if ref.UIDValidity != uidValidity {
			validityChanged = true
			break
		}
	}
	report.UIDValidityChanged = validityChanged
	if validityChanged {
		log.Printf("UIDVALIDITY changed for account %d folder %q, re-matching by identity", account.ID, folder.Name)
	}

	remote, err := session.SearchAllUIDs()
	if err != nil {
		report.Err = err
		return report
	}

	remoteSet := make(map[uint32]bool, len(remote))
	for _, uid := range remote {
		remoteSet[uid] = true
	}

	if !validityChanged {
		report.Deleted, err = r.deleteVanished(ctx, account.ID, folder.Name, local, remoteSet)
		if err != nil {
			report.Err = err
			return report
		}
	}

	localSet := make(map[uint32]bool, len(local))
	if !validityChanged {
		for _, ref := range local {
			localSet[ref.UID] = true
		}
	}

	var missing []uint32
	for _, uid := range remote {
		if !localSet[uid] {
			missing = append(missing, uid)
		}
	}

	for _, batch := range r.gov.SplitIntoBatches(missing) {
		fetched, err := session.FetchFull(batch)
		if err != nil {
			log.Printf("Fetch failed for account %d folder %q (%d messages): %v", account.ID, folder.Name, len(batch), err)
			for _, uid := range batch {
				report.Items = append(report.Items, ItemResult{UID: uid, Outcome: OutcomeFailed, Err: err})
			}
			continue
		}

		for _, msg := range fetched {
			report.Items = append(report.Items, r.ingest(ctx, account, folder.Name, uidValidity, msg))
		}

		r.gov.CheckAndReleaseMemory()
		r.gov.AdjustBatchSize()
	}

	return report
}

// deleteVanished removes rows whose UIDs no longer exist remotely, along
// with their cached raw copies.
func (r *Reconciler) deleteVanished(ctx context.Context, accountID int64, folder string, local []models.MessageRef, remote map[uint32]bool) (int, error) {
	var gone []uint32
	var paths []string
	for _, ref := range local {
		if !remote[ref.UID] {
			gone = append(gone, ref.UID)
			paths = append(paths, ref.RawPath)
		}
	}
	if len(gone) == 0 {
		return 0, nil
	}

	if err := r.repo.DeleteMessagesByUID(ctx, accountID, folder, gone); err != nil {
		return 0, err
	}
	if r.raw != nil {
		if err := r.raw.RemoveAll(paths); err != nil {
			log.Printf("Failed to remove raw copies for account %d folder %q: %v", accountID, folder, err)
		}
	}

	return len(gone), nil
}

// ingest parses one fetched message, resolves its identity, and upserts it
// into the mirror.
func (r *Reconciler) ingest(ctx context.Context, account *models.Account, folder, uidValidity string, fetched *imapx.FetchedMessage) ItemResult {
	result := ItemResult{UID: fetched.UID}

	parsed, err := ParseRawMessage(fetched.Raw)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	messageID, generated, fingerprint, err := identity.Resolve(ctx, r.repo, identity.ResolveInput{
		AccountID:  account.ID,
		MessageID:  parsed.MessageID,
		Sender:     parsed.Sender,
		Recipients: parsed.Recipients,
		Subject:    parsed.Subject,
		Date:       parsed.DateHeader,
		Folder:     folder,
		UID:        fetched.UID,
	})
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}
	result.MessageID = messageID

	receivedAt := parsed.Date
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	isRead := false
	for _, flag := range fetched.Flags {
		if flag == imap.SeenFlag {
			isRead = true
		}
	}

	row := &models.Message{
		AccountID:       account.ID,
		Folder:          folder,
		UID:             fetched.UID,
		UIDValidity:     uidValidity,
		MessageID:       messageID,
		GeneratedID:     generated,
		Fingerprint:     fingerprint,
		LocationKey:     identity.LocationKey(folder, fetched.UID, uidValidity),
		Subject:         parsed.Subject,
		Sender:          parsed.Sender,
		Recipients:      parsed.Recipients,
		CC:              parsed.CC,
		ReceivedAt:      receivedAt,
		Summary:         BuildSummary(parsed.Text, parsed.HTML, parsed.AttachmentCount),
		HasAttachments:  parsed.HasAttachments,
		AttachmentCount: parsed.AttachmentCount,
		IsRead:          isRead,
	}

	outcome, err := r.upsert(ctx, row, fetched.Raw, account.Email)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	// upsert may have kept the identifier already stored on the row.
	result.MessageID = row.MessageID
	result.Outcome = outcome
	return result
}

// upsert matches the row against the mirror by message identifier, then
// content fingerprint, then IMAP location, updating the match in place; an
// unmatched row is inserted. A unique violation on insert means a concurrent
// or earlier pass already stored the message.
func (r *Reconciler) upsert(ctx context.Context, row *models.Message, raw []byte, accountEmail string) (ItemOutcome, error) {
	existing, err := r.repo.FindByMessageID(ctx, row.AccountID, row.MessageID)
	if err != nil {
		return OutcomeFailed, err
	}
	if existing == nil && row.Fingerprint != "" {
		match, err := r.repo.FindByFingerprint(ctx, row.AccountID, row.Fingerprint)
		if err != nil {
			return OutcomeFailed, err
		}
		// Same content in another folder is a distinct mirror row: broadcast
		// copies get a suffixed identifier and coexist. Only a same-folder
		// match relocates the row.
		if match != nil && match.Folder == row.Folder {
			existing = match
		}
	}
	if existing == nil {
		existing, err = r.repo.FindByLocation(ctx, row.AccountID, row.Folder, row.UID, row.UIDValidity)
		if err != nil {
			return OutcomeFailed, err
		}
	}

	if existing != nil {
		row.ID = existing.ID
		row.IsDeleted = existing.IsDeleted
		if row.RawPath == "" {
			row.RawPath = existing.RawPath
		}
		// An identifier already on the row stays put; re-resolving a message
		// that lacks a native Message-ID must not churn the stored one.
		if existing.MessageID != "" {
			row.MessageID = existing.MessageID
			row.GeneratedID = existing.GeneratedID
		}
		if existing.Fingerprint != "" {
			row.Fingerprint = existing.Fingerprint
		}
		if err := r.repo.UpdateMessage(ctx, row); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeUpdated, nil
	}

	inserted, err := r.repo.InsertMessage(ctx, row)
	if err != nil {
		return OutcomeFailed, err
	}
	if !inserted {
		log.Printf("Message %s already exists for account %d, skipping", row.MessageID, row.AccountID)
		return OutcomeExists, nil
	}

	if r.raw != nil && len(raw) > 0 {
		path, err := r.raw.Save(accountEmail, row.ID, raw)
		if err != nil {
			log.Printf("Failed to cache raw copy for message %d: %v", row.ID, err)
		} else if err := r.repo.SetRawPath(ctx, row.ID, path); err != nil {
			log.Printf("Failed to record raw path for message %d: %v", row.ID, err)
		}
	}

	return OutcomeInserted, nil
}
