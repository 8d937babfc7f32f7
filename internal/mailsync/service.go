package mailsync

import (
	"context"
	"log"
	"time"

	imapx "github.com/skovert/mailmirror/internal/imap"
	"github.com/skovert/mailmirror/internal/models"
	"github.com/skovert/mailmirror/internal/rawstore"
)

// Service runs account-level synchronization: one session per run, every
// selectable folder reconciled in turn, account status kept current.
type Service struct {
	repo     Repository
	raw      *rawstore.Store
	notifier Notifier

	// BatchSize overrides the governor's default fetch batch size when
	// positive.
	BatchSize int
}

func NewService(repo Repository, raw *rawstore.Store, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{repo: repo, raw: raw, notifier: notifier}
}

// SyncAccount reconciles every folder of one account. The returned report
// always covers whatever ran; an account-level failure (unknown account,
// connect or login refused, folder listing failed) is recorded in its Err
// and marks the account failed. Folder and message failures do not.
func (s *Service) SyncAccount(ctx context.Context, accountID int64) *Report {
	report := &Report{AccountID: accountID, StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		report.Err = err
		return report
	}

	if err := s.repo.SetSyncStatus(ctx, accountID, models.SyncStatusSyncing); err != nil {
		report.Err = err
		return report
	}

	session, err := imapx.Dial(account)
	if err != nil {
		s.finish(ctx, accountID, models.SyncStatusFailed, false)
		report.Err = err
		return report
	}
	defer session.Logout()

	folders, err := imapx.ResolveFolders(session)
	if err != nil {
		s.finish(ctx, accountID, models.SyncStatusFailed, false)
		report.Err = err
		return report
	}

	reconciler := NewReconciler(s.repo, s.governor(), s.raw)
	changed := false
	for _, folder := range folders {
		folderReport := reconciler.SyncFolder(ctx, session, account, folder)
		report.Folders = append(report.Folders, folderReport)

		inserted, updated, failed := folderReport.Counts()
		if inserted > 0 || updated > 0 || folderReport.Deleted > 0 {
			changed = true
		}
		log.Printf("Synced account %d folder %q: %d inserted, %d updated, %d deleted, %d failed",
			accountID, folderReport.Folder, inserted, updated, folderReport.Deleted, failed)
	}

	if changed {
		s.notifier.CatalogChanged(accountID)
	}

	s.finish(ctx, accountID, models.SyncStatusIdle, true)
	return report
}

// SyncFolder runs an on-demand pass over a single folder. Unlike a full
// account run it does not touch the account's sync status.
func (s *Service) SyncFolder(ctx context.Context, accountID int64, folder *models.RemoteFolder) (FolderReport, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return FolderReport{Folder: folder.Name, Err: err}, err
	}

	session, err := imapx.Dial(account)
	if err != nil {
		return FolderReport{Folder: folder.Name, Err: err}, err
	}
	defer session.Logout()

	reconciler := NewReconciler(s.repo, s.governor(), s.raw)
	report := reconciler.SyncFolder(ctx, session, account, folder)

	inserted, updated, _ := report.Counts()
	if inserted > 0 || updated > 0 || report.Deleted > 0 {
		s.notifier.CatalogChanged(accountID)
	}

	return report, report.Err
}

func (s *Service) governor() *Governor {
	gov := NewGovernor()
	if s.BatchSize > 0 {
		gov.BatchSize = s.BatchSize
	}
	return gov
}

func (s *Service) finish(ctx context.Context, accountID int64, status string, succeeded bool) {
	if err := s.repo.SetSyncStatus(ctx, accountID, status); err != nil {
		log.Printf("Failed to set sync status for account %d: %v", accountID, err)
	}
	if succeeded {
		if err := s.repo.SetLastSync(ctx, accountID, time.Now()); err != nil {
			log.Printf("Failed to set last sync for account %d: %v", accountID, err)
		}
	}
}
