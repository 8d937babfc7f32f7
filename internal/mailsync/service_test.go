package mailsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skovert/mailmirror/internal/db"
	imapx "github.com/skovert/mailmirror/internal/imap"
	"github.com/skovert/mailmirror/internal/models"
	"github.com/skovert/mailmirror/internal/rawstore"
	"github.com/skovert/mailmirror/internal/testutil"
)

func TestSyncAccount(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	t.Cleanup(server.Close)

	repo := newFakeRepo(server.Account(1))
	notifier := &countNotifier{}
	service := NewService(repo, rawstore.New(t.TempDir()), notifier)

	server.AddMessage(t, "INBOX", "<hello@example.com>", "Hello", "alice@example.com", "me@test.local", time.Now())

	report := service.SyncAccount(context.Background(), 1)
	require.NoError(t, report.Err)
	require.NotEmpty(t, report.Folders)
	assert.GreaterOrEqual(t, report.TotalInserted(), 2)
	assert.False(t, report.FinishedAt.IsZero())

	assert.Equal(t, models.SyncStatusIdle, repo.statuses[1])
	assert.False(t, repo.lastSync[1].IsZero())
	assert.Equal(t, 1, notifier.count())

	// A second run with nothing new emits no invalidation event.
	report = service.SyncAccount(context.Background(), 1)
	require.NoError(t, report.Err)
	assert.Equal(t, 1, notifier.count())
}

func TestSyncAccountAuthFailure(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	t.Cleanup(server.Close)

	account := server.Account(1)
	account.Password = "wrong"
	repo := newFakeRepo(account)
	service := NewService(repo, nil, nil)

	report := service.SyncAccount(context.Background(), 1)
	require.Error(t, report.Err)

	var authErr *imapx.AuthError
	assert.True(t, errors.As(report.Err, &authErr))
	assert.Equal(t, models.SyncStatusFailed, repo.statuses[1])
	assert.True(t, repo.lastSync[1].IsZero())
}

func TestSyncAccountUnknown(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, nil, nil)

	report := service.SyncAccount(context.Background(), 42)
	require.Error(t, report.Err)
	assert.ErrorIs(t, report.Err, db.ErrAccountNotFound)
}

func TestServiceBatchSize(t *testing.T) {
	service := NewService(newFakeRepo(), nil, nil)

	// Default when unset.
	assert.Equal(t, DefaultBatchSize, service.governor().BatchSize)

	// A configured size reaches the governor.
	service.BatchSize = 25
	gov := service.governor()
	assert.Equal(t, 25, gov.BatchSize)

	uids := make([]uint32, 60)
	for i := range uids {
		uids[i] = uint32(i + 1)
	}
	batches := gov.SplitIntoBatches(uids)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 25)
	assert.Len(t, batches[2], 10)
}

func TestSyncFolderOnDemand(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	t.Cleanup(server.Close)

	repo := newFakeRepo(server.Account(1))
	service := NewService(repo, rawstore.New(t.TempDir()), nil)

	report, err := service.SyncFolder(context.Background(), 1, inbox)
	require.NoError(t, err)
	assert.Equal(t, "INBOX", report.Folder)
	assert.Equal(t, 1, repo.count(1, "INBOX"))

	// The account's sync status is untouched by an on-demand folder pass.
	assert.Empty(t, repo.statuses[1])
}
