package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skovert/mailmirror/internal/config"
	"github.com/skovert/mailmirror/internal/db"
	"github.com/skovert/mailmirror/internal/mailsync"
	"github.com/skovert/mailmirror/internal/rawstore"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	if err := db.Migrate(ctx, pool, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := db.NewStore(pool)
	service := mailsync.NewService(store, rawstore.New(cfg.RawDir), mailsync.NopNotifier{})
	service.BatchSize = cfg.BatchSize
	runner := mailsync.NewRunner(service)

	go runSyncLoop(ctx, store, runner)

	server := NewServer(store, runner)

	address := ":" + cfg.Port
	log.Printf("mailmirror server starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// runSyncLoop starts a sync for every active account whose configured
// interval has elapsed. The runner refuses overlap, so a slow account is
// simply skipped until its current run finishes.
func runSyncLoop(ctx context.Context, store *db.Store, runner *mailsync.Runner) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		accounts, err := store.ListActiveAccounts(ctx)
		if err != nil {
			log.Printf("Failed to list accounts for sync loop: %v", err)
		}

		for _, account := range accounts {
			if !syncDue(account.LastSyncAt, account.SyncInterval) {
				continue
			}
			if _, err := runner.Run(ctx, account.ID); err != nil && err != mailsync.ErrSyncInProgress {
				log.Printf("Failed to start sync for account %d: %v", account.ID, err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func syncDue(lastSync *time.Time, intervalSeconds int) bool {
	if lastSync == nil {
		return true
	}
	if intervalSeconds <= 0 {
		intervalSeconds = 300
	}
	return time.Since(*lastSync) >= time.Duration(intervalSeconds)*time.Second
}

// NewServer creates the HTTP handler: a health probe and a manual sync
// trigger per account.
func NewServer(store *db.Store, runner *mailsync.Runner) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("/api/v1/accounts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		accountID, ok := parseSyncPath(r.URL.Path)
		if !ok {
			http.Error(w, "account id is required", http.StatusBadRequest)
			return
		}

		if _, err := store.GetAccount(r.Context(), accountID); err != nil {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		// The run outlives the request, so it gets its own context.
		task, err := runner.Run(context.Background(), accountID)
		if err == mailsync.ErrSyncInProgress {
			http.Error(w, "sync already in progress", http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"account_id": task.AccountID,
			"status":     "started",
		})
	})

	return mux
}

// parseSyncPath extracts the account ID from /api/v1/accounts/{id}/sync.
func parseSyncPath(path string) (int64, bool) {
	rest := strings.TrimPrefix(path, "/api/v1/accounts/")
	rest, ok := strings.CutSuffix(rest, "/sync")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "mailmirror is running")
}
