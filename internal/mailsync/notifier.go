package mailsync

// Notifier receives a single invalidation event when an account's folder
// contents changed, so cached folder listings can be dropped. The engine
// coalesces per-folder changes into one event per operation.
type Notifier interface {
	CatalogChanged(accountID int64)
}

// NopNotifier discards invalidation events.
type NopNotifier struct{}

func (NopNotifier) CatalogChanged(int64) {}
