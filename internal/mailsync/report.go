package mailsync

import "time"

// ItemOutcome classifies what happened to one remote message during a pass.
type ItemOutcome string

const (
	OutcomeInserted ItemOutcome = "inserted"
	OutcomeUpdated  ItemOutcome = "updated"
	OutcomeExists   ItemOutcome = "exists"
	OutcomeFailed   ItemOutcome = "failed"
)

// ItemResult is the per-message record in a folder report. A failed item
// carries its error; the pass continues past it.
type ItemResult struct {
	UID       uint32
	MessageID string
	Outcome   ItemOutcome
	Err       error
}

// FolderReport covers one folder's reconciliation pass.
type FolderReport struct {
	Folder             string
	UIDValidity        string
	UIDValidityChanged bool
	Deleted            int
	Items              []ItemResult
	Err                error
}

// Counts returns the inserted/updated/failed item totals.
func (r *FolderReport) Counts() (inserted, updated, failed int) {
	for _, item := range r.Items {
		switch item.Outcome {
		case OutcomeInserted:
			inserted++
		case OutcomeUpdated:
			updated++
		case OutcomeFailed:
			failed++
		}
	}
	return
}

// Report covers one account-level sync run.
type Report struct {
	AccountID  int64
	StartedAt  time.Time
	FinishedAt time.Time
	Folders    []FolderReport
	Err        error
}

// Failed reports whether the run failed at the account level.
func (r *Report) Failed() bool {
	return r.Err != nil
}

// TotalInserted sums inserted items across folders.
func (r *Report) TotalInserted() int {
	var total int
	for i := range r.Folders {
		inserted, _, _ := r.Folders[i].Counts()
		total += inserted
	}
	return total
}
