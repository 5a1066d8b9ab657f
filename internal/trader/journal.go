package trader

import "context"

// Journal records order outcomes. The trader works without one.
type Journal interface {
	RecordOrder(ctx context.Context, entry JournalEntry) error
}

// JournalEntry is one executed, cancelled or failed order operation.
type JournalEntry struct {
	Broker  string
	Action  string
	Request OrderRequest
	Report  *OrderReport
	Err     error
}

const (
	ActionExecute   = "execute"
	ActionCancel    = "cancel"
	ActionCancelAll = "cancel_all"
	ActionClose     = "close"
)
