package audit

import "context"

// Store is the append-only persistence boundary for audit records. Append
// assigns the server-side timestamp; no update or delete path exists.
type Store interface {
	Append(ctx context.Context, record Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	ListByDocument(ctx context.Context, collection Collection, documentID string) ([]Record, error)
}
