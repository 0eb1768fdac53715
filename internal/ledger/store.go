package ledger

import (
	"context"

	"truecost/internal/core"
)

// Store persists ledger entries. Implementations must write a transaction
// and its asset atomically: readers never see one without the other.
type Store interface {
	// Insert stores a new entry and assigns its insertion sequence.
	Insert(ctx context.Context, e core.Entry) (core.Entry, error)
	// Replace swaps the stored entry with the same transaction id, dropping
	// any previous asset. The insertion sequence is preserved.
	Replace(ctx context.Context, e core.Entry) (core.Entry, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (core.Entry, error)
	GetAsset(ctx context.Context, id string) (core.Asset, error)
	// ListTransactions returns transactions dated in [from, to], ordered by
	// date then insertion sequence. A zero bound is open.
	ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error)
	ListAssets(ctx context.Context) ([]core.Asset, error)
	AssetsCovering(ctx context.Context, m core.Month) ([]core.Asset, error)
}
