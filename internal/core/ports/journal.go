package ports

import (
	"context"

	"github.com/comit-network/swapd/internal/core/domain"
)

// ActionJournal persists the ledger actions performed and the swaps reported
// so that a restarted daemon doesn't repeat them.
type ActionJournal interface {
	AddAction(ctx context.Context, entry domain.JournalEntry) error
	HasAction(ctx context.Context, key string) (bool, error)
	ListActions(ctx context.Context) ([]domain.JournalEntry, error)
	AddReportedSwap(ctx context.Context, swap domain.ReportedSwap) error
	ListReportedSwaps(ctx context.Context) ([]domain.ReportedSwap, error)
	Close()
}
