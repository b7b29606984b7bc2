package journalstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const gcInterval = 30 * time.Minute

type actionRecord struct {
	Key       string
	SwapID    string `badgerholdIndex:"SwapID"`
	Action    string
	Kind      string
	TxID      string
	Timestamp int64
}

type reportedSwapRecord struct {
	SwapID    string
	Status    string
	Timestamp int64
}

type journalStore struct {
	store    *badgerhold.Store
	quitChan chan struct{}
}

// NewActionJournal opens (or creates if not exists) the journal db in the
// given base dir. An empty dir makes the journal live in memory only.
func NewActionJournal(
	baseDbDir string, logger badger.Logger,
) (ports.ActionJournal, error) {
	var journalDir string
	if len(baseDbDir) > 0 {
		journalDir = filepath.Join(baseDbDir, "journal")
	}

	quitChan := make(chan struct{})
	store, err := createDb(journalDir, logger, quitChan)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}
	return &journalStore{store, quitChan}, nil
}

func (j *journalStore) AddAction(
	_ context.Context, entry domain.JournalEntry,
) error {
	record := actionRecord{
		Key:       entry.Key,
		SwapID:    entry.SwapID,
		Action:    string(entry.Action),
		Kind:      string(entry.Kind),
		TxID:      entry.TxID,
		Timestamp: entry.Timestamp,
	}
	if err := j.store.Insert(entry.Key, &record); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return nil
		}
		return err
	}
	return nil
}

func (j *journalStore) HasAction(_ context.Context, key string) (bool, error) {
	var record actionRecord
	if err := j.store.Get(key, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (j *journalStore) ListActions(
	_ context.Context,
) ([]domain.JournalEntry, error) {
	var records []actionRecord
	if err := j.store.Find(
		&records, badgerhold.Where("Timestamp").Ge(int64(0)).SortBy("Timestamp"),
	); err != nil {
		return nil, err
	}

	entries := make([]domain.JournalEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.JournalEntry{
			Key:       r.Key,
			SwapID:    r.SwapID,
			Action:    domain.ActionName(r.Action),
			Kind:      domain.LedgerActionKind(r.Kind),
			TxID:      r.TxID,
			Timestamp: r.Timestamp,
		})
	}
	return entries, nil
}

func (j *journalStore) AddReportedSwap(
	_ context.Context, swap domain.ReportedSwap,
) error {
	return j.store.Upsert(swap.SwapID, &reportedSwapRecord{
		SwapID:    swap.SwapID,
		Status:    string(swap.Status),
		Timestamp: swap.Timestamp,
	})
}

func (j *journalStore) ListReportedSwaps(
	_ context.Context,
) ([]domain.ReportedSwap, error) {
	var records []reportedSwapRecord
	if err := j.store.Find(&records, nil); err != nil {
		return nil, err
	}

	swaps := make([]domain.ReportedSwap, 0, len(records))
	for _, r := range records {
		swaps = append(swaps, domain.ReportedSwap{
			SwapID:    r.SwapID,
			Status:    domain.SwapStatus(r.Status),
			Timestamp: r.Timestamp,
		})
	}
	return swaps, nil
}

func (j *journalStore) Close() {
	close(j.quitChan)
	if err := j.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close journal db")
	}
}

func createDb(
	dbDir string, logger badger.Logger, quitChan chan struct{},
) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(gcInterval)

		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil &&
						err != badger.ErrNoRewrite {
						log.Error(err)
					}
				case <-quitChan:
					return
				}
			}
		}()
	}

	return db, nil
}
