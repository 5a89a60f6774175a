package ledger

import "context"

// Snapshot returns the balance and full history of an in-memory account. It
// is a test helper and returns ok=false for other store implementations.
func Snapshot(s Store, walletID string) (balance int64, entries []Entry, ok bool) {
	mem, isMem := s.(*inMemoryStore)
	if !isMem {
		return 0, nil, false
	}
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	acc, exists := mem.accounts[walletID]
	if !exists {
		return 0, nil, false
	}
	entries = make([]Entry, len(acc.entries))
	copy(entries, acc.entries)
	return acc.balance, entries, true
}

// SumEntries adds the signed amounts of entries.
func SumEntries(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}

// failingStore wraps a Store and fails the configured operation.
type failingStore struct {
	Store
	failAppendFor string
	err           error
}

// FailAppendFor returns a Store whose AppendEntry fails with err for walletID.
// It exists to exercise rollback paths in tests.
func FailAppendFor(s Store, walletID string, err error) Store {
	return &failingStore{Store: s, failAppendFor: walletID, err: err}
}

func (f *failingStore) AppendEntry(ctx context.Context, walletID string, entry Entry) error {
	if walletID == f.failAppendFor {
		return f.err
	}
	return f.Store.AppendEntry(ctx, walletID, entry)
}
