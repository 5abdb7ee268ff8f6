package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/dgraph-io/badger/v3"
)

const keyPrefix = "shedlock/"

type lockRecord struct {
	LockUntil time.Time `json:"lock_until"`
	LockedAt  time.Time `json:"locked_at"`
	LockedBy  string    `json:"locked_by"`
}

// BadgerLock is the single-node lock backend used for local runs and tests.
// Badger's optimistic transactions turn concurrent acquisitions into
// ErrConflict, which is reported as "not acquired".
type BadgerLock struct {
	db       *badger.DB
	identity string
	now      func() time.Time
}

// OpenBadgerLock opens a store under dir, or an in-memory one when dir is
// empty.
func OpenBadgerLock(dir, identity string) (*BadgerLock, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger lock store: %w", err)
	}
	return &BadgerLock{db: db, identity: identity, now: time.Now}, nil
}

func (l *BadgerLock) Close() error {
	return l.db.Close()
}

func (l *BadgerLock) TryAcquire(ctx context.Context, name string, minHold, maxHold time.Duration) (*domain.LockLease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	lease := &domain.LockLease{
		Name:      name,
		LockedBy:  l.identity,
		LockedAt:  now,
		LockUntil: now.Add(maxHold),
		MinUntil:  now.Add(minHold),
	}

	acquired := false
	err := l.db.Update(func(txn *badger.Txn) error {
		current, err := getRecord(txn, name)
		if err != nil {
			return err
		}
		if current != nil && current.LockUntil.After(now) {
			return nil
		}

		if err := putRecord(txn, name, lockRecord{
			LockUntil: lease.LockUntil,
			LockedAt:  lease.LockedAt,
			LockedBy:  lease.LockedBy,
		}, maxHold); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		return nil, nil
	}
	return lease, nil
}

func (l *BadgerLock) Release(ctx context.Context, lease *domain.LockLease) error {
	now := l.now().UTC()
	until := lease.ReleaseUntil(now)

	err := l.db.Update(func(txn *badger.Txn) error {
		current, err := getRecord(txn, lease.Name)
		if err != nil {
			return err
		}
		if current == nil || current.LockedBy != lease.LockedBy {
			return nil
		}
		if !until.After(now) {
			return txn.Delete(lockKey(lease.Name))
		}
		current.LockUntil = until
		return putRecord(txn, lease.Name, *current, until.Sub(now))
	})
	if err != nil {
		return fmt.Errorf("release lock %s: %w", lease.Name, err)
	}
	return nil
}

func lockKey(name string) []byte {
	return []byte(keyPrefix + name)
}

func getRecord(txn *badger.Txn, name string) (*lockRecord, error) {
	item, err := txn.Get(lockKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec lockRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}

func putRecord(txn *badger.Txn, name string, rec lockRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	entry := badger.NewEntry(lockKey(name), data)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return txn.SetEntry(entry)
}
