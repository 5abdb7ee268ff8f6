package domain

import (
	"context"
	"time"
)

// LockLease describes a held distributed lock. LockUntil bounds how long a
// crashed holder can block the fleet; MinUntil is the earliest moment the
// lock may be taken again after release.
type LockLease struct {
	Name      string
	LockedBy  string
	LockedAt  time.Time
	LockUntil time.Time
	MinUntil  time.Time
}

type DistributedLock interface {
	// TryAcquire never blocks. It returns a nil lease and a nil error when
	// another holder owns the lock.
	TryAcquire(ctx context.Context, name string, minHold, maxHold time.Duration) (*LockLease, error)
	Release(ctx context.Context, lease *LockLease) error
}

// ReleaseUntil is the lock_until value to write on release.
func (l *LockLease) ReleaseUntil(now time.Time) time.Time {
	if l.MinUntil.After(now) {
		return l.MinUntil
	}
	return now
}
