package event

// BalancesLockCreate freezes the full available balance of every listed
// account under one lock. LockID is optional; the processor generates one
// when absent.
type BalancesLockCreate struct {
	Base
	LockID      string
	AccountKeys []string
}

func (e *BalancesLockCreate) Operation() Operation { return OpBalancesLockCreate }

// BalancesLockRelease reverses a lock. A lock can be released at most once.
type BalancesLockRelease struct {
	Base
	LockID string
}

func (e *BalancesLockRelease) Operation() Operation { return OpBalancesLockRelease }
