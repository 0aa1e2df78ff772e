package event

// Operation is the fixed enumeration of business operations the core accepts.
// The value is the wire string carried in the inbound envelope's operationType.
type Operation string

const (
	OpUnknown Operation = ""

	OpCoinAccountCreate Operation = "coin_account_create"

	OpCoinDepositCreate Operation = "coin_deposit_create"

	OpCoinWithdrawalCreate    Operation = "coin_withdrawal_create"
	OpCoinWithdrawalReleasing Operation = "coin_withdrawal_releasing"
	OpCoinWithdrawalFailed    Operation = "coin_withdrawal_failed"
	OpCoinWithdrawalCancelled Operation = "coin_withdrawal_cancelled"

	OpBalancesLockCreate  Operation = "balances_lock_create"
	OpBalancesLockRelease Operation = "balances_lock_release"

	OpAmmPoolCreate Operation = "amm_pool_create"
	OpAmmPoolUpdate Operation = "amm_pool_update"

	OpAmmPositionCreate     Operation = "amm_position_create"
	OpAmmPositionCollectFee Operation = "amm_position_collect_fee"
	OpAmmPositionClose      Operation = "amm_position_close"
)

var knownOperations = map[Operation]bool{
	OpCoinAccountCreate:       true,
	OpCoinDepositCreate:       true,
	OpCoinWithdrawalCreate:    true,
	OpCoinWithdrawalReleasing: true,
	OpCoinWithdrawalFailed:    true,
	OpCoinWithdrawalCancelled: true,
	OpBalancesLockCreate:      true,
	OpBalancesLockRelease:     true,
	OpAmmPoolCreate:           true,
	OpAmmPoolUpdate:           true,
	OpAmmPositionCreate:       true,
	OpAmmPositionCollectFee:   true,
	OpAmmPositionClose:        true,
}

// Known reports whether op is part of the fixed enumeration.
func (op Operation) Known() bool {
	return knownOperations[op]
}

func (op Operation) String() string {
	if op == OpUnknown {
		return "unknown"
	}
	return string(op)
}
