package event

// AccountCreate requests creation of a coin account with zero balances.
// Creating an account that already exists is a successful no-op.
type AccountCreate struct {
	Base
	AccountKey string
}

func (e *AccountCreate) Operation() Operation { return OpCoinAccountCreate }
