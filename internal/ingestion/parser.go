package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

// ErrUnknownOperation marks an envelope whose operationType is outside the
// fixed enumeration.
var ErrUnknownOperation = errors.New("unknown operation type")

// ParseError reports a message that carried a usable envelope but failed
// operation or payload validation. EventID and Operation let the caller
// attribute the rejection to the upstream event.
type ParseError struct {
	EventID   string
	Operation event.Operation
	Timestamp time.Time
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse event %s: %v", e.EventID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// envelope is the shared outer shape of every inbound message. Operation
// payload fields live beside these in the same JSON object and are decoded
// a second time into the per-operation struct.
type envelope struct {
	EventID       string          `json:"eventId"`
	OperationType event.Operation `json:"operationType"`
	TimestampMs   int64           `json:"timestamp"`
}

func (e envelope) base() event.Base {
	b := event.Base{ID: e.EventID}
	if e.TimestampMs > 0 {
		b.Timestamp = time.UnixMilli(e.TimestampMs)
	}
	return b
}

// ParseRawEvent validates and decodes one inbound message into a typed
// event. Amounts are decoded as decimal strings or numbers; no float64
// intermediates, so "21.21" stays "21.21".
func ParseRawEvent(raw RawEvent) (event.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		return nil, errors.New("envelope missing eventId")
	}

	evt, err := parseOperation(env, raw.Data)
	if err != nil {
		return nil, &ParseError{
			EventID:   env.EventID,
			Operation: env.OperationType,
			Timestamp: env.base().Timestamp,
			Err:       err,
		}
	}
	return evt, nil
}

func parseOperation(env envelope, data []byte) (event.Event, error) {
	if !env.OperationType.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, env.OperationType)
	}

	switch env.OperationType {
	case event.OpCoinAccountCreate:
		return parseAccountCreate(env, data)
	case event.OpCoinDepositCreate:
		return parseDepositCreate(env, data)
	case event.OpCoinWithdrawalCreate:
		return parseWithdrawalCreate(env, data)
	case event.OpCoinWithdrawalReleasing:
		return parseWithdrawalTransition(env, data)
	case event.OpCoinWithdrawalFailed:
		return parseWithdrawalTransition(env, data)
	case event.OpCoinWithdrawalCancelled:
		return parseWithdrawalTransition(env, data)
	case event.OpBalancesLockCreate:
		return parseBalancesLockCreate(env, data)
	case event.OpBalancesLockRelease:
		return parseBalancesLockRelease(env, data)
	case event.OpAmmPoolCreate:
		return parseAmmPoolCreate(env, data)
	case event.OpAmmPoolUpdate:
		return parseAmmPoolUpdate(env, data)
	case event.OpAmmPositionCreate:
		return parseAmmPositionCreate(env, data)
	case event.OpAmmPositionCollectFee:
		return parseAmmPositionRef(env, data)
	case event.OpAmmPositionClose:
		return parseAmmPositionRef(env, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, env.OperationType)
	}
}

type accountCreateJSON struct {
	AccountKey string `json:"accountKey"`
}

func parseAccountCreate(env envelope, data []byte) (*event.AccountCreate, error) {
	var j accountCreateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.AccountKey == "" {
		return nil, errors.New("accountKey is required")
	}
	return &event.AccountCreate{Base: env.base(), AccountKey: j.AccountKey}, nil
}

type depositCreateJSON struct {
	DepositID  string          `json:"depositId"`
	AccountKey string          `json:"accountKey"`
	Amount     decimal.Decimal `json:"amount"`
}

func parseDepositCreate(env envelope, data []byte) (*event.DepositCreate, error) {
	var j depositCreateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.DepositID == "" || j.AccountKey == "" {
		return nil, errors.New("depositId and accountKey are required")
	}
	return &event.DepositCreate{
		Base:       env.base(),
		DepositID:  j.DepositID,
		AccountKey: j.AccountKey,
		Amount:     j.Amount,
	}, nil
}

type withdrawalCreateJSON struct {
	WithdrawalID        string          `json:"withdrawalId"`
	AccountKey          string          `json:"accountKey"`
	RecipientAccountKey string          `json:"recipientAccountKey"`
	Amount              decimal.Decimal `json:"amount"`
	Fee                 decimal.Decimal `json:"fee"`
	Verified            bool            `json:"verified"`
}

func parseWithdrawalCreate(env envelope, data []byte) (*event.WithdrawalCreate, error) {
	var j withdrawalCreateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.WithdrawalID == "" || j.AccountKey == "" {
		return nil, errors.New("withdrawalId and accountKey are required")
	}
	return &event.WithdrawalCreate{
		Base:                env.base(),
		WithdrawalID:        j.WithdrawalID,
		AccountKey:          j.AccountKey,
		RecipientAccountKey: j.RecipientAccountKey,
		Amount:              j.Amount,
		Fee:                 j.Fee,
		Verified:            j.Verified,
	}, nil
}

type withdrawalTransitionJSON struct {
	WithdrawalID string `json:"withdrawalId"`
	Reason       string `json:"reason"`
}

func parseWithdrawalTransition(env envelope, data []byte) (event.Event, error) {
	var j withdrawalTransitionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.WithdrawalID == "" {
		return nil, errors.New("withdrawalId is required")
	}

	switch env.OperationType {
	case event.OpCoinWithdrawalReleasing:
		return &event.WithdrawalReleasing{Base: env.base(), WithdrawalID: j.WithdrawalID}, nil
	case event.OpCoinWithdrawalFailed:
		return &event.WithdrawalFailed{Base: env.base(), WithdrawalID: j.WithdrawalID, Reason: j.Reason}, nil
	default:
		return &event.WithdrawalCancelled{Base: env.base(), WithdrawalID: j.WithdrawalID, Reason: j.Reason}, nil
	}
}

type balancesLockCreateJSON struct {
	LockID      string   `json:"lockId"`
	AccountKeys []string `json:"accountKeys"`
}

func parseBalancesLockCreate(env envelope, data []byte) (*event.BalancesLockCreate, error) {
	var j balancesLockCreateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if len(j.AccountKeys) == 0 {
		return nil, errors.New("accountKeys must not be empty")
	}
	return &event.BalancesLockCreate{
		Base:        env.base(),
		LockID:      j.LockID,
		AccountKeys: j.AccountKeys,
	}, nil
}

type balancesLockReleaseJSON struct {
	LockID string `json:"lockId"`
}

func parseBalancesLockRelease(env envelope, data []byte) (*event.BalancesLockRelease, error) {
	var j balancesLockReleaseJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.LockID == "" {
		return nil, errors.New("lockId is required")
	}
	return &event.BalancesLockRelease{Base: env.base(), LockID: j.LockID}, nil
}

type ammPoolCreateJSON struct {
	Pair                  string          `json:"pair"`
	FeePercentage         decimal.Decimal `json:"feePercentage"`
	ProtocolFeePercentage decimal.Decimal `json:"protocolFeePercentage"`
	InitPrice             decimal.Decimal `json:"initPrice"`
}

func parseAmmPoolCreate(env envelope, data []byte) (*event.AmmPoolCreate, error) {
	var j ammPoolCreateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.Pair == "" {
		return nil, errors.New("pair is required")
	}
	return &event.AmmPoolCreate{
		Base:                  env.base(),
		Pair:                  j.Pair,
		FeePercentage:         j.FeePercentage,
		ProtocolFeePercentage: j.ProtocolFeePercentage,
		InitPrice:             j.InitPrice,
	}, nil
}

type ammPoolUpdateJSON struct {
	Pair                  string           `json:"pair"`
	Active                *bool            `json:"active"`
	FeePercentage         *decimal.Decimal `json:"feePercentage"`
	ProtocolFeePercentage *decimal.Decimal `json:"protocolFeePercentage"`
	InitPrice             *decimal.Decimal `json:"initPrice"`
}

func parseAmmPoolUpdate(env envelope, data []byte) (*event.AmmPoolUpdate, error) {
	var j ammPoolUpdateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.Pair == "" {
		return nil, errors.New("pair is required")
	}
	return &event.AmmPoolUpdate{
		Base:                  env.base(),
		Pair:                  j.Pair,
		Active:                j.Active,
		FeePercentage:         j.FeePercentage,
		ProtocolFeePercentage: j.ProtocolFeePercentage,
		InitPrice:             j.InitPrice,
	}, nil
}

type ammPositionCreateJSON struct {
	PositionID      string          `json:"positionId"`
	Pair            string          `json:"pair"`
	OwnerAccountKey string          `json:"ownerAccountKey"`
	TickLower       int32           `json:"tickLower"`
	TickUpper       int32           `json:"tickUpper"`
	Liquidity       decimal.Decimal `json:"liquidity"`
}

func parseAmmPositionCreate(env envelope, data []byte) (*event.AmmPositionCreate, error) {
	var j ammPositionCreateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.PositionID == "" || j.Pair == "" {
		return nil, errors.New("positionId and pair are required")
	}
	return &event.AmmPositionCreate{
		Base:            env.base(),
		PositionID:      j.PositionID,
		Pair:            j.Pair,
		OwnerAccountKey: j.OwnerAccountKey,
		TickLower:       j.TickLower,
		TickUpper:       j.TickUpper,
		Liquidity:       j.Liquidity,
	}, nil
}

type ammPositionRefJSON struct {
	PositionID string `json:"positionId"`
}

func parseAmmPositionRef(env envelope, data []byte) (event.Event, error) {
	var j ammPositionRefJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.OperationType, err)
	}
	if j.PositionID == "" {
		return nil, errors.New("positionId is required")
	}

	if env.OperationType == event.OpAmmPositionCollectFee {
		return &event.AmmPositionCollectFee{Base: env.base(), PositionID: j.PositionID}, nil
	}
	return &event.AmmPositionClose{Base: env.base(), PositionID: j.PositionID}, nil
}
