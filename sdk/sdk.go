package sdk

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger errors. Any ledger may wrap these so callers can tell a revert from an outage.
var (
	ErrInsufficientFunds     = errors.New("ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	ErrInvalidAmount         = errors.New("ledger: invalid amount")
	ErrAmountOverflow        = errors.New("ledger: amount overflow")
)

// Ledger is the fungible token the engine settles in. Every call either fully
// succeeds or returns an error and leaves balances untouched.
type Ledger interface {
	BalanceOf(ctx context.Context, owner common.Address) (Amount, error)
	Allowance(ctx context.Context, owner, spender common.Address) (Amount, error)
	// TransferFrom moves amount from owner to recipient, spending spender's allowance.
	TransferFrom(ctx context.Context, spender, owner, recipient common.Address, amount Amount) error
	// Transfer moves amount out of from's own balance.
	Transfer(ctx context.Context, from, to common.Address, amount Amount) error
	Approve(ctx context.Context, owner, spender common.Address, amount Amount) error
}
