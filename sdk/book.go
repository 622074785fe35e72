package sdk

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const (
	bookBalancePrefix   = "tok:bal:"
	bookAllowancePrefix = "tok:alw:"
	bookSupplyKey       = "tok:supply"
)

// Book is a State backed token ledger. The cli runs against it and tests use it
// as the external token; balances live next to engine data but under their own prefix.
type Book struct {
	mu    sync.Mutex
	state State
}

// NewBook wraps a state store.
func NewBook(state State) *Book {
	return &Book{state: state}
}

func balanceKey(owner common.Address) string {
	return bookBalancePrefix + owner.Hex()
}

func allowanceKey(owner, spender common.Address) string {
	return bookAllowancePrefix + owner.Hex() + ":" + spender.Hex()
}

// readAmount reads a decimal counter, missing means zero.
func (b *Book) readAmount(key string) (Amount, error) {
	ptr, err := b.state.Get(key)
	if err != nil {
		return 0, err
	}
	if ptr == nil || *ptr == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(*ptr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt amount under %q: %w", key, err)
	}
	return Amount(n), nil
}

func writeAmount(batch *Batch, key string, v Amount) {
	if v == 0 {
		batch.Delete(key)
		return
	}
	batch.Set(key, strconv.FormatInt(int64(v), 10))
}

// Mint credits fresh tokens to owner.
func (b *Book) Mint(_ context.Context, owner common.Address, amount Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal, err := b.readAmount(balanceKey(owner))
	if err != nil {
		return err
	}
	supply, err := b.readAmount(bookSupplyKey)
	if err != nil {
		return err
	}
	newSupply, ok := AddAmounts(supply, amount)
	if !ok {
		return ErrAmountOverflow
	}
	// balances never exceed supply, so this one cannot wrap once supply fits
	batch := NewBatch()
	writeAmount(batch, balanceKey(owner), bal+amount)
	writeAmount(batch, bookSupplyKey, newSupply)
	return b.state.Apply(batch)
}

// TotalSupply sums everything ever minted.
func (b *Book) TotalSupply(_ context.Context) (Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readAmount(bookSupplyKey)
}

func (b *Book) BalanceOf(_ context.Context, owner common.Address) (Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readAmount(balanceKey(owner))
}

func (b *Book) Allowance(_ context.Context, owner, spender common.Address) (Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readAmount(allowanceKey(owner, spender))
}

func (b *Book) Approve(_ context.Context, owner, spender common.Address, amount Amount) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := NewBatch()
	writeAmount(batch, allowanceKey(owner, spender), amount)
	return b.state.Apply(batch)
}

func (b *Book) Transfer(_ context.Context, from, to common.Address, amount Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := NewBatch()
	if err := b.move(batch, from, to, amount); err != nil {
		return err
	}
	return b.state.Apply(batch)
}

func (b *Book) TransferFrom(_ context.Context, spender, owner, recipient common.Address, amount Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	allowed, err := b.readAmount(allowanceKey(owner, spender))
	if err != nil {
		return err
	}
	if allowed < amount {
		return fmt.Errorf("%w: have %d need %d", ErrInsufficientAllowance, allowed, amount)
	}
	batch := NewBatch()
	if err := b.move(batch, owner, recipient, amount); err != nil {
		return err
	}
	writeAmount(batch, allowanceKey(owner, spender), allowed-amount)
	return b.state.Apply(batch)
}

// move stages a balance transfer, callers hold the lock.
func (b *Book) move(batch *Batch, from, to common.Address, amount Amount) error {
	fromBal, err := b.readAmount(balanceKey(from))
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: have %d need %d", ErrInsufficientFunds, fromBal, amount)
	}
	if from == to {
		return nil
	}
	toBal, err := b.readAmount(balanceKey(to))
	if err != nil {
		return err
	}
	writeAmount(batch, balanceKey(from), fromBal-amount)
	writeAmount(batch, balanceKey(to), toBal+amount)
	return nil
}
