package contract

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ganjes_dao/contract/dao"
)

// Deposit donates tokens to the treasury. The caller must have approved the
// engine for at least amount.
func (e *Engine) Deposit(ctx context.Context, caller common.Address, amount Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	if err := e.deposit(ctx, t, caller, amount); err != nil {
		return e.reject("deposit", err)
	}
	if err := t.commit(ctx); err != nil {
		return err
	}
	e.log.Info("treasury deposit", zap.String("from", caller.Hex()), zap.Stringer("amount", amount))
	return nil
}

func (e *Engine) deposit(ctx context.Context, t *txn, caller common.Address, amount Amount) error {
	if err := requireNotPaused(t.d); err != nil {
		return err
	}
	if amount <= 0 {
		return fail(ErrInvalidAmount, "deposit must be positive")
	}
	bal, err := e.balanceOf(ctx, caller)
	if err != nil {
		return err
	}
	if amount > bal {
		reason := fail(ErrInsufficientBalance, "deposit %d exceeds balance %d", amount, bal)
		reason.Shortfall = amount - bal
		return reason
	}
	alw, err := e.allowanceOf(ctx, caller)
	if err != nil {
		return err
	}
	if amount > alw {
		reason := fail(ErrInsufficientAllowance, "deposit %d exceeds allowance %d", amount, alw)
		reason.Shortfall = amount - alw
		return reason
	}
	acc, err := loadAccounting(t.d)
	if err != nil {
		return err
	}
	if err := addTreasuryFunds(acc, amount, &acc.Deposited); err != nil {
		return err
	}
	if err := e.pull(ctx, caller, amount); err != nil {
		return err
	}
	saveAccounting(t.d, acc)
	t.emit(dao.Deposited{From: caller, Amount: amount})
	return nil
}

// Accounting returns the committed custody split.
func (e *Engine) Accounting() (Accounting, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	acc, err := loadAccounting(newDiff(e.state))
	if err != nil {
		return Accounting{}, err
	}
	return *acc, nil
}
