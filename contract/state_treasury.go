package contract

import (
	"fmt"

	"ganjes_dao/sdk"
)

// loadAccounting reads the custody split, zero value when nothing was stored yet.
func loadAccounting(d *diff) (*Accounting, error) {
	ptr, err := d.Get(accountingKey())
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return &Accounting{}, nil
	}
	a, err := decodeAccounting(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode accounting: %w", err)
	}
	return a, nil
}

func saveAccounting(d *diff, a *Accounting) {
	d.Set(accountingKey(), encodeAccounting(a))
}

// addTreasuryFunds credits deposits and retained fees. It checks the treasury
// and the matching running total before anything is written.
func addTreasuryFunds(a *Accounting, amount Amount, total *Amount) error {
	treasury, ok := sdk.AddAmounts(a.Treasury, amount)
	if !ok {
		return fail(ErrInvalidAmount, "amount %d overflows the treasury", amount)
	}
	sum, ok := sdk.AddAmounts(*total, amount)
	if !ok {
		return fail(ErrInvalidAmount, "amount %d overflows the running total", amount)
	}
	a.Treasury, *total = treasury, sum
	return nil
}

// removeTreasuryFunds debits the treasury, false if it cannot cover amount.
// Locked investments are never touched here.
func removeTreasuryFunds(a *Accounting, amount Amount) bool {
	if a.Treasury < amount {
		return false
	}
	a.Treasury -= amount
	return true
}

func loadStatus(d *diff) (*Status, error) {
	ptr, err := d.Get(statusKey())
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return &Status{}, nil
	}
	s, err := decodeStatus(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return s, nil
}

func saveStatus(d *diff, s *Status) {
	d.Set(statusKey(), encodeStatus(s))
}

// requireNotPaused guards calls that bring new money in.
func requireNotPaused(d *diff) error {
	st, err := loadStatus(d)
	if err != nil {
		return err
	}
	if st.Paused {
		return fail(ErrPaused, "engine is paused")
	}
	return nil
}
