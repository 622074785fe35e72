package contract

import (
	"github.com/ethereum/go-ethereum/common"

	"ganjes_dao/sdk"
)

// getOpenProposalCount reads how many unexecuted proposals addr has.
func getOpenProposalCount(d *diff, addr common.Address) (uint64, error) {
	return getCount(d, openProposalsKey(addr))
}

// incrementOpenProposals bumps the counter when a proposal is created.
func incrementOpenProposals(d *diff, addr common.Address) error {
	n, err := getOpenProposalCount(d, addr)
	if err != nil {
		return err
	}
	setCount(d, openProposalsKey(addr), n+1)
	return nil
}

// decrementOpenProposals lowers the counter on resolution and deletes the key at zero.
func decrementOpenProposals(d *diff, addr common.Address) error {
	n, err := getOpenProposalCount(d, addr)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	setCount(d, openProposalsKey(addr), n-1)
	return nil
}

// checkInvestmentHeadroom rejects an investment that would wrap the proposal
// tally or the locked bucket. TotalInvested bounds both sides of the tally.
func checkInvestmentHeadroom(p *Proposal, a *Accounting, amount Amount) error {
	if _, ok := sdk.AddAmounts(p.TotalInvested, amount); !ok {
		return fail(ErrInvalidAmount, "investment %d overflows the tally of proposal %d", amount, p.ID)
	}
	if _, ok := sdk.AddAmounts(a.Locked, amount); !ok {
		return fail(ErrInvalidAmount, "investment %d overflows locked investments", amount)
	}
	return nil
}

// lockInvestment moves an incoming vote investment into the locked bucket.
// Callers run checkInvestmentHeadroom first.
func lockInvestment(a *Accounting, amount Amount) {
	a.Locked += amount
}

// releaseInvestment takes amount out of the locked bucket on payout or refund.
func releaseInvestment(a *Accounting, amount Amount) {
	a.Locked -= amount
	if a.Locked < 0 {
		a.Locked = 0
	}
}
