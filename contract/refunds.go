package contract

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ganjes_dao/contract/dao"
)

// RefundEntry is one investor paid back.
type RefundEntry struct {
	Voter  common.Address
	Amount Amount
}

// RefundReport summarizes a batch refund.
type RefundReport struct {
	ProposalID uint64
	Refunded   []RefundEntry
	Total      Amount
	// Pending counts voters still owed after this call.
	Pending uint64
}

func requireRefundable(p *Proposal) error {
	if !p.Executed {
		return fail(ErrProposalNotExecuted, "proposal %d has not been executed", p.ID)
	}
	if p.Passed {
		return fail(ErrProposalPassed, "proposal %d passed, investments were paid out", p.ID)
	}
	return nil
}

// RefundInvestments pays back every unrefunded investor of a failed proposal.
// Each voter is its own commit; the batch stops at the first ledger failure and
// the voters already paid stay marked.
func (e *Engine) RefundInvestments(ctx context.Context, caller common.Address, proposalID uint64) (*RefundReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := loadProposal(newDiff(e.state), proposalID)
	if err != nil {
		return nil, e.reject("refundInvestments", err)
	}
	if err := requireRefundable(p); err != nil {
		return nil, e.reject("refundInvestments", err)
	}
	report := &RefundReport{ProposalID: proposalID}
	total := p.Voters()
	for slot := uint64(0); slot < total; slot++ {
		t := e.begin()
		v, err := voterAt(t.d, proposalID, slot)
		if err != nil {
			return report, err
		}
		if v.Refunded {
			continue
		}
		if err := e.refundVote(ctx, t, v); err != nil {
			report.Pending = e.countPending(proposalID, total)
			return report, e.reject("refundInvestments", err)
		}
		if err := t.commit(ctx); err != nil {
			return report, err
		}
		report.Refunded = append(report.Refunded, RefundEntry{Voter: v.Voter, Amount: v.Investment})
		report.Total += v.Investment
	}
	e.log.Info("investments refunded",
		zap.Uint64("id", proposalID),
		zap.Int("voters", len(report.Refunded)),
		zap.Stringer("total", report.Total),
		zap.String("caller", caller.Hex()),
	)
	return report, nil
}

func (e *Engine) countPending(proposalID, total uint64) uint64 {
	d := newDiff(e.state)
	var n uint64
	for slot := uint64(0); slot < total; slot++ {
		v, err := voterAt(d, proposalID, slot)
		if err != nil || !v.Refunded {
			n++
		}
	}
	return n
}

// ClaimRefund is the per voter variant of RefundInvestments.
func (e *Engine) ClaimRefund(ctx context.Context, caller common.Address, proposalID uint64) (Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	amount, err := e.claimRefund(ctx, t, caller, proposalID)
	if err != nil {
		return 0, e.reject("claimRefund", err)
	}
	if err := t.commit(ctx); err != nil {
		return 0, err
	}
	return amount, nil
}

func (e *Engine) claimRefund(ctx context.Context, t *txn, caller common.Address, id uint64) (Amount, error) {
	p, err := loadProposal(t.d, id)
	if err != nil {
		return 0, err
	}
	if err := requireRefundable(p); err != nil {
		return 0, err
	}
	v, err := loadVote(t.d, id, caller)
	if err != nil {
		return 0, err
	}
	if v == nil || !v.HasVoted {
		return 0, fail(ErrNoInvestment, "%s has no investment in proposal %d", caller.Hex(), id)
	}
	if v.Refunded {
		return 0, fail(ErrAlreadyRefunded, "%s was already refunded for proposal %d", caller.Hex(), id)
	}
	if err := e.refundVote(ctx, t, v); err != nil {
		return 0, err
	}
	return v.Investment, nil
}

// refundVote pays one investment back and marks it. The transfer comes first;
// on failure nothing is staged.
func (e *Engine) refundVote(ctx context.Context, t *txn, v *Vote) error {
	acc, err := loadAccounting(t.d)
	if err != nil {
		return err
	}
	if err := e.pay(ctx, v.Voter, v.Investment); err != nil {
		return err
	}
	v.Refunded = true
	saveVote(t.d, v)
	releaseInvestment(acc, v.Investment)
	saveAccounting(t.d, acc)
	t.emit(dao.InvestmentRefunded{ProposalID: v.ProposalID, Voter: v.Voter, Amount: v.Investment})
	amount := v.Investment
	t.onCommit(func() { e.metrics.refundPaid(amount) })
	return nil
}

// RefundProposalFee returns the creation fee of a failed proposal when the fee
// policy allows it. Proposer or any admin may trigger it.
func (e *Engine) RefundProposalFee(ctx context.Context, caller common.Address, proposalID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	if err := e.refundProposalFee(ctx, t, caller, proposalID); err != nil {
		return e.reject("refundProposalFee", err)
	}
	return t.commit(ctx)
}

func (e *Engine) refundProposalFee(ctx context.Context, t *txn, caller common.Address, id uint64) error {
	status, err := loadStatus(t.d)
	if err != nil {
		return err
	}
	if !status.FeeRefundable {
		return fail(ErrFeeNotRefundable, "creation fees are not refundable")
	}
	p, err := loadProposal(t.d, id)
	if err != nil {
		return err
	}
	if caller != p.Proposer {
		if err := requireAdmin(t.d, caller); err != nil {
			return fail(ErrNotProposer, "only the proposer or an admin may refund the fee of proposal %d", id)
		}
	}
	if err := requireRefundable(p); err != nil {
		return err
	}
	if p.DepositRefunded {
		return fail(ErrFeeAlreadyRefunded, "fee of proposal %d was already refunded", id)
	}
	if p.CreationFee <= 0 {
		return fail(ErrInvalidAmount, "proposal %d paid no creation fee", id)
	}
	acc, err := loadAccounting(t.d)
	if err != nil {
		return err
	}
	if !removeTreasuryFunds(acc, p.CreationFee) {
		return fail(ErrInsufficientFunds, "treasury holds %d, fee is %d", acc.Treasury, p.CreationFee)
	}
	if err := e.pay(ctx, p.Proposer, p.CreationFee); err != nil {
		return err
	}
	acc.FeesRefunded += p.CreationFee
	saveAccounting(t.d, acc)
	p.DepositRefunded = true
	saveProposal(t.d, p)
	t.emit(dao.ProposalFeeRefunded{ProposalID: id, Proposer: p.Proposer, Amount: p.CreationFee})
	return nil
}
