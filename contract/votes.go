package contract

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"ganjes_dao/contract/dao"
)

// Vote locks investment on one side of a proposal. Each address votes once per
// proposal; weight is recorded separately as the caller's balance before the lock.
func (e *Engine) Vote(ctx context.Context, caller common.Address, proposalID uint64, support bool, investment Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	if err := e.vote(ctx, t, caller, proposalID, support, investment); err != nil {
		return e.reject("vote", err)
	}
	return t.commit(ctx)
}

func (e *Engine) vote(ctx context.Context, t *txn, caller common.Address, id uint64, support bool, investment Amount) error {
	if err := requireNotPaused(t.d); err != nil {
		return err
	}
	p, err := loadProposal(t.d, id)
	if err != nil {
		return err
	}
	if p.Executed {
		return fail(ErrProposalNotActive, "proposal %d is already executed", id)
	}
	if t.now >= p.EndTime {
		return fail(ErrProposalNotActive, "voting on proposal %d closed at %d", id, p.EndTime)
	}
	if caller == p.Proposer {
		return fail(ErrProposerCannotVote, "proposer cannot vote on proposal %d", id)
	}
	prev, err := loadVote(t.d, id, caller)
	if err != nil {
		return err
	}
	if prev != nil && prev.HasVoted {
		return fail(ErrAlreadyVoted, "%s already voted on proposal %d", caller.Hex(), id)
	}
	params, err := loadParams(t.d)
	if err != nil {
		return err
	}
	if investment <= 0 {
		return fail(ErrInvalidAmount, "investment must be positive")
	}
	if investment < params.MinInvestmentAmount {
		reason := fail(ErrInvestmentTooLow, "investment %d below minimum %d", investment, params.MinInvestmentAmount)
		reason.Shortfall = params.MinInvestmentAmount - investment
		return reason
	}
	bal, err := e.balanceOf(ctx, caller)
	if err != nil {
		return err
	}
	if investment > bal {
		reason := fail(ErrInsufficientBalance, "investment %d exceeds balance %d", investment, bal)
		reason.Shortfall = investment - bal
		return reason
	}
	alw, err := e.allowanceOf(ctx, caller)
	if err != nil {
		return err
	}
	if investment > alw {
		reason := fail(ErrInsufficientAllowance, "investment %d exceeds allowance %d", investment, alw)
		reason.Shortfall = investment - alw
		return reason
	}
	acc, err := loadAccounting(t.d)
	if err != nil {
		return err
	}
	if err := checkInvestmentHeadroom(p, acc, investment); err != nil {
		return err
	}
	firstInvestment, err := isNewInvestor(t.d, caller)
	if err != nil {
		return err
	}
	if err := addIDToIndex(t.d, investorIndex(caller), id); err != nil {
		return err
	}
	if firstInvestment {
		if _, err := nextID(t.d, InvestorsCount); err != nil {
			return err
		}
	}

	if err := e.pull(ctx, caller, investment); err != nil {
		return err
	}

	v := &Vote{
		ProposalID: id,
		Voter:      caller,
		Investment: investment,
		Weight:     bal,
		Support:    support,
		HasVoted:   true,
		VotedAt:    t.now,
	}
	saveVote(t.d, v)
	t.d.Set(voterSlotKey(id, p.Voters()), string(caller.Bytes()))
	if support {
		p.TotalVotesFor += investment
		p.VotersFor++
	} else {
		p.TotalVotesAgainst += investment
		p.VotersAgainst++
	}
	p.TotalInvested = p.TotalVotesFor + p.TotalVotesAgainst
	saveProposal(t.d, p)
	lockInvestment(acc, investment)
	saveAccounting(t.d, acc)

	t.emit(dao.Voted{ProposalID: id, Voter: caller, Support: support, Investment: investment, Weight: bal})
	t.onCommit(func() { e.metrics.voteCast(investment) })
	return nil
}

func isNewInvestor(d *diff, addr common.Address) (bool, error) {
	n, err := getChunkCount(d, investorIndex(addr))
	return n == 0, err
}

// UserInvestment returns addr's vote on a proposal; HasVoted is false when none exists.
func (e *Engine) UserInvestment(proposalID uint64, addr common.Address) (*Vote, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d := newDiff(e.state)
	if _, err := loadProposal(d, proposalID); err != nil {
		return nil, err
	}
	v, err := loadVote(d, proposalID, addr)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &Vote{ProposalID: proposalID, Voter: addr}, nil
	}
	return v, nil
}

// Voters lists every vote on a proposal in arrival order.
func (e *Engine) Voters(proposalID uint64) ([]*Vote, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d := newDiff(e.state)
	p, err := loadProposal(d, proposalID)
	if err != nil {
		return nil, err
	}
	out := make([]*Vote, 0, p.Voters())
	for slot := uint64(0); slot < p.Voters(); slot++ {
		v, err := voterAt(d, proposalID, slot)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
