package contract

import (
	"context"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ganjes_dao/contract/dao"
)

// PassedCount counts proposals that resolved as passed.
const PassedCount = "count:passed"

// Resolution is the outcome of executeProposal.
type Resolution struct {
	ProposalID uint64
	QuorumMet  bool
	Passed     bool
	Payout     Amount
	Recipient  common.Address
}

// ExecuteProposal resolves a proposal whose window has closed. Anyone may call it;
// it succeeds exactly once per proposal.
func (e *Engine) ExecuteProposal(ctx context.Context, caller common.Address, proposalID uint64) (*Resolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	res, err := e.resolve(ctx, t, proposalID)
	if err != nil {
		return nil, e.reject("executeProposal", err)
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.log.Info("proposal executed",
		zap.Uint64("id", proposalID),
		zap.Bool("passed", res.Passed),
		zap.Stringer("payout", res.Payout),
		zap.String("caller", caller.Hex()),
	)
	return res, nil
}

func (e *Engine) resolve(ctx context.Context, t *txn, id uint64) (*Resolution, error) {
	p, err := loadProposal(t.d, id)
	if err != nil {
		return nil, err
	}
	if p.Executed {
		return nil, fail(ErrAlreadyExecuted, "proposal %d was executed at %d", id, p.ExecutedAt)
	}
	if t.now < p.EndTime {
		reason := fail(ErrVotingNotEnded, "proposal %d is still active for %d seconds", id, p.EndTime-t.now)
		reason.Remaining = p.EndTime - t.now
		return nil, reason
	}
	params, err := loadParams(t.d)
	if err != nil {
		return nil, err
	}
	acc, err := loadAccounting(t.d)
	if err != nil {
		return nil, err
	}
	res := &Resolution{ProposalID: id, Recipient: p.Proposer}
	res.QuorumMet = e.quorumMet(p, params)
	res.Passed = res.QuorumMet && p.TotalVotesFor > p.TotalVotesAgainst

	if err := decrementOpenProposals(t.d, p.Proposer); err != nil {
		return nil, err
	}
	if res.Passed {
		if _, err := nextID(t.d, PassedCount); err != nil {
			return nil, err
		}
		if err := e.pay(ctx, p.Proposer, p.TotalInvested); err != nil {
			return nil, err
		}
		res.Payout = p.TotalInvested
		releaseInvestment(acc, p.TotalInvested)
		acc.Funded += p.TotalInvested
		p.FundsReleased = p.TotalInvested
		saveAccounting(t.d, acc)
	}
	p.Executed = true
	p.Passed = res.Passed
	p.ExecutedAt = t.now
	saveProposal(t.d, p)

	t.dequeue(p.EndTime, id)
	t.emit(dao.ProposalExecuted{ProposalID: id, Passed: res.Passed, Payout: res.Payout})
	passed := res.Passed
	t.onCommit(func() { e.metrics.executed(passed) })
	return res, nil
}

// quorumMet applies the deployment's quorum rule.
func (e *Engine) quorumMet(p *Proposal, params *Params) bool {
	switch e.settings.QuorumRule {
	case QuorumVoterCount:
		return p.Voters() >= e.settings.MinVoters
	default:
		if p.FundingGoal <= 0 || p.TotalInvested <= 0 {
			return false
		}
		// invested*100/goal >= percent, compared as 128 bit products
		hiA, loA := bits.Mul64(uint64(p.TotalInvested), 100)
		hiB, loB := bits.Mul64(params.MinQuorumPercent, uint64(p.FundingGoal))
		return hiA > hiB || (hiA == hiB && loA >= loB)
	}
}

// CanExecuteProposal reports whether the window has closed and resolution is pending.
func (e *Engine) CanExecuteProposal(proposalID uint64) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, err := loadProposal(newDiff(e.state), proposalID)
	if err != nil {
		return false, err
	}
	return p.Resolvable(e.clock.Now()), nil
}

// ResolvableProposals lists proposals waiting for executeProposal, oldest deadline first.
func (e *Engine) ResolvableProposals(limit int) []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue.resolvable(e.clock.Now(), limit)
}

// DueResult is one entry of an ExecuteDue sweep.
type DueResult struct {
	ProposalID uint64
	Resolution *Resolution
	Err        error
}

// ExecuteDue resolves up to limit closed proposals, each in its own commit.
// A failing proposal is reported and skipped; the rest still run.
func (e *Engine) ExecuteDue(ctx context.Context, caller common.Address, limit int) ([]DueResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := e.queue.resolvable(e.clock.Now(), limit)
	out := make([]DueResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		t := e.begin()
		res, err := e.resolve(ctx, t, id)
		if err != nil {
			out = append(out, DueResult{ProposalID: id, Err: e.reject("executeDue", err)})
			continue
		}
		if err := t.commit(ctx); err != nil {
			return out, err
		}
		out = append(out, DueResult{ProposalID: id, Resolution: res})
	}
	if len(ids) > 0 {
		e.log.Info("due proposals swept", zap.Int("count", len(ids)), zap.String("caller", caller.Hex()))
	}
	return out, nil
}
