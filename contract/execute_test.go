package contract_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganjes_dao/contract"
	"ganjes_dao/contract/dao"
)

// =============================================================================
// Resolution Tests
// =============================================================================

// TestProposalPasses runs goal 200, fee 10, votes of 60 and 50 for: the proposer receives 110.
func TestProposalPasses(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	f.vote(t, investor1, id, true, 60)
	f.vote(t, investor2, id, true, 50)
	f.closeVoting(t, id)

	can, err := f.engine.CanExecuteProposal(id)
	require.NoError(t, err)
	assert.True(t, can)

	res, err := f.engine.ExecuteProposal(ctx, outsider, id)
	require.NoError(t, err)
	assert.True(t, res.QuorumMet)
	assert.True(t, res.Passed)
	assert.EqualValues(t, 110, res.Payout)
	assert.Equal(t, proposer, res.Recipient)

	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.True(t, p.Executed)
	assert.True(t, p.Passed)
	assert.EqualValues(t, 110, p.FundsReleased)
	assert.Equal(t, contract.StatusPassed, p.Status(f.clock.Now()))

	assert.EqualValues(t, 990+110, f.balance(t, proposer))
	acc, err := f.engine.Accounting()
	require.NoError(t, err)
	assert.Zero(t, acc.Locked)
	assert.EqualValues(t, 110, acc.Funded)
	assert.EqualValues(t, 10, acc.Treasury)
	f.requireCustody(t)

	// no refund path for the investors of a passed proposal
	_, err = f.engine.RefundInvestments(ctx, outsider, id)
	require.ErrorIs(t, err, contract.ErrProposalPassed)
	_, err = f.engine.ClaimRefund(ctx, investor1, id)
	require.ErrorIs(t, err, contract.ErrProposalPassed)

	executed := dao.Find[dao.ProposalExecuted](f.sink)
	require.Len(t, executed, 1)
	assert.Equal(t, dao.ProposalExecuted{ProposalID: id, Passed: true, Payout: 110}, executed[0])
}

// TestProposalFailsQuorum runs a 5 token turnout against 20% of a 200 goal.
func TestProposalFailsQuorum(t *testing.T) {
	f := setup(t, func(g *contract.Genesis) {
		g.Params.MinInvestmentAmount = 1
		g.Params.MinQuorumPercent = 20
	})
	id := f.createProposal(t, 200)
	f.vote(t, investor1, id, true, 3)
	f.vote(t, investor2, id, true, 2)
	f.closeVoting(t, id)

	res, err := f.engine.ExecuteProposal(ctx, outsider, id)
	require.NoError(t, err)
	assert.False(t, res.QuorumMet)
	assert.False(t, res.Passed)
	assert.Zero(t, res.Payout)
	assert.EqualValues(t, 990, f.balance(t, proposer))

	rep, err := f.engine.RefundInvestments(ctx, outsider, id)
	require.NoError(t, err)
	assert.EqualValues(t, 5, rep.Total)
	require.Len(t, rep.Refunded, 2)
	assert.EqualValues(t, 1000, f.balance(t, investor1))
	assert.EqualValues(t, 1000, f.balance(t, investor2))

	again, err := f.engine.RefundInvestments(ctx, outsider, id)
	require.NoError(t, err)
	assert.Empty(t, again.Refunded)
	assert.Zero(t, again.Total)
	assert.EqualValues(t, 1000, f.balance(t, investor1))
	f.requireCustody(t)
}

// TestMajorityDecides checks a met quorum still fails when against outweighs for.
func TestMajorityDecides(t *testing.T) {
	tests := []struct {
		name       string
		forAmt     int64
		againstAmt int64
		passed     bool
	}{
		{"for wins", 80, 40, true},
		{"tie fails", 60, 60, false},
		{"against wins", 30, 90, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			id := f.createProposal(t, 100)
			f.vote(t, investor1, id, true, contract.Amount(tt.forAmt))
			f.vote(t, investor2, id, false, contract.Amount(tt.againstAmt))
			f.closeVoting(t, id)
			res, err := f.engine.ExecuteProposal(ctx, outsider, id)
			require.NoError(t, err)
			assert.True(t, res.QuorumMet)
			assert.Equal(t, tt.passed, res.Passed)
			f.requireCustody(t)
		})
	}
}

// TestQuorumRules runs the same votes under both quorum definitions.
func TestQuorumRules(t *testing.T) {
	tests := []struct {
		name   string
		rule   contract.QuorumRule
		votes  []int64
		passed bool
	}{
		// one large vote meets the funding ratio but not the voter count
		{"funding ratio, one whale", contract.QuorumFundingRatio, []int64{150}, true},
		{"voter count, one whale", contract.QuorumVoterCount, []int64{150}, false},
		// two small votes miss the funding ratio but meet the voter count
		{"funding ratio, two small", contract.QuorumFundingRatio, []int64{10, 10}, false},
		{"voter count, two small", contract.QuorumVoterCount, []int64{10, 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, func(g *contract.Genesis) { g.Settings.QuorumRule = tt.rule })
			id := f.createProposal(t, 200)
			voters := []common.Address{investor1, investor2}
			for i, amt := range tt.votes {
				require.NoError(t, f.engine.Vote(ctx, voters[i], id, true, contract.Amount(amt)))
			}
			f.closeVoting(t, id)
			res, err := f.engine.ExecuteProposal(ctx, outsider, id)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, res.Passed)
		})
	}
}

// TestExecuteBeforeEnd checks early execution is refused without any change.
func TestExecuteBeforeEnd(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	f.vote(t, investor1, id, true, 150)
	f.clock.Advance(24 * time.Hour)

	_, err := f.engine.ExecuteProposal(ctx, outsider, id)
	require.ErrorIs(t, err, contract.ErrVotingNotEnded)
	assert.Equal(t, contract.KindState, contract.KindOf(err))
	var detail *contract.Error
	require.ErrorAs(t, err, &detail)
	assert.EqualValues(t, 6*24*3600, detail.Remaining)

	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.False(t, p.Executed)
	assert.EqualValues(t, 990, f.balance(t, proposer))
	assert.Empty(t, f.engine.ResolvableProposals(0))
}

// TestExecuteOnce checks the second execution fails and moves nothing.
func TestExecuteOnce(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	f.vote(t, investor1, id, true, 150)
	f.closeVoting(t, id)
	_, err := f.engine.ExecuteProposal(ctx, outsider, id)
	require.NoError(t, err)
	after := f.balance(t, proposer)

	_, err = f.engine.ExecuteProposal(ctx, investor2, id)
	require.ErrorIs(t, err, contract.ErrAlreadyExecuted)
	assert.Equal(t, after, f.balance(t, proposer))
	assert.Len(t, dao.Find[dao.ProposalExecuted](f.sink), 1)
}

// TestExecutePayoutFails checks a reverting payout leaves the proposal resolvable.
func TestExecutePayoutFails(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	f.vote(t, investor1, id, true, 150)
	f.closeVoting(t, id)

	f.ledger.failTransferTo[proposer] = true
	_, err := f.engine.ExecuteProposal(ctx, outsider, id)
	require.ErrorIs(t, err, contract.ErrLedger)
	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.False(t, p.Executed)
	assert.Equal(t, []uint64{id}, f.engine.ResolvableProposals(0))
	f.requireCustody(t)

	delete(f.ledger.failTransferTo, proposer)
	res, err := f.engine.ExecuteProposal(ctx, outsider, id)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	f.requireCustody(t)
}

// TestExecuteDue checks the keeper sweep resolves only closed proposals, oldest first.
func TestExecuteDue(t *testing.T) {
	f := setup(t, func(g *contract.Genesis) { g.Params.ProposalCooldown = 0 })
	first := f.createProposal(t, 200)
	f.clock.Advance(time.Hour)
	second := f.createProposal(t, 200)
	f.vote(t, investor1, second, true, 150)
	f.clock.Advance(7*24*time.Hour - time.Minute)
	third := f.createProposal(t, 200)

	assert.Equal(t, []uint64{first}, f.engine.ResolvableProposals(0))
	f.clock.Advance(time.Hour)
	assert.Equal(t, []uint64{first, second}, f.engine.ResolvableProposals(0))
	assert.Equal(t, []uint64{first}, f.engine.ResolvableProposals(1))
	assert.Equal(t, []uint64{third}, f.engine.ActiveProposals(0))

	results, err := f.engine.ExecuteDue(ctx, outsider, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, first, results[0].ProposalID)
	assert.NoError(t, results[0].Err)
	assert.False(t, results[0].Resolution.Passed)
	assert.Equal(t, second, results[1].ProposalID)
	assert.True(t, results[1].Resolution.Passed)
	assert.Empty(t, f.engine.ResolvableProposals(0))

	stats, err := f.engine.DAOStats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalProposals)
	assert.EqualValues(t, 1, stats.Active)
	assert.EqualValues(t, 2, stats.Executed)
	assert.EqualValues(t, 1, stats.Passed)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 150, stats.TotalFunded)
	assert.EqualValues(t, 1, stats.Investors)
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.001)
}
