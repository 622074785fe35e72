package contract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganjes_dao/contract"
	"ganjes_dao/contract/dao"
)

// =============================================================================
// Voting Tests
// =============================================================================

// TestVoteLocksInvestment checks tallies, receipt, custody and the Voted event.
func TestVoteLocksInvestment(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	f.vote(t, investor1, id, true, 60)
	f.vote(t, investor2, id, false, 25)

	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.EqualValues(t, 60, p.TotalVotesFor)
	assert.EqualValues(t, 25, p.TotalVotesAgainst)
	assert.EqualValues(t, 85, p.TotalInvested)
	assert.EqualValues(t, 1, p.VotersFor)
	assert.EqualValues(t, 1, p.VotersAgainst)

	v, err := f.engine.UserInvestment(id, investor1)
	require.NoError(t, err)
	assert.True(t, v.HasVoted)
	assert.True(t, v.Support)
	assert.EqualValues(t, 60, v.Investment)
	assert.EqualValues(t, 1000, v.Weight)
	assert.False(t, v.Refunded)

	none, err := f.engine.UserInvestment(id, investor3)
	require.NoError(t, err)
	assert.False(t, none.HasVoted)

	assert.EqualValues(t, 940, f.balance(t, investor1))
	acc, err := f.engine.Accounting()
	require.NoError(t, err)
	assert.EqualValues(t, 85, acc.Locked)
	f.requireCustody(t)
	f.requireConservation(t)

	voted := dao.Find[dao.Voted](f.sink)
	require.Len(t, voted, 2)
	assert.Equal(t, dao.Voted{ProposalID: id, Voter: investor1, Support: true, Investment: 60, Weight: 1000}, voted[0])

	voters, err := f.engine.Voters(id)
	require.NoError(t, err)
	require.Len(t, voters, 2)
	assert.Equal(t, investor1, voters[0].Voter)
	assert.Equal(t, investor2, voters[1].Voter)

	invested, err := f.engine.ProposalIDsByInvestor(investor1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, invested)
}

// TestVoteOnce checks a second vote by the same address always fails.
func TestVoteOnce(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	f.vote(t, investor1, id, true, 20)
	for _, support := range []bool{true, false} {
		err := f.engine.Vote(ctx, investor1, id, support, 30)
		require.ErrorIs(t, err, contract.ErrAlreadyVoted)
	}
	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.EqualValues(t, 20, p.TotalInvested)
	assert.EqualValues(t, 980, f.balance(t, investor1))
}

// TestProposerCannotVote checks the proposer is refused on every attempt.
func TestProposerCannotVote(t *testing.T) {
	f := setup(t, func(g *contract.Genesis) { g.Params.ProposalCooldown = 0 })
	f.createProposal(t, 200)
	latest := f.createProposal(t, 300)
	for _, id := range []uint64{1, latest} {
		err := f.engine.Vote(ctx, proposer, id, true, 50)
		require.ErrorIs(t, err, contract.ErrProposerCannotVote)
	}
}

// TestVoteChecks covers the rejection order of the voting guard.
func TestVoteChecks(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)

	err := f.engine.Vote(ctx, investor1, 99, true, 50)
	require.ErrorIs(t, err, contract.ErrProposalNotFound)

	err = f.engine.Vote(ctx, investor1, id, true, 0)
	require.ErrorIs(t, err, contract.ErrInvalidAmount)

	err = f.engine.Vote(ctx, investor1, id, true, 9)
	require.ErrorIs(t, err, contract.ErrInvestmentTooLow)

	err = f.engine.Vote(ctx, investor1, id, true, 1001)
	require.ErrorIs(t, err, contract.ErrInsufficientBalance)

	require.NoError(t, f.ledger.Approve(ctx, investor1, engineAddress, 30))
	err = f.engine.Vote(ctx, investor1, id, true, 31)
	require.ErrorIs(t, err, contract.ErrInsufficientAllowance)
	var detail *contract.Error
	require.ErrorAs(t, err, &detail)
	assert.EqualValues(t, 1, detail.Shortfall)

	f.clock.Advance(7 * 24 * time.Hour)
	err = f.engine.Vote(ctx, investor2, id, true, 50)
	require.ErrorIs(t, err, contract.ErrProposalNotActive)

	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.Zero(t, p.TotalInvested)
}

// TestVoteBeyondGoal checks "for" investment past the goal is accepted and reported.
func TestVoteBeyondGoal(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 100)
	f.vote(t, investor1, id, true, 150)

	vd, err := f.engine.ProposalVotingDetails(id)
	require.NoError(t, err)
	assert.True(t, vd.GoalReached)
	assert.True(t, vd.QuorumMet)
	assert.True(t, vd.Approved)
	assert.EqualValues(t, 150, vd.FundedPercent)
	assert.Equal(t, contract.StatusActive, vd.Status)
	assert.EqualValues(t, 7*24*3600, vd.TimeLeft)
}

// TestVotePullFails checks a reverting pull leaves no receipt and no tally.
func TestVotePullFails(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	before := len(f.sink.Records())

	f.ledger.failTransferFrom = true
	err := f.engine.Vote(ctx, investor1, id, true, 60)
	require.ErrorIs(t, err, errLedgerDown)

	v, err := f.engine.UserInvestment(id, investor1)
	require.NoError(t, err)
	assert.False(t, v.HasVoted)
	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.Zero(t, p.TotalInvested)
	invested, err := f.engine.ProposalIDsByInvestor(investor1)
	require.NoError(t, err)
	assert.Empty(t, invested)
	assert.Len(t, f.sink.Records(), before)
	f.requireCustody(t)

	f.ledger.failTransferFrom = false
	f.vote(t, investor1, id, true, 60)
}

// TestVoteTallyOverflow checks an investment that would wrap the tally is refused
// before anything is pulled, so one-sided support can never read as a loss.
func TestVoteTallyOverflow(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 500)
	f.ledger.bottomless[investor1] = true
	f.ledger.bottomless[investor2] = true

	f.vote(t, investor1, id, true, bottomlessBalance)
	err := f.engine.Vote(ctx, investor2, id, true, bottomlessBalance)
	require.ErrorIs(t, err, contract.ErrInvalidAmount)
	assert.Equal(t, contract.KindEligibility, contract.KindOf(err))

	v, err := f.engine.UserInvestment(id, investor2)
	require.NoError(t, err)
	assert.False(t, v.HasVoted)

	// a small vote still fits under the ceiling
	f.vote(t, investor3, id, true, 500)

	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, bottomlessBalance+500, p.TotalVotesFor)
	assert.Equal(t, p.TotalVotesFor, p.TotalInvested)
	assert.EqualValues(t, 2, p.VotersFor)
	acc, err := f.engine.Accounting()
	require.NoError(t, err)
	assert.Equal(t, p.TotalInvested, acc.Locked)

	vd, err := f.engine.ProposalVotingDetails(id)
	require.NoError(t, err)
	assert.True(t, vd.QuorumMet)
	assert.True(t, vd.Approved)
}
