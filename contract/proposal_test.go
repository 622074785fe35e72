package contract_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganjes_dao/contract"
	"ganjes_dao/contract/dao"
)

// =============================================================================
// Proposal Creation Tests
// =============================================================================

// TestCreateProposal checks the happy path: fee pulled, proposal stored, indexed and announced.
func TestCreateProposal(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	require.Equal(t, uint64(1), id)

	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, proposer, p.Proposer)
	assert.Equal(t, "Solar Kiosk", p.ProjectName)
	assert.EqualValues(t, 200, p.FundingGoal)
	assert.EqualValues(t, 10, p.CreationFee)
	assert.Equal(t, f.start, p.CreatedAt)
	assert.Equal(t, f.start+7*24*3600, p.EndTime)
	assert.NotEmpty(t, p.Tx)
	assert.False(t, p.Executed)

	assert.EqualValues(t, 990, f.balance(t, proposer))
	acc, err := f.engine.Accounting()
	require.NoError(t, err)
	assert.EqualValues(t, 10, acc.Treasury)
	assert.EqualValues(t, 10, acc.FeesCollected)
	f.requireCustody(t)

	ids, err := f.engine.ProposalIDsByProposer(proposer)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)

	created := dao.Find[dao.ProposalCreated](f.sink)
	require.Len(t, created, 1)
	assert.Equal(t, dao.ProposalCreated{
		ProposalID:  1,
		Proposer:    proposer,
		ProjectName: "Solar Kiosk",
		FundingGoal: 200,
		CreationFee: 10,
		EndTime:     p.EndTime,
	}, created[0])
	assert.Equal(t, uint64(1), f.sink.Records()[0].Seq)
}

// TestProposalIDsNeverReused checks ids keep counting across creators.
func TestProposalIDsNeverReused(t *testing.T) {
	f := setup(t)
	first := f.createProposal(t, 200)
	second, err := f.engine.CreateProposal(ctx, investor1, contract.ProposalInput{
		Description: "Second idea", ProjectName: "Idea", FundingGoal: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	all, err := f.engine.AllProposalIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, all)
}

// TestCreateProposalInputValidation covers the text and goal checks that run before any ledger call.
func TestCreateProposalInputValidation(t *testing.T) {
	tests := []struct {
		name string
		in   contract.ProposalInput
		want error
	}{
		{"empty description", contract.ProposalInput{ProjectName: "x", FundingGoal: 100}, contract.ErrInvalidInput},
		{"blank name", contract.ProposalInput{Description: "d", ProjectName: " \t ", FundingGoal: 100}, contract.ErrInvalidInput},
		{"long description", contract.ProposalInput{Description: strings.Repeat("a", contract.MaxDescriptionLength+1), ProjectName: "x", FundingGoal: 100}, contract.ErrInvalidInput},
		{"long name", contract.ProposalInput{Description: "d", ProjectName: strings.Repeat("n", contract.MaxProjectNameLength+1), FundingGoal: 100}, contract.ErrInvalidInput},
		{"long url", contract.ProposalInput{Description: "d", ProjectName: "x", ProjectURL: strings.Repeat("u", contract.MaxURLLength+1), FundingGoal: 100}, contract.ErrInvalidInput},
		{"goal below band", contract.ProposalInput{Description: "d", ProjectName: "x", FundingGoal: 9}, contract.ErrFundingGoalOutOfRange},
		{"goal above band", contract.ProposalInput{Description: "d", ProjectName: "x", FundingGoal: 1_000_001}, contract.ErrFundingGoalOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			_, err := f.engine.CreateProposal(ctx, proposer, tt.in)
			require.ErrorIs(t, err, tt.want)
			assert.EqualValues(t, 1000, f.balance(t, proposer))
			assert.Empty(t, f.sink.Records())
		})
	}
}

// TestCreateProposalSanitizesText checks control characters are dropped and text trimmed.
func TestCreateProposalSanitizesText(t *testing.T) {
	f := setup(t)
	id, err := f.engine.CreateProposal(ctx, proposer, contract.ProposalInput{
		Description: "  line\x00one\x1b  ",
		ProjectName: "\tKiosk\n",
		FundingGoal: 100,
	})
	require.NoError(t, err)
	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, "lineone", p.Description)
	assert.Equal(t, "Kiosk", p.ProjectName)
}

// =============================================================================
// Eligibility Tests
// =============================================================================

// TestEligibilityOrder checks the first failing reason is what creation returns.
func TestEligibilityOrder(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.ledger.Mint(ctx, outsider, 50))

	req, err := f.engine.CheckProposalRequirements(ctx, outsider)
	require.NoError(t, err)
	assert.False(t, req.CanCreateProposal)
	assert.False(t, req.HasMinTokens)
	assert.False(t, req.HasDepositTokens)
	assert.False(t, req.HasAllowance)
	assert.True(t, req.BelowMaxProposals)
	assert.True(t, req.CooldownPassed)
	assert.EqualValues(t, 110, req.RequiredBalance)
	assert.EqualValues(t, 60, req.BalanceShortfall)
	assert.EqualValues(t, 10, req.AllowanceShortfall)
	require.Len(t, req.Reasons, 2)
	assert.ErrorIs(t, req.Reasons[0], contract.ErrInsufficientTokens)
	assert.ErrorIs(t, req.Reasons[1], contract.ErrInsufficientAllowance)

	_, err = f.engine.CreateProposal(ctx, outsider, contract.ProposalInput{Description: "d", ProjectName: "n", FundingGoal: 100})
	require.ErrorIs(t, err, contract.ErrInsufficientTokens)
	var detail *contract.Error
	require.True(t, errors.As(err, &detail))
	assert.EqualValues(t, 60, detail.Shortfall)
	assert.Equal(t, contract.KindEligibility, contract.KindOf(err))

	// goal band is checked before balance
	_, err = f.engine.CreateProposal(ctx, outsider, contract.ProposalInput{Description: "d", ProjectName: "n", FundingGoal: 1})
	require.ErrorIs(t, err, contract.ErrFundingGoalOutOfRange)

	// enough tokens, allowance still missing
	require.NoError(t, f.ledger.Mint(ctx, outsider, 60))
	_, err = f.engine.CreateProposal(ctx, outsider, contract.ProposalInput{Description: "d", ProjectName: "n", FundingGoal: 100})
	require.ErrorIs(t, err, contract.ErrInsufficientAllowance)

	ok, reasons, err := f.engine.CanCreateProposal(ctx, outsider)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, reasons, 1)

	f.fund(t, outsider, 1)
	ok, reasons, err = f.engine.CanCreateProposal(ctx, outsider)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, reasons)
}

// TestCooldown checks the per-proposer cooldown and its remaining seconds.
func TestCooldown(t *testing.T) {
	f := setup(t)
	f.createProposal(t, 200)

	_, err := f.engine.CreateProposal(ctx, proposer, contract.ProposalInput{Description: "d", ProjectName: "n", FundingGoal: 100})
	require.ErrorIs(t, err, contract.ErrCooldownActive)
	var detail *contract.Error
	require.True(t, errors.As(err, &detail))
	assert.EqualValues(t, 3600, detail.Remaining)

	f.clock.Advance(20 * time.Minute)
	left, err := f.engine.TimeUntilNextProposal(proposer)
	require.NoError(t, err)
	assert.EqualValues(t, 2400, left)

	f.clock.Advance(40 * time.Minute)
	left, err = f.engine.TimeUntilNextProposal(proposer)
	require.NoError(t, err)
	assert.Zero(t, left)
	f.createProposal(t, 100)

	count, err := f.engine.ProposalCountByUser(proposer)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

// TestMaxProposalsPerUser checks outstanding proposals are capped and freed by execution.
func TestMaxProposalsPerUser(t *testing.T) {
	f := setup(t, func(g *contract.Genesis) {
		g.Params.MaxProposalsPerUser = 1
		g.Params.ProposalCooldown = 0
	})
	id := f.createProposal(t, 200)
	_, err := f.engine.CreateProposal(ctx, proposer, contract.ProposalInput{Description: "d", ProjectName: "n", FundingGoal: 100})
	require.ErrorIs(t, err, contract.ErrMaxProposalsReached)

	f.closeVoting(t, id)
	_, err = f.engine.ExecuteProposal(ctx, outsider, id)
	require.NoError(t, err)
	f.createProposal(t, 100)
}

// TestCreateProposalFeePullFails checks a reverting fee pull leaves no trace.
func TestCreateProposalFeePullFails(t *testing.T) {
	f := setup(t)
	f.ledger.failTransferFrom = true
	_, err := f.engine.CreateProposal(ctx, proposer, contract.ProposalInput{Description: "d", ProjectName: "n", FundingGoal: 100})
	require.ErrorIs(t, err, contract.ErrLedger)
	assert.Equal(t, contract.KindLedger, contract.KindOf(err))
	assert.ErrorIs(t, err, errLedgerDown)

	all, err := f.engine.AllProposalIDs()
	require.NoError(t, err)
	assert.Empty(t, all)
	left, err := f.engine.TimeUntilNextProposal(proposer)
	require.NoError(t, err)
	assert.Zero(t, left)
	assert.Empty(t, f.sink.Records())
	f.requireCustody(t)

	f.ledger.failTransferFrom = false
	assert.Equal(t, uint64(1), f.createProposal(t, 100))
}
