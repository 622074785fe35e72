package contract_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganjes_dao/contract"
	"ganjes_dao/contract/dao"
	"ganjes_dao/sdk"
)

// =============================================================================
// Multisig Tests
// =============================================================================

// TestPauseNeedsTwoApprovals checks the second approval of a 2 of 3 gate pauses the engine.
func TestPauseNeedsTwoApprovals(t *testing.T) {
	f := setup(t)
	id, err := f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionPause, 0, sdk.ZeroAddress)
	require.NoError(t, err)

	ms, err := f.engine.MultiSigProposal(id)
	require.NoError(t, err)
	assert.Equal(t, contract.GateProposed, ms.State)
	assert.Equal(t, []common.Address{admin1}, ms.Approvals)
	status, err := f.engine.ContractStatus()
	require.NoError(t, err)
	assert.False(t, status.Paused)

	require.NoError(t, f.engine.ApproveMultiSigProposal(ctx, admin2, id))
	ms, err = f.engine.MultiSigProposal(id)
	require.NoError(t, err)
	assert.Equal(t, contract.GateExecuted, ms.State)
	status, err = f.engine.ContractStatus()
	require.NoError(t, err)
	assert.True(t, status.Paused)
	assert.EqualValues(t, 1, status.MultiSigCount)

	assert.Equal(t, []string{
		dao.KindMultiSigProposalCreated,
		dao.KindMultiSigApproved,
		dao.KindMultiSigApproved,
		dao.KindPaused,
		dao.KindMultiSigExecuted,
	}, f.sink.Kinds())

	err = f.engine.ApproveMultiSigProposal(ctx, admin3, id)
	require.ErrorIs(t, err, contract.ErrNotPending)
}

// TestPauseBlocksIntake checks create, vote and deposit are refused while execution stays open.
func TestPauseBlocksIntake(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 100)
	f.vote(t, investor1, id, true, 100)
	f.multisig(t, contract.ActionPause, 0, sdk.ZeroAddress)

	_, err := f.engine.CreateProposal(ctx, investor2, contract.ProposalInput{Description: "d", ProjectName: "n", FundingGoal: 100})
	require.ErrorIs(t, err, contract.ErrPaused)
	err = f.engine.Vote(ctx, investor2, id, true, 20)
	require.ErrorIs(t, err, contract.ErrPaused)
	err = f.engine.Deposit(ctx, investor2, 20)
	require.ErrorIs(t, err, contract.ErrPaused)
	req, err := f.engine.CheckProposalRequirements(ctx, investor2)
	require.NoError(t, err)
	assert.True(t, req.Paused)
	assert.False(t, req.CanCreateProposal)

	f.closeVoting(t, id)
	res, err := f.engine.ExecuteProposal(ctx, outsider, id)
	require.NoError(t, err)
	assert.True(t, res.Passed)

	// pausing twice fails the action but keeps the approval
	again, err := f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionPause, 0, sdk.ZeroAddress)
	require.NoError(t, err)
	err = f.engine.ApproveMultiSigProposal(ctx, admin2, again)
	require.ErrorIs(t, err, contract.ErrPaused)
	ms, err := f.engine.MultiSigProposal(again)
	require.NoError(t, err)
	assert.Equal(t, contract.GateApproved, ms.State)
	assert.Len(t, ms.Approvals, 2)
	assert.NotEmpty(t, ms.LastError)

	f.multisig(t, contract.ActionUnpause, 0, sdk.ZeroAddress)
	require.NoError(t, f.engine.Deposit(ctx, investor2, 20))
}

// TestWithdrawOnlyFromTreasury checks locked investments are out of reach and a retry works.
func TestWithdrawOnlyFromTreasury(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 200)
	f.vote(t, investor1, id, true, 150)

	ms, err := f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionWithdraw, 50, investor3)
	require.NoError(t, err)
	err = f.engine.ApproveMultiSigProposal(ctx, admin2, ms)
	require.ErrorIs(t, err, contract.ErrInsufficientFunds)
	var detail *contract.Error
	require.ErrorAs(t, err, &detail)
	assert.EqualValues(t, 40, detail.Shortfall)
	assert.EqualValues(t, 1000, f.balance(t, investor3))
	f.requireCustody(t)

	require.NoError(t, f.engine.Deposit(ctx, investor2, 40))
	err = f.engine.ExecuteMultiSigProposal(ctx, outsider, ms)
	require.ErrorIs(t, err, contract.ErrNotAdmin)
	require.NoError(t, f.engine.ExecuteMultiSigProposal(ctx, admin3, ms))
	assert.EqualValues(t, 1050, f.balance(t, investor3))

	err = f.engine.ExecuteMultiSigProposal(ctx, admin3, ms)
	require.ErrorIs(t, err, contract.ErrNotPending)

	acc, err := f.engine.Accounting()
	require.NoError(t, err)
	assert.Zero(t, acc.Treasury)
	assert.EqualValues(t, 150, acc.Locked)
	assert.EqualValues(t, 50, acc.Withdrawn)
	assert.EqualValues(t, 40, acc.Deposited)
	f.requireCustody(t)

	withdrawn := dao.Find[dao.Withdrawn](f.sink)
	require.Len(t, withdrawn, 1)
	assert.Equal(t, dao.Withdrawn{MultiSigID: ms, To: investor3, Amount: 50}, withdrawn[0])
}

// TestRejectMultiSig checks the proposal closes once the threshold is unreachable.
func TestRejectMultiSig(t *testing.T) {
	f := setup(t)
	id, err := f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionPause, 0, sdk.ZeroAddress)
	require.NoError(t, err)

	err = f.engine.RejectMultiSigProposal(ctx, admin1, id)
	require.ErrorIs(t, err, contract.ErrAlreadyApproved)

	require.NoError(t, f.engine.RejectMultiSigProposal(ctx, admin2, id))
	ms, err := f.engine.MultiSigProposal(id)
	require.NoError(t, err)
	assert.Equal(t, contract.GateProposed, ms.State)

	err = f.engine.RejectMultiSigProposal(ctx, admin2, id)
	require.ErrorIs(t, err, contract.ErrAlreadyRejected)

	require.NoError(t, f.engine.RejectMultiSigProposal(ctx, admin3, id))
	ms, err = f.engine.MultiSigProposal(id)
	require.NoError(t, err)
	assert.Equal(t, contract.GateRejected, ms.State)

	err = f.engine.ApproveMultiSigProposal(ctx, admin2, id)
	require.ErrorIs(t, err, contract.ErrNotPending)
	status, err := f.engine.ContractStatus()
	require.NoError(t, err)
	assert.False(t, status.Paused)
}

// TestMultiSigExpires checks approvals after the window are refused.
func TestMultiSigExpires(t *testing.T) {
	f := setup(t)
	id, err := f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionPause, 0, sdk.ZeroAddress)
	require.NoError(t, err)
	f.clock.Advance(7*24*time.Hour + time.Second)

	err = f.engine.ApproveMultiSigProposal(ctx, admin2, id)
	require.ErrorIs(t, err, contract.ErrApprovalExpired)
	ms, err := f.engine.MultiSigProposal(id)
	require.NoError(t, err)
	assert.Equal(t, contract.GateExpired, ms.State)
}

// TestMultiSigChecks covers authorization and argument validation at creation.
func TestMultiSigChecks(t *testing.T) {
	f := setup(t)
	_, err := f.engine.CreateMultiSigProposal(ctx, investor1, contract.ActionPause, 0, sdk.ZeroAddress)
	require.ErrorIs(t, err, contract.ErrNotAdmin)
	_, err = f.engine.CreateMultiSigProposal(ctx, admin1, contract.MultiSigAction(99), 0, sdk.ZeroAddress)
	require.ErrorIs(t, err, contract.ErrUnknownAction)
	_, err = f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionWithdraw, 0, investor1)
	require.ErrorIs(t, err, contract.ErrInvalidAmount)
	_, err = f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionAddAdmin, 0, sdk.ZeroAddress)
	require.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionDecreaseVotingDuration, 1, sdk.MustAddress("0xff00000000000000000000000000000000000001"))
	require.ErrorIs(t, err, contract.ErrInvalidDuration)

	_, err = contract.ParseMultiSigAction("selfDestruct")
	require.ErrorIs(t, err, contract.ErrUnknownAction)
	action, err := contract.ParseMultiSigAction("setFeeRefundable")
	require.NoError(t, err)
	assert.Equal(t, contract.ActionSetFeeRefundable, action)
}

// TestAddAdmin checks the new admin can take part in the gate right away.
func TestAddAdmin(t *testing.T) {
	f := setup(t)
	f.multisig(t, contract.ActionAddAdmin, 0, investor3)

	ok, err := f.engine.IsAdmin(investor3)
	require.NoError(t, err)
	assert.True(t, ok)
	admins, err := f.engine.Admins()
	require.NoError(t, err)
	assert.Len(t, admins, 4)
	assert.Equal(t, investor3, admins[3])

	id, err := f.engine.CreateMultiSigProposal(ctx, investor3, contract.ActionAddAdmin, 0, admin1)
	require.NoError(t, err)
	err = f.engine.ApproveMultiSigProposal(ctx, admin2, id)
	require.ErrorIs(t, err, contract.ErrAlreadyAdmin)
}

// TestSingleApprovalRunsOnCreate checks a threshold of one acts immediately.
func TestSingleApprovalRunsOnCreate(t *testing.T) {
	f := setup(t, func(g *contract.Genesis) { g.Settings.RequiredApprovals = 1 })
	id, err := f.engine.CreateMultiSigProposal(ctx, admin3, contract.ActionSetFeeRefundable, 1, sdk.ZeroAddress)
	require.NoError(t, err)
	ms, err := f.engine.MultiSigProposal(id)
	require.NoError(t, err)
	assert.Equal(t, contract.GateExecuted, ms.State)

	changed := dao.Find[dao.FeePolicyChanged](f.sink)
	require.Len(t, changed, 1)
	assert.True(t, changed[0].Refundable)

	// a failing action still stores the proposal and returns its id
	id, err = f.engine.CreateMultiSigProposal(ctx, admin3, contract.ActionUnpause, 0, sdk.ZeroAddress)
	require.ErrorIs(t, err, contract.ErrNotPaused)
	require.NotZero(t, id)
	ms, err = f.engine.MultiSigProposal(id)
	require.NoError(t, err)
	assert.Equal(t, contract.GateApproved, ms.State)
}

// TestMultiSigProposalActions checks duration and execute actions route to the engine.
func TestMultiSigProposalActions(t *testing.T) {
	f := setup(t)
	id := f.createProposal(t, 100)
	f.vote(t, investor1, id, true, 100)
	p, err := f.engine.Proposal(id)
	require.NoError(t, err)

	f.multisig(t, contract.ActionDecreaseVotingDuration, id, sdk.SecondsToAddress(6*24*3600))
	p2, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, p.EndTime-6*24*3600, p2.EndTime)

	f.multisig(t, contract.ActionIncreaseVotingDuration, id, sdk.SecondsToAddress(3600))
	p3, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, p2.EndTime+3600, p3.EndTime)

	// resolving early fails, the approval sticks and a later retry resolves it
	ms, err := f.engine.CreateMultiSigProposal(ctx, admin1, contract.ActionExecuteProposal, id, sdk.ZeroAddress)
	require.NoError(t, err)
	err = f.engine.ApproveMultiSigProposal(ctx, admin2, ms)
	require.ErrorIs(t, err, contract.ErrVotingNotEnded)

	f.closeVoting(t, id)
	require.NoError(t, f.engine.ExecuteMultiSigProposal(ctx, admin1, ms))
	p4, err := f.engine.Proposal(id)
	require.NoError(t, err)
	assert.True(t, p4.Executed)
	assert.True(t, p4.Passed)
	assert.EqualValues(t, 1090, f.balance(t, proposer))
	f.requireCustody(t)
}
