package contract_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ganjes_dao/contract"
	"ganjes_dao/contract/dao"
	"ganjes_dao/sdk"
)

const defaultTimestamp = "2025-09-03T00:00:00"

var (
	engineAddress = sdk.MustAddress("0x0000000000000000000000000000000000000d40")
	admin1        = sdk.MustAddress("0x00000000000000000000000000000000000000a1")
	admin2        = sdk.MustAddress("0x00000000000000000000000000000000000000a2")
	admin3        = sdk.MustAddress("0x00000000000000000000000000000000000000a3")
	proposer      = sdk.MustAddress("0x00000000000000000000000000000000000000b0")
	investor1     = sdk.MustAddress("0x00000000000000000000000000000000000000c1")
	investor2     = sdk.MustAddress("0x00000000000000000000000000000000000000c2")
	investor3     = sdk.MustAddress("0x00000000000000000000000000000000000000c3")
	outsider      = sdk.MustAddress("0x00000000000000000000000000000000000000e0")
)

var ctx = context.Background()

var errLedgerDown = errors.New("ledger unavailable")

// flakyLedger is the token book with switchable failures.
type flakyLedger struct {
	*sdk.Book
	failTransferFrom bool
	failTransferTo   map[common.Address]bool
	// bottomless owners report a near-max balance and allowance, pulls from them move nothing
	bottomless map[common.Address]bool
}

const bottomlessBalance = sdk.Amount(math.MaxInt64 - 1000)

func (l *flakyLedger) BalanceOf(c context.Context, owner common.Address) (sdk.Amount, error) {
	if l.bottomless[owner] {
		return bottomlessBalance, nil
	}
	return l.Book.BalanceOf(c, owner)
}

func (l *flakyLedger) Allowance(c context.Context, owner, spender common.Address) (sdk.Amount, error) {
	if l.bottomless[owner] {
		return bottomlessBalance, nil
	}
	return l.Book.Allowance(c, owner, spender)
}

func (l *flakyLedger) Transfer(c context.Context, from, to common.Address, amount sdk.Amount) error {
	if l.failTransferTo[to] {
		return errLedgerDown
	}
	return l.Book.Transfer(c, from, to, amount)
}

func (l *flakyLedger) TransferFrom(c context.Context, spender, owner, recipient common.Address, amount sdk.Amount) error {
	if l.failTransferFrom {
		return errLedgerDown
	}
	if l.bottomless[owner] {
		return nil
	}
	return l.Book.TransferFrom(c, spender, owner, recipient, amount)
}

type fixture struct {
	engine *contract.Engine
	state  *sdk.MemoryState
	ledger *flakyLedger
	clock  *sdk.ManualClock
	sink   *dao.MemorySink
	start  int64
}

func defaultGenesis() *contract.Genesis {
	return &contract.Genesis{
		Settings: contract.Settings{
			MinFundingGoal:    contract.FallbackMinFundingGoal,
			MaxFundingGoal:    contract.FallbackMaxFundingGoal,
			QuorumRule:        contract.QuorumFundingRatio,
			MinVoters:         contract.FallbackMinVoters,
			SafetyFloor:       uint64(contract.FallbackSafetyFloor / time.Second),
			MinVotingDuration: uint64(contract.FallbackMinVotingDuration / time.Second),
			MaxVotingDuration: uint64(contract.FallbackMaxVotingDuration / time.Second),
			MultiSigWindow:    uint64(contract.FallbackApprovalWindow / time.Second),
			ParameterWindow:   uint64(contract.FallbackApprovalWindow / time.Second),
			RequiredApprovals: 2,
		},
		Params: contract.Params{
			MinInvestmentAmount:  contract.FallbackMinInvestmentAmount,
			MinTokensForProposal: contract.FallbackMinTokensForProposal,
			ProposalCreationFee:  contract.FallbackProposalCreationFee,
			VotingDuration:       uint64(contract.FallbackVotingDuration / time.Second),
			MinQuorumPercent:     contract.FallbackMinQuorumPercent,
			MaxProposalsPerUser:  contract.FallbackMaxProposalsPerUser,
			ProposalCooldown:     uint64(contract.FallbackProposalCooldown / time.Second),
		},
		Admins: []common.Address{admin1, admin2, admin3},
	}
}

// setup builds an engine over memory state with funded, approved accounts.
func setup(t *testing.T, tweaks ...func(*contract.Genesis)) *fixture {
	t.Helper()
	start, ok := sdk.ParseTimestamp(defaultTimestamp)
	require.True(t, ok)
	g := defaultGenesis()
	for _, tweak := range tweaks {
		tweak(g)
	}
	f := &fixture{
		state:  sdk.NewMemoryState(),
		ledger: &flakyLedger{Book: sdk.NewBook(sdk.NewMemoryState()), failTransferTo: map[common.Address]bool{}, bottomless: map[common.Address]bool{}},
		clock:  sdk.NewManualClock(start),
		sink:   dao.NewMemorySink(),
		start:  start,
	}
	e, err := contract.New(f.state, f.ledger, engineAddress, g,
		contract.WithClock(f.clock),
		contract.WithSink(f.sink),
		contract.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	f.engine = e
	for _, who := range []common.Address{proposer, investor1, investor2, investor3, admin1} {
		f.fund(t, who, 1000)
	}
	return f
}

// fund mints amount to who and approves the engine for all of it.
func (f *fixture) fund(t *testing.T, who common.Address, amount sdk.Amount) {
	t.Helper()
	require.NoError(t, f.ledger.Mint(ctx, who, amount))
	bal, err := f.ledger.BalanceOf(ctx, who)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Approve(ctx, who, engineAddress, bal))
}

func (f *fixture) balance(t *testing.T, who common.Address) sdk.Amount {
	t.Helper()
	bal, err := f.ledger.BalanceOf(ctx, who)
	require.NoError(t, err)
	return bal
}

// closeVoting moves the clock to the end of a proposal's window.
func (f *fixture) closeVoting(t *testing.T, id uint64) {
	t.Helper()
	p, err := f.engine.Proposal(id)
	require.NoError(t, err)
	f.clock.Set(p.EndTime)
}

// createProposal files a proposal by proposer with the given goal.
func (f *fixture) createProposal(t *testing.T, goal sdk.Amount) uint64 {
	t.Helper()
	id, err := f.engine.CreateProposal(ctx, proposer, contract.ProposalInput{
		Description: "Panels for the market square",
		ProjectName: "Solar Kiosk",
		ProjectURL:  "https://example.org/kiosk",
		FundingGoal: goal,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) vote(t *testing.T, who common.Address, id uint64, support bool, amount sdk.Amount) {
	t.Helper()
	require.NoError(t, f.engine.Vote(ctx, who, id, support, amount))
}

// requireCustody checks the ledger balance of the engine against its books.
func (f *fixture) requireCustody(t *testing.T) {
	t.Helper()
	acc, err := f.engine.Accounting()
	require.NoError(t, err)
	require.Equal(t, acc.Treasury+acc.Locked, f.balance(t, engineAddress), "custody mismatch %+v", acc)
}

// requireConservation checks the tally invariant on every proposal.
func (f *fixture) requireConservation(t *testing.T) {
	t.Helper()
	ids, err := f.engine.AllProposalIDs()
	require.NoError(t, err)
	for _, id := range ids {
		p, err := f.engine.Proposal(id)
		require.NoError(t, err)
		require.Equal(t, p.TotalVotesFor+p.TotalVotesAgainst, p.TotalInvested, "proposal %d", id)
	}
}

// call runs a named call like an external client would and asserts the outcome.
func (f *fixture) call(t *testing.T, method, payload string, caller common.Address, expectOK bool) (string, error) {
	t.Helper()
	ret, err := f.engine.Call(ctx, caller, method, payload)
	if expectOK {
		require.NoError(t, err, "%s(%s) failed", method, payload)
	} else {
		require.Error(t, err, "%s(%s) did not fail", method, payload)
	}
	return ret, err
}

// multisig creates an action by admin1 and approves it by admin2.
func (f *fixture) multisig(t *testing.T, action contract.MultiSigAction, value uint64, target common.Address) uint64 {
	t.Helper()
	id, err := f.engine.CreateMultiSigProposal(ctx, admin1, action, value, target)
	require.NoError(t, err)
	require.NoError(t, f.engine.ApproveMultiSigProposal(ctx, admin2, id))
	return id
}
