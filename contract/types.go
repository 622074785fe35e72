package contract

import (
	"github.com/ethereum/go-ethereum/common"

	"ganjes_dao/sdk"
)

// Amount is re-exported so callers of this package rarely need sdk.
type Amount = sdk.Amount

// Proposal is a funding request with a bounded voting window.
type Proposal struct {
	ID                uint64
	Proposer          common.Address
	Description       string
	ProjectName       string
	ProjectURL        string
	FundingGoal       Amount
	CreationFee       Amount
	CreatedAt         int64
	EndTime           int64
	TotalVotesFor     Amount
	TotalVotesAgainst Amount
	TotalInvested     Amount
	VotersFor         uint64
	VotersAgainst     uint64
	Executed          bool
	Passed            bool
	DepositRefunded   bool
	ExecutedAt        int64
	FundsReleased     Amount
	Tx                string
}

// Voters is the number of distinct addresses that voted.
func (p *Proposal) Voters() uint64 { return p.VotersFor + p.VotersAgainst }

// Active reports whether votes are still accepted at now.
func (p *Proposal) Active(now int64) bool { return !p.Executed && now < p.EndTime }

// Resolvable reports whether executeProposal may run at now.
func (p *Proposal) Resolvable(now int64) bool { return !p.Executed && now >= p.EndTime }

// Status derives the lifecycle state.
func (p *Proposal) Status(now int64) ProposalStatus {
	switch {
	case p.Executed && p.Passed:
		return StatusPassed
	case p.Executed:
		return StatusFailed
	case now >= p.EndTime:
		return StatusResolvable
	default:
		return StatusActive
	}
}

// ProposalStatus captures a proposal's lifecycle.
type ProposalStatus uint8

const (
	StatusUnspecified ProposalStatus = 0
	StatusActive      ProposalStatus = 1
	StatusResolvable  ProposalStatus = 2
	StatusPassed      ProposalStatus = 3
	StatusFailed      ProposalStatus = 4
)

// String prints the status as lower-case text for views and logs.
func (s ProposalStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusResolvable:
		return "resolvable"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// Vote is the receipt for one (proposal, voter) pair. Investment is what got
// locked, Weight is the voter's whole balance when the vote was cast.
type Vote struct {
	ProposalID uint64
	Voter      common.Address
	Investment Amount
	Weight     Amount
	Support    bool
	HasVoted   bool
	Refunded   bool
	VotedAt    int64
}

// ProposalInput is what a proposer submits.
type ProposalInput struct {
	Description string
	ProjectName string
	ProjectURL  string
	FundingGoal Amount
}

// Params are the governance parameters. Durations are whole seconds.
type Params struct {
	MinInvestmentAmount  Amount
	MinTokensForProposal Amount
	ProposalCreationFee  Amount
	VotingDuration       uint64
	MinQuorumPercent     uint64
	MaxProposalsPerUser  uint64
	ProposalCooldown     uint64
}

// QuorumRule selects how participation is measured. Fixed at genesis.
type QuorumRule uint8

const (
	// QuorumFundingRatio: totalInvested*100/fundingGoal >= minQuorumPercent.
	QuorumFundingRatio QuorumRule = 1
	// QuorumVoterCount: votersFor+votersAgainst >= MinVoters.
	QuorumVoterCount QuorumRule = 2
)

func (q QuorumRule) String() string {
	switch q {
	case QuorumFundingRatio:
		return "funding_ratio"
	case QuorumVoterCount:
		return "voter_count"
	default:
		return "unknown"
	}
}

// ParseQuorumRule maps config text onto the enum.
func ParseQuorumRule(s string) (QuorumRule, bool) {
	switch s {
	case "", "funding_ratio":
		return QuorumFundingRatio, true
	case "voter_count":
		return QuorumVoterCount, true
	default:
		return 0, false
	}
}

// Settings are deployment time bounds, stored once at genesis and never changed.
type Settings struct {
	MinFundingGoal    Amount
	MaxFundingGoal    Amount
	QuorumRule        QuorumRule
	MinVoters         uint64
	SafetyFloor       uint64
	MinVotingDuration uint64
	MaxVotingDuration uint64
	MultiSigWindow    uint64
	ParameterWindow   uint64
	RequiredApprovals uint64
}

// Genesis seeds an empty store.
type Genesis struct {
	Settings      Settings
	Params        Params
	Admins        []common.Address
	FeeRefundable bool
}

// Accounting splits the engine's token custody. Custody balance on the ledger
// equals Treasury + Locked.
type Accounting struct {
	Treasury      Amount
	Locked        Amount
	Funded        Amount
	FeesCollected Amount
	FeesRefunded  Amount
	Deposited     Amount
	Withdrawn     Amount
}

// Status holds the switches multisig actions flip.
type Status struct {
	Paused        bool
	FeeRefundable bool
}

// Role is an address's privilege level.
type Role uint8

const (
	RoleNone  Role = 0
	RoleAdmin Role = 1
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "none"
}
