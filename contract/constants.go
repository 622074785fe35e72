package contract

import "time"

// -----------------------------------------------------------------------------
// Text Limits
// -----------------------------------------------------------------------------

const (
	MaxDescriptionLength = 1000
	MaxProjectNameLength = 100
	MaxURLLength         = 500
	MaxJustification     = 500
)

// -----------------------------------------------------------------------------
// Default/Fallback Values
// -----------------------------------------------------------------------------

const (
	FallbackMinInvestmentAmount  = 10
	FallbackMinTokensForProposal = 100
	FallbackProposalCreationFee  = 10
	FallbackVotingDuration       = 7 * 24 * time.Hour
	FallbackMinQuorumPercent     = 50
	FallbackMaxProposalsPerUser  = 10
	FallbackProposalCooldown     = time.Hour

	FallbackMinFundingGoal    = 10
	FallbackMaxFundingGoal    = 1_000_000
	FallbackSafetyFloor       = time.Minute
	FallbackMinVotingDuration = time.Minute
	FallbackMaxVotingDuration = 30 * 24 * time.Hour
	FallbackApprovalWindow    = 7 * 24 * time.Hour
	FallbackMinVoters         = 2
)

// -----------------------------------------------------------------------------
// Counter Keys
// -----------------------------------------------------------------------------

const (
	// ProposalsCount holds the last assigned proposal id.
	ProposalsCount = "count:props"
	// MultiSigCount holds the last assigned multisig proposal id.
	MultiSigCount = "count:ms"
	// ParamProposalsCount holds the last assigned parameter proposal id.
	ParamProposalsCount = "count:gp"
	// EventsCount numbers emitted events.
	EventsCount = "count:ev"
	// InvestorsCount counts distinct addresses that ever voted.
	InvestorsCount = "count:inv"
)

// -----------------------------------------------------------------------------
// Storage Key Prefixes
// -----------------------------------------------------------------------------

const (
	// kGenesis marks an initialized store and holds the immutable Settings.
	kGenesis byte = 0x01
	// kParams stores the governance parameter singleton.
	kParams byte = 0x02
	// kAccounting tracks treasury, locked and funded totals.
	kAccounting byte = 0x03
	// kStatus holds the pause switch and fee policy.
	kStatus byte = 0x04
	// kAdmins lists admin addresses in the order they were added.
	kAdmins byte = 0x05
	// kRole maps an address to its Role.
	kRole byte = 0x06
	// kProposalMeta contains encoded Proposal records.
	kProposalMeta byte = 0x10
	// kOpenProposals counts unexecuted proposals per proposer.
	kOpenProposals byte = 0x11
	// kLastProposal stores the unix time of a proposer's latest proposal.
	kLastProposal byte = 0x12
	// kVoteReceipt stores one Vote per proposal and voter.
	kVoteReceipt byte = 0x20
	// kVoterSlot lists voters of a proposal by arrival order.
	kVoterSlot byte = 0x21
	// kMultiSig stores multisig proposals.
	kMultiSig byte = 0x30
	// kParamProposal stores parameter proposals.
	kParamProposal byte = 0x31
)
