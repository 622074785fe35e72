package contract

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// ProposalBasicDetails is the descriptive half of a proposal.
type ProposalBasicDetails struct {
	ID          uint64
	Proposer    common.Address
	Description string
	ProjectName string
	ProjectURL  string
	FundingGoal Amount
	CreationFee Amount
	CreatedAt   int64
	EndTime     int64
	Executed    bool
	Passed      bool
	Status      ProposalStatus
}

// ProposalVotingDetails is the tally half of a proposal plus the outcome it
// would resolve to if executed now.
type ProposalVotingDetails struct {
	ID                uint64
	TotalVotesFor     Amount
	TotalVotesAgainst Amount
	TotalInvested     Amount
	VotersFor         uint64
	VotersAgainst     uint64
	FundingGoal       Amount
	FundedPercent     uint64
	GoalReached       bool
	QuorumMet         bool
	Approved          bool
	Status            ProposalStatus
	TimeLeft          int64
}

// InvestorDetails aggregates every vote of one address.
type InvestorDetails struct {
	Address           common.Address
	TotalInvested     Amount
	ProposalsInvested []uint64
	Refundable        Amount
	Refunded          Amount
}

// DAOStats is the dashboard summary.
type DAOStats struct {
	TotalProposals uint64
	Active         uint64
	Resolvable     uint64
	Executed       uint64
	Passed         uint64
	Failed         uint64
	TotalFunded    Amount
	TotalLocked    Amount
	Treasury       Amount
	Investors      uint64
	// SuccessRate is passed/executed in percent, zero before any execution.
	SuccessRate float64
}

// ContractStatus describes the admin side of the engine.
type ContractStatus struct {
	Paused             bool
	FeeRefundable      bool
	Admins             []common.Address
	RequiredApprovals  uint64
	MultiSigCount      uint64
	ParamProposalCount uint64
	Settings           Settings
}

// Proposal loads one proposal as stored.
func (e *Engine) Proposal(id uint64) (*Proposal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return loadProposal(newDiff(e.state), id)
}

func (e *Engine) ProposalBasicDetails(id uint64) (*ProposalBasicDetails, error) {
	p, err := e.Proposal(id)
	if err != nil {
		return nil, err
	}
	return &ProposalBasicDetails{
		ID:          p.ID,
		Proposer:    p.Proposer,
		Description: p.Description,
		ProjectName: p.ProjectName,
		ProjectURL:  p.ProjectURL,
		FundingGoal: p.FundingGoal,
		CreationFee: p.CreationFee,
		CreatedAt:   p.CreatedAt,
		EndTime:     p.EndTime,
		Executed:    p.Executed,
		Passed:      p.Passed,
		Status:      p.Status(e.clock.Now()),
	}, nil
}

func (e *Engine) ProposalVotingDetails(id uint64) (*ProposalVotingDetails, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d := newDiff(e.state)
	p, err := loadProposal(d, id)
	if err != nil {
		return nil, err
	}
	params, err := loadParams(d)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	vd := &ProposalVotingDetails{
		ID:                p.ID,
		TotalVotesFor:     p.TotalVotesFor,
		TotalVotesAgainst: p.TotalVotesAgainst,
		TotalInvested:     p.TotalInvested,
		VotersFor:         p.VotersFor,
		VotersAgainst:     p.VotersAgainst,
		FundingGoal:       p.FundingGoal,
		GoalReached:       p.TotalVotesFor >= p.FundingGoal,
		QuorumMet:         e.quorumMet(p, params),
		Status:            p.Status(now),
	}
	if p.FundingGoal > 0 {
		vd.FundedPercent = uint64(p.TotalInvested) * 100 / uint64(p.FundingGoal)
	}
	if p.Executed {
		vd.Approved = p.Passed
	} else {
		vd.Approved = vd.QuorumMet && p.TotalVotesFor > p.TotalVotesAgainst
		vd.TimeLeft = max(p.EndTime-now, 0)
	}
	return vd, nil
}

// AllProposalIDs lists every proposal id, oldest first.
func (e *Engine) AllProposalIDs() ([]uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, err := proposalCount(newDiff(e.state))
	if err != nil {
		return nil, err
	}
	return lo.RangeFrom(uint64(1), int(n)), nil
}

// ActiveProposals lists proposals still accepting votes, closest deadline first.
func (e *Engine) ActiveProposals(limit int) []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue.active(e.clock.Now(), limit)
}

func (e *Engine) ProposalIDsByProposer(addr common.Address) ([]uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return getIDsFromIndex(newDiff(e.state), proposerIndex(addr))
}

// ProposalCountByUser counts every proposal addr ever created.
func (e *Engine) ProposalCountByUser(addr common.Address) (uint64, error) {
	ids, err := e.ProposalIDsByProposer(addr)
	return uint64(len(ids)), err
}

func (e *Engine) ProposalIDsByInvestor(addr common.Address) ([]uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return getIDsFromIndex(newDiff(e.state), investorIndex(addr))
}

// InvestorDetails sums addr's votes. Refundable counts investments in failed
// proposals that were not paid back yet.
func (e *Engine) InvestorDetails(addr common.Address) (*InvestorDetails, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d := newDiff(e.state)
	ids, err := getIDsFromIndex(d, investorIndex(addr))
	if err != nil {
		return nil, err
	}
	out := &InvestorDetails{Address: addr, ProposalsInvested: ids}
	for _, id := range ids {
		v, err := loadVote(d, id, addr)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		out.TotalInvested += v.Investment
		if v.Refunded {
			out.Refunded += v.Investment
			continue
		}
		p, err := loadProposal(d, id)
		if err != nil {
			return nil, err
		}
		if p.Executed && !p.Passed {
			out.Refundable += v.Investment
		}
	}
	return out, nil
}

func (e *Engine) DAOStats() (*DAOStats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d := newDiff(e.state)
	total, err := proposalCount(d)
	if err != nil {
		return nil, err
	}
	passed, err := getCount(d, PassedCount)
	if err != nil {
		return nil, err
	}
	investors, err := getCount(d, InvestorsCount)
	if err != nil {
		return nil, err
	}
	acc, err := loadAccounting(d)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	resolvable := uint64(len(e.queue.resolvable(now, 0)))
	pending := uint64(e.queue.len())
	s := &DAOStats{
		TotalProposals: total,
		Active:         pending - resolvable,
		Resolvable:     resolvable,
		Executed:       total - pending,
		Passed:         passed,
		TotalFunded:    acc.Funded,
		TotalLocked:    acc.Locked,
		Treasury:       acc.Treasury,
		Investors:      investors,
	}
	s.Failed = s.Executed - s.Passed
	if s.Executed > 0 {
		s.SuccessRate = float64(s.Passed) * 100 / float64(s.Executed)
	}
	return s, nil
}

func (e *Engine) IsProposalActive(id uint64) (bool, error) {
	p, err := e.Proposal(id)
	if err != nil {
		return false, err
	}
	return p.Active(e.clock.Now()), nil
}

// TimeUntilEnd is the seconds left to vote, zero once the window closed.
func (e *Engine) TimeUntilEnd(id uint64) (int64, error) {
	p, err := e.Proposal(id)
	if err != nil {
		return 0, err
	}
	if p.Executed {
		return 0, nil
	}
	return max(p.EndTime-e.clock.Now(), 0), nil
}

func (e *Engine) ContractStatus() (*ContractStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d := newDiff(e.state)
	st, err := loadStatus(d)
	if err != nil {
		return nil, err
	}
	admins, err := loadAdmins(d)
	if err != nil {
		return nil, err
	}
	ms, err := getCount(d, MultiSigCount)
	if err != nil {
		return nil, err
	}
	gp, err := getCount(d, ParamProposalsCount)
	if err != nil {
		return nil, err
	}
	return &ContractStatus{
		Paused:             st.Paused,
		FeeRefundable:      st.FeeRefundable,
		Admins:             admins,
		RequiredApprovals:  e.settings.RequiredApprovals,
		MultiSigCount:      ms,
		ParamProposalCount: gp,
		Settings:           e.settings,
	}, nil
}

// MultiSigProposalIDs lists every multisig proposal id, oldest first.
func (e *Engine) MultiSigProposalIDs() ([]uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, err := getCount(newDiff(e.state), MultiSigCount)
	if err != nil {
		return nil, err
	}
	return lo.RangeFrom(uint64(1), int(n)), nil
}
