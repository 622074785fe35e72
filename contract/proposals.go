package contract

import (
	"context"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"

	"ganjes_dao/contract/dao"
)

// Requirements is the diagnostic answer to "may this address propose right now".
// Reasons lists every failing check in guard order; the first one is what
// CreateProposal would return.
type Requirements struct {
	Paused             bool
	HasMinTokens       bool
	HasDepositTokens   bool
	HasAllowance       bool
	BelowMaxProposals  bool
	CooldownPassed     bool
	CanCreateProposal  bool
	UserBalance        Amount
	CurrentAllowance   Amount
	RequiredBalance    Amount
	CreationFee        Amount
	BalanceShortfall   Amount
	AllowanceShortfall Amount
	OpenProposals      uint64
	MaxProposals       uint64
	CooldownRemaining  int64
	StatusMessage      string
	Reasons            []*Error
}

// CheckProposalRequirements reports every eligibility check for caller.
func (e *Engine) CheckProposalRequirements(ctx context.Context, caller common.Address) (*Requirements, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.requirements(ctx, newDiff(e.state), caller, e.clock.Now())
}

// CanCreateProposal is the yes/no form of CheckProposalRequirements.
func (e *Engine) CanCreateProposal(ctx context.Context, caller common.Address) (bool, []*Error, error) {
	req, err := e.CheckProposalRequirements(ctx, caller)
	if err != nil {
		return false, nil, err
	}
	return req.CanCreateProposal, req.Reasons, nil
}

// TimeUntilNextProposal is the cooldown left for addr in seconds, zero when free.
func (e *Engine) TimeUntilNextProposal(addr common.Address) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d := newDiff(e.state)
	params, err := loadParams(d)
	if err != nil {
		return 0, err
	}
	return cooldownRemaining(d, addr, params, e.clock.Now())
}

func cooldownRemaining(d *diff, addr common.Address, params *Params, now int64) (int64, error) {
	last, ok, err := getInt64(d, lastProposalKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	left := last + int64(params.ProposalCooldown) - now
	if left < 0 {
		return 0, nil
	}
	return left, nil
}

func (e *Engine) requirements(ctx context.Context, d *diff, caller common.Address, now int64) (*Requirements, error) {
	params, err := loadParams(d)
	if err != nil {
		return nil, err
	}
	status, err := loadStatus(d)
	if err != nil {
		return nil, err
	}
	bal, err := e.balanceOf(ctx, caller)
	if err != nil {
		return nil, err
	}
	alw, err := e.allowanceOf(ctx, caller)
	if err != nil {
		return nil, err
	}
	open, err := getOpenProposalCount(d, caller)
	if err != nil {
		return nil, err
	}
	wait, err := cooldownRemaining(d, caller, params, now)
	if err != nil {
		return nil, err
	}

	fee := params.ProposalCreationFee
	required := params.MinTokensForProposal + fee
	r := &Requirements{
		Paused:            status.Paused,
		HasMinTokens:      bal >= params.MinTokensForProposal,
		HasDepositTokens:  bal >= required,
		HasAllowance:      alw >= fee,
		BelowMaxProposals: open < params.MaxProposalsPerUser,
		CooldownPassed:    wait == 0,
		UserBalance:       bal,
		CurrentAllowance:  alw,
		RequiredBalance:   required,
		CreationFee:       fee,
		OpenProposals:     open,
		MaxProposals:      params.MaxProposalsPerUser,
		CooldownRemaining: wait,
	}
	if r.Paused {
		r.Reasons = append(r.Reasons, fail(ErrPaused, "engine is paused"))
	}
	if !r.HasDepositTokens {
		r.BalanceShortfall = required - bal
		reason := fail(ErrInsufficientTokens, "need %d tokens (%d minimum + %d fee), have %d, short by %d",
			required, params.MinTokensForProposal, fee, bal, r.BalanceShortfall)
		reason.Shortfall = r.BalanceShortfall
		r.Reasons = append(r.Reasons, reason)
	}
	if !r.HasAllowance {
		r.AllowanceShortfall = fee - alw
		reason := fail(ErrInsufficientAllowance, "approve %d more tokens for the %d creation fee", r.AllowanceShortfall, fee)
		reason.Shortfall = r.AllowanceShortfall
		r.Reasons = append(r.Reasons, reason)
	}
	if !r.BelowMaxProposals {
		r.Reasons = append(r.Reasons, fail(ErrMaxProposalsReached, "%d of %d open proposals used", open, params.MaxProposalsPerUser))
	}
	if !r.CooldownPassed {
		reason := fail(ErrCooldownActive, "next proposal allowed in %d seconds", wait)
		reason.Remaining = wait
		r.Reasons = append(r.Reasons, reason)
	}
	r.CanCreateProposal = len(r.Reasons) == 0
	if r.CanCreateProposal {
		r.StatusMessage = "ready to create a proposal"
	} else {
		r.StatusMessage = r.Reasons[0].Msg
	}
	return r, nil
}

// CreateProposal runs the guard, pulls the creation fee and stores the proposal.
func (e *Engine) CreateProposal(ctx context.Context, caller common.Address, in ProposalInput) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	id, err := e.createProposal(ctx, t, caller, in)
	if err != nil {
		return 0, e.reject("createProposal", err)
	}
	if err := t.commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (e *Engine) createProposal(ctx context.Context, t *txn, caller common.Address, in ProposalInput) (uint64, error) {
	if err := requireNotPaused(t.d); err != nil {
		return 0, err
	}
	in, err := sanitizeInput(in)
	if err != nil {
		return 0, err
	}
	if in.FundingGoal < e.settings.MinFundingGoal || in.FundingGoal > e.settings.MaxFundingGoal {
		return 0, fail(ErrFundingGoalOutOfRange, "funding goal %d outside [%d, %d]",
			in.FundingGoal, e.settings.MinFundingGoal, e.settings.MaxFundingGoal)
	}
	req, err := e.requirements(ctx, t.d, caller, t.now)
	if err != nil {
		return 0, err
	}
	if len(req.Reasons) > 0 {
		return 0, req.Reasons[0]
	}
	params, err := loadParams(t.d)
	if err != nil {
		return 0, err
	}
	acc, err := loadAccounting(t.d)
	if err != nil {
		return 0, err
	}
	id, err := nextID(t.d, ProposalsCount)
	if err != nil {
		return 0, err
	}
	if err := addIDToIndex(t.d, proposerIndex(caller), id); err != nil {
		return 0, err
	}
	if err := incrementOpenProposals(t.d, caller); err != nil {
		return 0, err
	}

	fee := params.ProposalCreationFee
	if err := addTreasuryFunds(acc, fee, &acc.FeesCollected); err != nil {
		return 0, err
	}
	if err := e.pull(ctx, caller, fee); err != nil {
		return 0, err
	}

	p := &Proposal{
		ID:          id,
		Proposer:    caller,
		Description: in.Description,
		ProjectName: in.ProjectName,
		ProjectURL:  in.ProjectURL,
		FundingGoal: in.FundingGoal,
		CreationFee: fee,
		CreatedAt:   t.now,
		EndTime:     t.now + int64(params.VotingDuration),
		Tx:          t.tx,
	}
	saveProposal(t.d, p)
	setInt64(t.d, lastProposalKey(caller), t.now)
	saveAccounting(t.d, acc)

	t.enqueue(p.EndTime, id)
	t.emit(dao.ProposalCreated{
		ProposalID:  id,
		Proposer:    caller,
		ProjectName: p.ProjectName,
		FundingGoal: p.FundingGoal,
		CreationFee: fee,
		EndTime:     p.EndTime,
	})
	t.onCommit(e.metrics.proposalCreated)
	return id, nil
}

// sanitizeText trims, drops invalid utf8 and control characters.
func sanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func sanitizeInput(in ProposalInput) (ProposalInput, error) {
	in.Description = sanitizeText(in.Description)
	in.ProjectName = sanitizeText(in.ProjectName)
	in.ProjectURL = sanitizeText(in.ProjectURL)
	switch {
	case in.Description == "":
		return in, fail(ErrInvalidInput, "description is required")
	case len(in.Description) > MaxDescriptionLength:
		return in, fail(ErrInvalidInput, "description longer than %d bytes", MaxDescriptionLength)
	case in.ProjectName == "":
		return in, fail(ErrInvalidInput, "project name is required")
	case len(in.ProjectName) > MaxProjectNameLength:
		return in, fail(ErrInvalidInput, "project name longer than %d bytes", MaxProjectNameLength)
	case len(in.ProjectURL) > MaxURLLength:
		return in, fail(ErrInvalidInput, "project url longer than %d bytes", MaxURLLength)
	}
	return in, nil
}
