package contract

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"ganjes_dao/contract/dao"
)

// Parameter names as accepted by CreateParameterProposal.
const (
	ParamMinInvestmentAmount  = "minInvestmentAmount"
	ParamMinTokensForProposal = "minTokensForProposal"
	ParamProposalCreationFee  = "proposalCreationFee"
	ParamVotingDuration       = "votingDuration"
	ParamMinQuorumPercent     = "minQuorumPercent"
	ParamMaxProposalsPerUser  = "maxProposalsPerUser"
	ParamProposalCooldown     = "proposalCooldown"
)

const maxTokenParam = 1_000_000_000_000

// ParamClass decides whether a change needs approvals.
type ParamClass uint8

const (
	ClassDirect    ParamClass = 1
	ClassSensitive ParamClass = 2
)

func (c ParamClass) String() string {
	switch c {
	case ClassDirect:
		return "direct"
	case ClassSensitive:
		return "sensitive"
	default:
		return "unknown"
	}
}

// GateState is shared by multisig and parameter proposals.
type GateState uint8

const (
	GateProposed GateState = 1
	GateApproved GateState = 2
	GateExecuted GateState = 3
	GateRejected GateState = 4
	GateExpired  GateState = 5
)

func (s GateState) String() string {
	switch s {
	case GateProposed:
		return "proposed"
	case GateApproved:
		return "approved"
	case GateExecuted:
		return "executed"
	case GateRejected:
		return "rejected"
	case GateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s GateState) Terminal() bool {
	return s == GateExecuted || s == GateRejected || s == GateExpired
}

// ParamProposal is a pending or applied change of one governance parameter.
type ParamProposal struct {
	ID            uint64
	Name          string
	OldValue      uint64
	NewValue      uint64
	Justification string
	Proposer      common.Address
	Class         ParamClass
	Approvals     []common.Address
	State         GateState
	CreatedAt     int64
	ExpiresAt     int64
	AppliedAt     int64
}

// StateAt folds expiry into the stored state.
func (p *ParamProposal) StateAt(now int64) GateState {
	if !p.State.Terminal() && now >= p.ExpiresAt {
		return GateExpired
	}
	return p.State
}

type paramSpec struct {
	class  ParamClass
	get    func(*Params) uint64
	set    func(*Params, uint64)
	bounds func(*Settings) (uint64, uint64)
}

func fixedBounds(low, high uint64) func(*Settings) (uint64, uint64) {
	return func(*Settings) (uint64, uint64) { return low, high }
}

var paramSpecs = map[string]paramSpec{
	ParamMinInvestmentAmount: {
		class:  ClassDirect,
		get:    func(p *Params) uint64 { return uint64(p.MinInvestmentAmount) },
		set:    func(p *Params, v uint64) { p.MinInvestmentAmount = Amount(v) },
		bounds: fixedBounds(1, maxTokenParam),
	},
	ParamMinTokensForProposal: {
		class:  ClassSensitive,
		get:    func(p *Params) uint64 { return uint64(p.MinTokensForProposal) },
		set:    func(p *Params, v uint64) { p.MinTokensForProposal = Amount(v) },
		bounds: fixedBounds(0, maxTokenParam),
	},
	ParamProposalCreationFee: {
		class:  ClassSensitive,
		get:    func(p *Params) uint64 { return uint64(p.ProposalCreationFee) },
		set:    func(p *Params, v uint64) { p.ProposalCreationFee = Amount(v) },
		bounds: fixedBounds(0, maxTokenParam),
	},
	ParamVotingDuration: {
		class: ClassSensitive,
		get:   func(p *Params) uint64 { return p.VotingDuration },
		set:   func(p *Params, v uint64) { p.VotingDuration = v },
		bounds: func(s *Settings) (uint64, uint64) {
			return s.MinVotingDuration, s.MaxVotingDuration
		},
	},
	ParamMinQuorumPercent: {
		class:  ClassSensitive,
		get:    func(p *Params) uint64 { return p.MinQuorumPercent },
		set:    func(p *Params, v uint64) { p.MinQuorumPercent = v },
		bounds: fixedBounds(1, 100),
	},
	ParamMaxProposalsPerUser: {
		class:  ClassDirect,
		get:    func(p *Params) uint64 { return p.MaxProposalsPerUser },
		set:    func(p *Params, v uint64) { p.MaxProposalsPerUser = v },
		bounds: fixedBounds(1, 1000),
	},
	ParamProposalCooldown: {
		class:  ClassDirect,
		get:    func(p *Params) uint64 { return p.ProposalCooldown },
		set:    func(p *Params, v uint64) { p.ProposalCooldown = v },
		bounds: fixedBounds(0, 30*24*3600),
	},
}

// ParameterNames lists every governable parameter in sorted order.
func ParameterNames() []string {
	names := lo.Keys(paramSpecs)
	slices.Sort(names)
	return names
}

// ParameterClass reports the class of a parameter name.
func ParameterClass(name string) (ParamClass, bool) {
	spec, ok := paramSpecs[name]
	return spec.class, ok
}

// ParameterBounds reports the inclusive band a parameter must stay within.
func (e *Engine) ParameterBounds(name string) (low, high uint64, err error) {
	spec, ok := paramSpecs[name]
	if !ok {
		return 0, 0, fail(ErrUnknownParameter, "unknown parameter %q", name)
	}
	low, high = spec.bounds(&e.settings)
	return low, high, nil
}

// -----------------------------------------------------------------------------
// Storage
// -----------------------------------------------------------------------------

func loadParamProposal(d *diff, id uint64) (*ParamProposal, error) {
	ptr, err := d.Get(paramProposalKey(id))
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, fail(ErrParamNotFound, "parameter proposal %d does not exist", id)
	}
	p, err := decodeParamProposal(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode parameter proposal %d: %w", id, err)
	}
	return p, nil
}

func saveParamProposal(d *diff, p *ParamProposal) {
	d.Set(paramProposalKey(p.ID), encodeParamProposal(p))
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// CreateParameterProposal opens a change of one governance parameter.
// Direct parameters apply right away; sensitive ones wait for the approval
// threshold, with the creator's approval already counted.
//
// Example payload: minQuorumPercent 60 "raise participation bar"
func (e *Engine) CreateParameterProposal(ctx context.Context, caller common.Address, name string, value uint64, justification string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	id, err := e.createParameterProposal(t, caller, name, value, justification)
	if err != nil {
		return 0, e.reject("createParameterProposal", err)
	}
	if err := t.commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (e *Engine) createParameterProposal(t *txn, caller common.Address, name string, value uint64, justification string) (uint64, error) {
	if err := requireAdmin(t.d, caller); err != nil {
		return 0, err
	}
	spec, ok := paramSpecs[name]
	if !ok {
		return 0, fail(ErrUnknownParameter, "unknown parameter %q", name)
	}
	low, high := spec.bounds(&e.settings)
	if value < low || value > high {
		return 0, fail(ErrParameterOutOfBounds, "%s must be within [%d, %d], got %d", name, low, high, value)
	}
	justification = sanitizeText(justification)
	if justification == "" || len(justification) > MaxJustification {
		return 0, fail(ErrInvalidInput, "justification must be 1..%d bytes", MaxJustification)
	}
	params, err := loadParams(t.d)
	if err != nil {
		return 0, err
	}
	id, err := nextID(t.d, ParamProposalsCount)
	if err != nil {
		return 0, err
	}
	gp := &ParamProposal{
		ID:            id,
		Name:          name,
		OldValue:      spec.get(params),
		NewValue:      value,
		Justification: justification,
		Proposer:      caller,
		Class:         spec.class,
		Approvals:     []common.Address{caller},
		State:         GateProposed,
		CreatedAt:     t.now,
		ExpiresAt:     t.now + int64(e.settings.ParameterWindow),
	}
	t.emit(dao.ParameterProposalCreated{ID: id, Name: name, Value: value, Justification: justification, Proposer: caller})
	if gp.Class == ClassDirect || uint64(len(gp.Approvals)) >= e.settings.RequiredApprovals {
		applyParameter(t, params, gp, spec)
	}
	saveParamProposal(t.d, gp)
	e.log.Info("parameter proposal created",
		zap.Uint64("id", id),
		zap.String("name", name),
		zap.Uint64("value", value),
		zap.Stringer("class", gp.Class),
		zap.Stringer("state", gp.State),
	)
	return id, nil
}

// ApproveParameterProposal adds caller's approval and applies the change once
// the threshold is met. It reports whether the change was applied.
func (e *Engine) ApproveParameterProposal(ctx context.Context, caller common.Address, id uint64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	applied, err := e.approveParameterProposal(t, caller, id)
	if err != nil {
		return false, e.reject("approveParameterProposal", err)
	}
	if err := t.commit(ctx); err != nil {
		return false, err
	}
	return applied, nil
}

func (e *Engine) approveParameterProposal(t *txn, caller common.Address, id uint64) (bool, error) {
	if err := requireAdmin(t.d, caller); err != nil {
		return false, err
	}
	gp, err := loadParamProposal(t.d, id)
	if err != nil {
		return false, err
	}
	switch gp.StateAt(t.now) {
	case GateProposed:
	case GateExpired:
		return false, fail(ErrApprovalExpired, "parameter proposal %d expired at %d", id, gp.ExpiresAt)
	default:
		return false, fail(ErrNotPending, "parameter proposal %d is %s", id, gp.State)
	}
	if slices.Contains(gp.Approvals, caller) {
		return false, fail(ErrAlreadyApproved, "%s already approved parameter proposal %d", caller.Hex(), id)
	}
	gp.Approvals = append(gp.Approvals, caller)
	applied := false
	if uint64(len(gp.Approvals)) >= e.settings.RequiredApprovals {
		params, err := loadParams(t.d)
		if err != nil {
			return false, err
		}
		gp.OldValue = paramSpecs[gp.Name].get(params)
		applyParameter(t, params, gp, paramSpecs[gp.Name])
		applied = true
	}
	saveParamProposal(t.d, gp)
	return applied, nil
}

func applyParameter(t *txn, params *Params, gp *ParamProposal, spec paramSpec) {
	spec.set(params, gp.NewValue)
	saveParams(t.d, params)
	gp.State = GateExecuted
	gp.AppliedAt = t.now
	t.emit(dao.ParameterChanged{Name: gp.Name, OldValue: gp.OldValue, NewValue: gp.NewValue})
	name := gp.Name
	m := t.e.metrics
	t.onCommit(func() { m.parameterChanged(name) })
	t.e.log.Info("parameter changed",
		zap.String("name", gp.Name),
		zap.Uint64("old", gp.OldValue),
		zap.Uint64("new", gp.NewValue),
	)
}

// -----------------------------------------------------------------------------
// Views
// -----------------------------------------------------------------------------

// GovernanceParameters returns the current parameter set.
func (e *Engine) GovernanceParameters() (Params, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, err := loadParams(newDiff(e.state))
	if err != nil {
		return Params{}, err
	}
	return *p, nil
}

// ParameterProposal loads one parameter proposal with expiry folded in.
func (e *Engine) ParameterProposal(id uint64) (*ParamProposal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	gp, err := loadParamProposal(newDiff(e.state), id)
	if err != nil {
		return nil, err
	}
	gp.State = gp.StateAt(e.clock.Now())
	return gp, nil
}

// ParameterProposalIDs lists every parameter proposal id, oldest first.
func (e *Engine) ParameterProposalIDs() ([]uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, err := getCount(newDiff(e.state), ParamProposalsCount)
	if err != nil {
		return nil, err
	}
	return lo.RangeFrom(uint64(1), int(n)), nil
}

// ParameterTable renders name=value pairs, handy for logs and the cli.
func ParameterTable(p Params) map[string]uint64 {
	return lo.MapValues(paramSpecs, func(spec paramSpec, _ string) uint64 {
		return spec.get(&p)
	})
}

// String prints the parameters in name order.
func (p Params) String() string {
	table := ParameterTable(p)
	parts := lo.Map(ParameterNames(), func(name string, _ int) string {
		return fmt.Sprintf("%s=%d", name, table[name])
	})
	return strings.Join(parts, " ")
}
