package contract

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ganjes_dao/contract/dao"
	"ganjes_dao/sdk"
)

// MultiSigAction is what an approved multisig proposal runs.
type MultiSigAction uint8

const (
	ActionPause                  MultiSigAction = 1
	ActionUnpause                MultiSigAction = 2
	ActionWithdraw               MultiSigAction = 3
	ActionAddAdmin               MultiSigAction = 4
	ActionSetFeeRefundable       MultiSigAction = 5
	ActionIncreaseVotingDuration MultiSigAction = 6
	ActionDecreaseVotingDuration MultiSigAction = 7
	ActionExecuteProposal        MultiSigAction = 8
)

var actionNames = map[MultiSigAction]string{
	ActionPause:                  "pause",
	ActionUnpause:                "unpause",
	ActionWithdraw:               "withdraw",
	ActionAddAdmin:               "addAdmin",
	ActionSetFeeRefundable:       "setFeeRefundable",
	ActionIncreaseVotingDuration: "increaseVotingDuration",
	ActionDecreaseVotingDuration: "decreaseVotingDuration",
	ActionExecuteProposal:        "executeProposal",
}

func (a MultiSigAction) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// ParseMultiSigAction maps the action name onto the enum.
func ParseMultiSigAction(s string) (MultiSigAction, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fail(ErrUnknownAction, "unknown multisig action %q", s)
}

// MultiSigProposal is one admin action waiting for approvals.
// Value and Target are interpreted per action:
//
//	withdraw                 value = amount, target = recipient
//	addAdmin                 target = new admin
//	setFeeRefundable         value != 0 enables
//	*VotingDuration          value = proposal id, target = seconds
//	executeProposal          value = proposal id
type MultiSigProposal struct {
	ID         uint64
	Action     MultiSigAction
	Value      uint64
	Target     common.Address
	Proposer   common.Address
	Approvals  []common.Address
	Rejections []common.Address
	State      GateState
	CreatedAt  int64
	ExpiresAt  int64
	ExecutedAt int64
	LastError  string
}

// StateAt folds expiry into the stored state.
func (m *MultiSigProposal) StateAt(now int64) GateState {
	if !m.State.Terminal() && now >= m.ExpiresAt {
		return GateExpired
	}
	return m.State
}

func loadMultiSig(d *diff, id uint64) (*MultiSigProposal, error) {
	ptr, err := d.Get(multiSigKey(id))
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, fail(ErrMultiSigNotFound, "multisig proposal %d does not exist", id)
	}
	m, err := decodeMultiSig(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode multisig %d: %w", id, err)
	}
	return m, nil
}

func saveMultiSig(d *diff, m *MultiSigProposal) {
	d.Set(multiSigKey(m.ID), encodeMultiSig(m))
}

// checkArguments rejects malformed value/target pairs before anyone approves them.
func checkArguments(action MultiSigAction, value uint64, target common.Address) error {
	switch action {
	case ActionPause, ActionUnpause, ActionSetFeeRefundable:
		return nil
	case ActionWithdraw:
		if value == 0 || value > math.MaxInt64 {
			return fail(ErrInvalidAmount, "withdraw amount %d is invalid", value)
		}
		if target == sdk.ZeroAddress {
			return fail(ErrInvalidInput, "withdraw needs a recipient")
		}
	case ActionAddAdmin:
		if target == sdk.ZeroAddress {
			return fail(ErrInvalidInput, "addAdmin needs an address")
		}
	case ActionIncreaseVotingDuration, ActionDecreaseVotingDuration:
		secs, err := sdk.SecondsFromAddress(target)
		if err != nil {
			return fail(ErrInvalidDuration, "%v", err)
		}
		if secs == 0 {
			return fail(ErrInvalidDuration, "duration change of zero seconds")
		}
		if value == 0 {
			return fail(ErrInvalidInput, "proposal id missing")
		}
	case ActionExecuteProposal:
		if value == 0 {
			return fail(ErrInvalidInput, "proposal id missing")
		}
	default:
		return fail(ErrUnknownAction, "unknown multisig action %d", action)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// CreateMultiSigProposal opens an admin action. The creator's approval counts,
// so with a threshold of one the action runs immediately. When the action runs
// and fails, the proposal is still stored as approved and the error returned
// next to the id.
func (e *Engine) CreateMultiSigProposal(ctx context.Context, caller common.Address, action MultiSigAction, value uint64, target common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	if err := requireAdmin(t.d, caller); err != nil {
		return 0, e.reject("createMultiSigProposal", err)
	}
	if err := checkArguments(action, value, target); err != nil {
		return 0, e.reject("createMultiSigProposal", err)
	}
	id, err := nextID(t.d, MultiSigCount)
	if err != nil {
		return 0, err
	}
	m := &MultiSigProposal{
		ID:        id,
		Action:    action,
		Value:     value,
		Target:    target,
		Proposer:  caller,
		Approvals: []common.Address{caller},
		State:     GateProposed,
		CreatedAt: t.now,
		ExpiresAt: t.now + int64(e.settings.MultiSigWindow),
	}
	saveMultiSig(t.d, m)
	t.emit(dao.MultiSigProposalCreated{ID: id, Action: action.String(), Value: value, Target: target, Proposer: caller})
	t.emit(dao.MultiSigApproved{ID: id, Approver: caller, Approvals: 1, Required: int(e.settings.RequiredApprovals)})
	e.log.Info("multisig proposal created",
		zap.Uint64("id", id),
		zap.Stringer("action", action),
		zap.Uint64("value", value),
		zap.String("target", target.Hex()),
	)
	var actionErr error
	if uint64(len(m.Approvals)) >= e.settings.RequiredApprovals {
		actionErr = e.runApproved(ctx, t, m)
	}
	if err := t.commit(ctx); err != nil {
		return 0, err
	}
	if actionErr != nil {
		return id, e.reject("createMultiSigProposal", actionErr)
	}
	return id, nil
}

// ApproveMultiSigProposal records caller's approval and runs the action once
// the threshold is reached. An action failure still commits the approval.
func (e *Engine) ApproveMultiSigProposal(ctx context.Context, caller common.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	m, err := e.pendingMultiSig(t, caller, id)
	if err != nil {
		return e.reject("approveMultiSigProposal", err)
	}
	m.Approvals = append(m.Approvals, caller)
	saveMultiSig(t.d, m)
	t.emit(dao.MultiSigApproved{ID: id, Approver: caller, Approvals: len(m.Approvals), Required: int(e.settings.RequiredApprovals)})
	var actionErr error
	if uint64(len(m.Approvals)) >= e.settings.RequiredApprovals {
		actionErr = e.runApproved(ctx, t, m)
	}
	if err := t.commit(ctx); err != nil {
		return err
	}
	if actionErr != nil {
		return e.reject("approveMultiSigProposal", actionErr)
	}
	return nil
}

// RejectMultiSigProposal records caller's rejection. Once the remaining admins
// can no longer reach the threshold the proposal is closed as rejected.
func (e *Engine) RejectMultiSigProposal(ctx context.Context, caller common.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	m, err := e.pendingMultiSig(t, caller, id)
	if err != nil {
		return e.reject("rejectMultiSigProposal", err)
	}
	admins, err := loadAdmins(t.d)
	if err != nil {
		return err
	}
	m.Rejections = append(m.Rejections, caller)
	if uint64(len(m.Rejections)) > uint64(len(admins))-e.settings.RequiredApprovals {
		m.State = GateRejected
	}
	saveMultiSig(t.d, m)
	e.log.Info("multisig proposal rejected",
		zap.Uint64("id", id),
		zap.String("by", caller.Hex()),
		zap.Int("rejections", len(m.Rejections)),
		zap.Stringer("state", m.State),
	)
	return t.commit(ctx)
}

// pendingMultiSig loads a proposal caller may still vote on.
func (e *Engine) pendingMultiSig(t *txn, caller common.Address, id uint64) (*MultiSigProposal, error) {
	if err := requireAdmin(t.d, caller); err != nil {
		return nil, err
	}
	m, err := loadMultiSig(t.d, id)
	if err != nil {
		return nil, err
	}
	switch m.StateAt(t.now) {
	case GateProposed:
	case GateExpired:
		return nil, fail(ErrApprovalExpired, "multisig proposal %d expired at %d", id, m.ExpiresAt)
	default:
		return nil, fail(ErrNotPending, "multisig proposal %d is %s", id, m.State)
	}
	if slices.Contains(m.Approvals, caller) {
		return nil, fail(ErrAlreadyApproved, "%s already approved multisig proposal %d", caller.Hex(), id)
	}
	if slices.Contains(m.Rejections, caller) {
		return nil, fail(ErrAlreadyRejected, "%s already rejected multisig proposal %d", caller.Hex(), id)
	}
	return m, nil
}

// ExecuteMultiSigProposal retries the action of an approved proposal whose
// earlier run failed.
func (e *Engine) ExecuteMultiSigProposal(ctx context.Context, caller common.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.begin()
	if err := requireAdmin(t.d, caller); err != nil {
		return e.reject("executeMultiSigProposal", err)
	}
	m, err := loadMultiSig(t.d, id)
	if err != nil {
		return e.reject("executeMultiSigProposal", err)
	}
	switch m.StateAt(t.now) {
	case GateApproved:
	case GateExpired:
		return e.reject("executeMultiSigProposal", fail(ErrApprovalExpired, "multisig proposal %d expired at %d", id, m.ExpiresAt))
	default:
		return e.reject("executeMultiSigProposal", fail(ErrNotPending, "multisig proposal %d is %s, not approved", id, m.State))
	}
	actionErr := e.runApproved(ctx, t, m)
	if err := t.commit(ctx); err != nil {
		return err
	}
	if actionErr != nil {
		return e.reject("executeMultiSigProposal", actionErr)
	}
	return nil
}

// runApproved runs the action in a child txn. On success the child is folded
// in and the proposal marked executed; on failure only the proposal record
// changes, to approved with the error kept.
func (e *Engine) runApproved(ctx context.Context, t *txn, m *MultiSigProposal) error {
	c := t.child()
	if err := e.runAction(ctx, c, m); err != nil {
		m.State = GateApproved
		m.LastError = err.Error()
		saveMultiSig(t.d, m)
		e.log.Warn("multisig action failed",
			zap.Uint64("id", m.ID),
			zap.Stringer("action", m.Action),
			zap.Error(err),
		)
		return err
	}
	t.absorb(c)
	m.State = GateExecuted
	m.ExecutedAt = t.now
	m.LastError = ""
	saveMultiSig(t.d, m)
	t.emit(dao.MultiSigExecuted{ID: m.ID, Action: m.Action.String()})
	action := m.Action
	t.onCommit(func() { e.metrics.multiSigExecuted(action) })
	return nil
}

func (e *Engine) runAction(ctx context.Context, c *txn, m *MultiSigProposal) error {
	switch m.Action {
	case ActionPause, ActionUnpause:
		st, err := loadStatus(c.d)
		if err != nil {
			return err
		}
		pause := m.Action == ActionPause
		if pause && st.Paused {
			return fail(ErrPaused, "engine is already paused")
		}
		if !pause && !st.Paused {
			return fail(ErrNotPaused, "engine is not paused")
		}
		st.Paused = pause
		saveStatus(c.d, st)
		if pause {
			c.emit(dao.Paused{MultiSigID: m.ID})
		} else {
			c.emit(dao.Unpaused{MultiSigID: m.ID})
		}
		return nil

	case ActionWithdraw:
		amount := Amount(m.Value)
		acc, err := loadAccounting(c.d)
		if err != nil {
			return err
		}
		if !removeTreasuryFunds(acc, amount) {
			reason := fail(ErrInsufficientFunds, "treasury holds %d, withdrawal is %d", acc.Treasury, amount)
			reason.Shortfall = amount - acc.Treasury
			return reason
		}
		if err := e.pay(ctx, m.Target, amount); err != nil {
			return err
		}
		acc.Withdrawn += amount
		saveAccounting(c.d, acc)
		c.emit(dao.Withdrawn{MultiSigID: m.ID, To: m.Target, Amount: amount})
		return nil

	case ActionAddAdmin:
		if err := addAdmin(c.d, m.Target); err != nil {
			return err
		}
		c.emit(dao.AdminAdded{MultiSigID: m.ID, Admin: m.Target})
		return nil

	case ActionSetFeeRefundable:
		st, err := loadStatus(c.d)
		if err != nil {
			return err
		}
		st.FeeRefundable = m.Value != 0
		saveStatus(c.d, st)
		c.emit(dao.FeePolicyChanged{MultiSigID: m.ID, Refundable: st.FeeRefundable})
		return nil

	case ActionIncreaseVotingDuration, ActionDecreaseVotingDuration:
		secs, err := sdk.SecondsFromAddress(m.Target)
		if err != nil {
			return fail(ErrInvalidDuration, "%v", err)
		}
		_, err = e.adjustWindow(c, m.Value, secs, m.Action == ActionIncreaseVotingDuration)
		return err

	case ActionExecuteProposal:
		_, err := e.resolve(ctx, c, m.Value)
		return err

	default:
		return fail(ErrUnknownAction, "unknown multisig action %d", m.Action)
	}
}

// -----------------------------------------------------------------------------
// Views
// -----------------------------------------------------------------------------

// MultiSigProposal loads one multisig proposal with expiry folded in.
func (e *Engine) MultiSigProposal(id uint64) (*MultiSigProposal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, err := loadMultiSig(newDiff(e.state), id)
	if err != nil {
		return nil, err
	}
	m.State = m.StateAt(e.clock.Now())
	return m, nil
}

// RequiredApprovals is the multisig threshold fixed at genesis.
func (e *Engine) RequiredApprovals() uint64 { return e.settings.RequiredApprovals }

func (e *Engine) IsAdmin(addr common.Address) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	role, err := getRole(newDiff(e.state), addr)
	if err != nil {
		return false, err
	}
	return role == RoleAdmin, nil
}

// Admins lists admins in the order they were added.
func (e *Engine) Admins() ([]common.Address, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return loadAdmins(newDiff(e.state))
}
