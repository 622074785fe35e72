package contract

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ganjes_dao/contract/dao"
)

// IncreaseVotingDuration pushes a proposal's end time out by seconds. The whole
// window measured from creation may not exceed MaxVotingDuration.
func (e *Engine) IncreaseVotingDuration(ctx context.Context, caller common.Address, proposalID, seconds uint64) (int64, error) {
	return e.adjustVotingDuration(ctx, caller, proposalID, seconds, true)
}

// DecreaseVotingDuration pulls a proposal's end time in by seconds. At least
// SafetyFloor seconds of voting must remain; the end time is never clamped.
func (e *Engine) DecreaseVotingDuration(ctx context.Context, caller common.Address, proposalID, seconds uint64) (int64, error) {
	return e.adjustVotingDuration(ctx, caller, proposalID, seconds, false)
}

func (e *Engine) adjustVotingDuration(ctx context.Context, caller common.Address, id, seconds uint64, increase bool) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	op := "decreaseVotingDuration"
	if increase {
		op = "increaseVotingDuration"
	}
	t := e.begin()
	if err := requireAdmin(t.d, caller); err != nil {
		return 0, e.reject(op, err)
	}
	end, err := e.adjustWindow(t, id, seconds, increase)
	if err != nil {
		return 0, e.reject(op, err)
	}
	if err := t.commit(ctx); err != nil {
		return 0, err
	}
	return end, nil
}

// adjustWindow is shared by the admin calls and the multisig duration actions.
func (e *Engine) adjustWindow(t *txn, id, seconds uint64, increase bool) (int64, error) {
	if seconds == 0 || seconds > e.settings.MaxVotingDuration {
		return 0, fail(ErrInvalidDuration, "duration change must be within (0, %d] seconds, got %d", e.settings.MaxVotingDuration, seconds)
	}
	p, err := loadProposal(t.d, id)
	if err != nil {
		return 0, err
	}
	if !p.Active(t.now) {
		return 0, fail(ErrProposalNotActive, "proposal %d is not accepting votes", id)
	}
	delta := int64(seconds)
	oldEnd := p.EndTime
	var newEnd int64
	if increase {
		newEnd = oldEnd + delta
		if window := newEnd - p.CreatedAt; uint64(window) > e.settings.MaxVotingDuration {
			return 0, fail(ErrVotingWindowTooLong, "voting window of %d seconds exceeds %d", window, e.settings.MaxVotingDuration)
		}
	} else {
		newEnd = oldEnd - delta
		left := newEnd - t.now
		if left < 0 || uint64(left) < e.settings.SafetyFloor {
			reason := fail(ErrSafetyFloor, "only %d seconds would remain, at least %d required", left, e.settings.SafetyFloor)
			reason.Remaining = oldEnd - t.now
			return 0, reason
		}
	}
	p.EndTime = newEnd
	saveProposal(t.d, p)
	t.dequeue(oldEnd, id)
	t.enqueue(newEnd, id)
	t.emit(dao.VotingTimeChanged{ProposalID: id, OldEndTime: oldEnd, NewEndTime: newEnd})
	e.log.Info("voting window changed",
		zap.Uint64("id", id),
		zap.Int64("oldEnd", oldEnd),
		zap.Int64("newEnd", newEnd),
	)
	return newEnd, nil
}

// VotingDurationInfo describes the duration setting and its allowed band.
type VotingDurationInfo struct {
	Current     uint64
	Min         uint64
	Max         uint64
	SafetyFloor uint64
}

// VotingDurationInfo returns the current voting duration and its bounds.
func (e *Engine) VotingDurationInfo() (VotingDurationInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	params, err := loadParams(newDiff(e.state))
	if err != nil {
		return VotingDurationInfo{}, err
	}
	return VotingDurationInfo{
		Current:     params.VotingDuration,
		Min:         e.settings.MinVotingDuration,
		Max:         e.settings.MaxVotingDuration,
		SafetyFloor: e.settings.SafetyFloor,
	}, nil
}
