package contract

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// Handler runs one named call with a pipe-delimited payload and returns a
// short result text.
type Handler func(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error)

// Exports maps call names onto engine operations, used by the cli `call` and
// `script` commands.
var Exports = map[string]Handler{
	"proposals_create":      callCreateProposal,
	"proposals_vote":        callVote,
	"proposals_execute":     callExecute,
	"proposals_refund":      callRefundInvestments,
	"proposals_claim":       callClaimRefund,
	"proposals_refund_fee":  callRefundFee,
	"proposals_extend":      callAdjustDuration(true),
	"proposals_shorten":     callAdjustDuration(false),
	"treasury_deposit":      callDeposit,
	"params_propose":        callParamPropose,
	"params_approve":        callParamApprove,
	"multisig_create":       callMultiSigCreate,
	"multisig_approve":      callMultiSigApprove,
	"multisig_reject":       callMultiSigReject,
	"multisig_execute":      callMultiSigExecute,
	"proposals_execute_due": callExecuteDue,
}

// ExportNames lists the call names in sorted order.
func ExportNames() []string {
	names := lo.Keys(Exports)
	slices.Sort(names)
	return names
}

// Call dispatches a named call.
//
// Example payload: Call(ctx, alice, "proposals_vote", "1|true|60")
func (e *Engine) Call(ctx context.Context, caller common.Address, method, payload string) (string, error) {
	h, ok := Exports[method]
	if !ok {
		return "", fail(ErrInvalidInput, "unknown call %q", method)
	}
	return h(ctx, e, caller, payload)
}

func callCreateProposal(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	in, err := decodeProposalInput(payload)
	if err != nil {
		return "", err
	}
	id, err := e.CreateProposal(ctx, caller, in)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}

func callVote(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	args, err := decodeVoteArgs(payload)
	if err != nil {
		return "", err
	}
	if err := e.Vote(ctx, caller, args.ProposalID, args.Support, args.Investment); err != nil {
		return "", err
	}
	return "voted", nil
}

func callExecute(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	id, err := decodeProposalID(payload)
	if err != nil {
		return "", err
	}
	res, err := e.ExecuteProposal(ctx, caller, id)
	if err != nil {
		return "", err
	}
	if res.Passed {
		return fmt.Sprintf("passed|paid:%d", res.Payout), nil
	}
	return "failed", nil
}

func callExecuteDue(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	limit := 0
	if raw, err := unwrapPayload(payload); err == nil {
		n, err := parseUintField(raw, "limit")
		if err != nil {
			return "", err
		}
		limit = int(n)
	}
	results, err := e.ExecuteDue(ctx, caller, limit)
	if err != nil {
		return "", err
	}
	done := lo.CountBy(results, func(r DueResult) bool { return r.Err == nil })
	return fmt.Sprintf("executed:%d|failed:%d", done, len(results)-done), nil
}

func callRefundInvestments(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	id, err := decodeProposalID(payload)
	if err != nil {
		return "", err
	}
	rep, err := e.RefundInvestments(ctx, caller, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("refunded:%d|total:%d", len(rep.Refunded), rep.Total), nil
}

func callClaimRefund(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	id, err := decodeProposalID(payload)
	if err != nil {
		return "", err
	}
	amount, err := e.ClaimRefund(ctx, caller, id)
	if err != nil {
		return "", err
	}
	return amount.String(), nil
}

func callRefundFee(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	id, err := decodeProposalID(payload)
	if err != nil {
		return "", err
	}
	if err := e.RefundProposalFee(ctx, caller, id); err != nil {
		return "", err
	}
	return "fee refunded", nil
}

func callAdjustDuration(increase bool) Handler {
	return func(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
		args, err := decodeDurationArgs(payload)
		if err != nil {
			return "", err
		}
		var end int64
		if increase {
			end, err = e.IncreaseVotingDuration(ctx, caller, args.ProposalID, args.Seconds)
		} else {
			end, err = e.DecreaseVotingDuration(ctx, caller, args.ProposalID, args.Seconds)
		}
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(end, 10), nil
	}
}

func callDeposit(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	amount, err := decodeAmount(payload)
	if err != nil {
		return "", err
	}
	if err := e.Deposit(ctx, caller, amount); err != nil {
		return "", err
	}
	return "deposited", nil
}

func callParamPropose(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	args, err := decodeParamArgs(payload)
	if err != nil {
		return "", err
	}
	id, err := e.CreateParameterProposal(ctx, caller, args.Name, args.Value, args.Justification)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}

func callParamApprove(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	id, err := decodeProposalID(payload)
	if err != nil {
		return "", err
	}
	applied, err := e.ApproveParameterProposal(ctx, caller, id)
	if err != nil {
		return "", err
	}
	if applied {
		return "applied", nil
	}
	return "approved", nil
}

func callMultiSigCreate(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	args, err := decodeMultiSigArgs(payload)
	if err != nil {
		return "", err
	}
	id, err := e.CreateMultiSigProposal(ctx, caller, args.Action, args.Value, args.Target)
	if id != 0 && err != nil {
		return strconv.FormatUint(id, 10), err
	}
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}

func callMultiSigApprove(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	id, err := decodeProposalID(payload)
	if err != nil {
		return "", err
	}
	if err := e.ApproveMultiSigProposal(ctx, caller, id); err != nil {
		return "", err
	}
	return "approved", nil
}

func callMultiSigReject(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	id, err := decodeProposalID(payload)
	if err != nil {
		return "", err
	}
	if err := e.RejectMultiSigProposal(ctx, caller, id); err != nil {
		return "", err
	}
	return "rejected", nil
}

func callMultiSigExecute(ctx context.Context, e *Engine, caller common.Address, payload string) (string, error) {
	id, err := decodeProposalID(payload)
	if err != nil {
		return "", err
	}
	if err := e.ExecuteMultiSigProposal(ctx, caller, id); err != nil {
		return "", err
	}
	return "executed", nil
}
