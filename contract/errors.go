package contract

import (
	"errors"
	"fmt"
)

// Kind groups error codes the way callers react to them.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindEligibility: the caller can fix it (balance, allowance, cooldown, amounts).
	KindEligibility
	// KindState: the proposal or gate is in the wrong state for the call.
	KindState
	// KindLedger: the token ledger refused a transfer.
	KindLedger
	// KindAuthorization: caller lacks the role.
	KindAuthorization
	// KindBounds: a value falls outside its configured band.
	KindBounds
)

func (k Kind) String() string {
	switch k {
	case KindEligibility:
		return "eligibility"
	case KindState:
		return "state"
	case KindLedger:
		return "ledger"
	case KindAuthorization:
		return "authorization"
	case KindBounds:
		return "bounds"
	default:
		return "unknown"
	}
}

// Code names one failure.
type Code string

// Error is what every engine operation returns for a rejected call.
// Shortfall and Remaining are filled where a caller can self-correct.
type Error struct {
	Kind      Kind
	Code      Code
	Msg       string
	Shortfall Amount
	Remaining int64
	Err       error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Msg
}

// Is matches on Code so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf digs the Kind out of any wrapped error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func sentinel(kind Kind, code Code) *Error {
	return &Error{Kind: kind, Code: code}
}

// fail copies a sentinel and attaches a message.
func fail(s *Error, format string, args ...any) *Error {
	return &Error{Kind: s.Kind, Code: s.Code, Msg: fmt.Sprintf(format, args...)}
}

// ledgerFail wraps a ledger error so the cause stays reachable.
func ledgerFail(op string, err error) *Error {
	return &Error{Kind: KindLedger, Code: ErrLedger.Code, Msg: op + ": " + err.Error(), Err: err}
}

var (
	ErrInvalidInput          = sentinel(KindEligibility, "InvalidInput")
	ErrFundingGoalOutOfRange = sentinel(KindEligibility, "FundingGoalOutOfRange")
	ErrInsufficientTokens    = sentinel(KindEligibility, "InsufficientTokens")
	ErrInsufficientAllowance = sentinel(KindEligibility, "InsufficientAllowance")
	ErrInsufficientBalance   = sentinel(KindEligibility, "InsufficientBalance")
	ErrMaxProposalsReached   = sentinel(KindEligibility, "MaxProposalsReached")
	ErrCooldownActive        = sentinel(KindEligibility, "CooldownActive")
	ErrInvestmentTooLow      = sentinel(KindEligibility, "InvestmentTooLow")
	ErrInvalidAmount         = sentinel(KindEligibility, "InvalidAmount")

	ErrProposalNotFound    = sentinel(KindState, "ProposalNotFound")
	ErrProposalNotActive   = sentinel(KindState, "ProposalNotActive")
	ErrVotingNotEnded      = sentinel(KindState, "VotingNotEnded")
	ErrAlreadyVoted        = sentinel(KindState, "AlreadyVoted")
	ErrProposerCannotVote  = sentinel(KindState, "ProposerCannotVote")
	ErrAlreadyExecuted     = sentinel(KindState, "AlreadyExecuted")
	ErrProposalNotExecuted = sentinel(KindState, "ProposalNotExecuted")
	ErrProposalPassed      = sentinel(KindState, "ProposalPassed")
	ErrNoInvestment        = sentinel(KindState, "NoInvestment")
	ErrAlreadyRefunded     = sentinel(KindState, "AlreadyRefunded")
	ErrFeeAlreadyRefunded  = sentinel(KindState, "FeeAlreadyRefunded")
	ErrFeeNotRefundable    = sentinel(KindState, "FeeNotRefundable")
	ErrPaused              = sentinel(KindState, "Paused")
	ErrNotPaused           = sentinel(KindState, "NotPaused")
	ErrInsufficientFunds   = sentinel(KindState, "InsufficientTreasury")
	ErrMultiSigNotFound    = sentinel(KindState, "MultiSigNotFound")
	ErrNotPending          = sentinel(KindState, "NotPending")
	ErrApprovalExpired     = sentinel(KindState, "ApprovalWindowExpired")
	ErrAlreadyApproved     = sentinel(KindState, "AlreadyApproved")
	ErrAlreadyRejected     = sentinel(KindState, "AlreadyRejected")
	ErrParamNotFound       = sentinel(KindState, "ParameterProposalNotFound")
	ErrAlreadyAdmin        = sentinel(KindState, "AlreadyAdmin")

	ErrLedger = sentinel(KindLedger, "LedgerFailure")

	ErrNotAdmin    = sentinel(KindAuthorization, "NotAdmin")
	ErrNotProposer = sentinel(KindAuthorization, "NotProposerOrAdmin")

	ErrSafetyFloor          = sentinel(KindBounds, "SafetyFloor")
	ErrVotingWindowTooLong  = sentinel(KindBounds, "VotingWindowTooLong")
	ErrInvalidDuration      = sentinel(KindBounds, "InvalidDuration")
	ErrParameterOutOfBounds = sentinel(KindBounds, "ParameterOutOfBounds")
	ErrUnknownParameter     = sentinel(KindBounds, "UnknownParameter")
	ErrUnknownAction        = sentinel(KindBounds, "UnknownAction")
)
