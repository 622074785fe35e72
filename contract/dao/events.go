package dao

import (
	"fmt"
	"strconv"

	"github.com/CosmWasm/tinyjson/jwriter"
	"github.com/ethereum/go-ethereum/common"

	"ganjes_dao/sdk"
)

// Event kinds, also used as the NATS subject suffix.
const (
	KindProposalCreated          = "proposal_created"
	KindVoted                    = "voted"
	KindProposalExecuted         = "proposal_executed"
	KindInvestmentRefunded       = "investment_refunded"
	KindProposalFeeRefunded      = "proposal_fee_refunded"
	KindParameterChanged         = "parameter_changed"
	KindParameterProposalCreated = "parameter_proposal_created"
	KindVotingTimeChanged        = "voting_time_changed"
	KindMultiSigProposalCreated  = "multisig_proposal_created"
	KindMultiSigApproved         = "multisig_approved"
	KindMultiSigExecuted         = "multisig_executed"
	KindPaused                   = "paused"
	KindUnpaused                 = "unpaused"
	KindDeposited                = "deposited"
	KindWithdrawn                = "withdrawn"
	KindAdminAdded               = "admin_added"
	KindFeePolicyChanged         = "fee_policy_changed"
)

// Event is anything the engine announces after a commit. LogLine is the terse
// pipe separated form watchers grep for, MarshalTinyJSON the structured body.
type Event interface {
	Kind() string
	LogLine() string
	MarshalTinyJSON(w *jwriter.Writer)
}

// -----------------------------------------------------------------------------
// Proposal lifecycle
// -----------------------------------------------------------------------------

type ProposalCreated struct {
	ProposalID  uint64
	Proposer    common.Address
	ProjectName string
	FundingGoal sdk.Amount
	CreationFee sdk.Amount
	EndTime     int64
}

func (e ProposalCreated) Kind() string { return KindProposalCreated }

func (e ProposalCreated) LogLine() string {
	return fmt.Sprintf("pc|id:%d|by:%s|goal:%d|end:%d", e.ProposalID, e.Proposer.Hex(), e.FundingGoal, e.EndTime)
}

func (e ProposalCreated) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"proposalId":`)
	w.Uint64(e.ProposalID)
	writeAddressField(w, "proposer", e.Proposer)
	w.RawString(`,"projectName":`)
	w.String(e.ProjectName)
	writeAmountField(w, "fundingGoal", e.FundingGoal)
	writeAmountField(w, "creationFee", e.CreationFee)
	w.RawString(`,"endTime":`)
	w.Int64(e.EndTime)
	w.RawByte('}')
}

// Voted keeps investment and weight apart, they are different numbers.
type Voted struct {
	ProposalID uint64
	Voter      common.Address
	Support    bool
	Investment sdk.Amount
	Weight     sdk.Amount
}

func (e Voted) Kind() string { return KindVoted }

func (e Voted) LogLine() string {
	return fmt.Sprintf("v|id:%d|by:%s|s:%s|inv:%d|w:%d", e.ProposalID, e.Voter.Hex(), strconv.FormatBool(e.Support), e.Investment, e.Weight)
}

func (e Voted) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"proposalId":`)
	w.Uint64(e.ProposalID)
	writeAddressField(w, "voter", e.Voter)
	w.RawString(`,"support":`)
	w.Bool(e.Support)
	writeAmountField(w, "investment", e.Investment)
	writeAmountField(w, "weight", e.Weight)
	w.RawByte('}')
}

type ProposalExecuted struct {
	ProposalID uint64
	Passed     bool
	Payout     sdk.Amount
}

func (e ProposalExecuted) Kind() string { return KindProposalExecuted }

func (e ProposalExecuted) LogLine() string {
	return fmt.Sprintf("px|id:%d|p:%s|am:%d", e.ProposalID, strconv.FormatBool(e.Passed), e.Payout)
}

func (e ProposalExecuted) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"proposalId":`)
	w.Uint64(e.ProposalID)
	w.RawString(`,"passed":`)
	w.Bool(e.Passed)
	writeAmountField(w, "payout", e.Payout)
	w.RawByte('}')
}

type InvestmentRefunded struct {
	ProposalID uint64
	Voter      common.Address
	Amount     sdk.Amount
}

func (e InvestmentRefunded) Kind() string { return KindInvestmentRefunded }

func (e InvestmentRefunded) LogLine() string {
	return fmt.Sprintf("rf|id:%d|to:%s|am:%d", e.ProposalID, e.Voter.Hex(), e.Amount)
}

func (e InvestmentRefunded) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"proposalId":`)
	w.Uint64(e.ProposalID)
	writeAddressField(w, "voter", e.Voter)
	writeAmountField(w, "amount", e.Amount)
	w.RawByte('}')
}

type ProposalFeeRefunded struct {
	ProposalID uint64
	Proposer   common.Address
	Amount     sdk.Amount
}

func (e ProposalFeeRefunded) Kind() string { return KindProposalFeeRefunded }

func (e ProposalFeeRefunded) LogLine() string {
	return fmt.Sprintf("ff|id:%d|to:%s|am:%d", e.ProposalID, e.Proposer.Hex(), e.Amount)
}

func (e ProposalFeeRefunded) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"proposalId":`)
	w.Uint64(e.ProposalID)
	writeAddressField(w, "proposer", e.Proposer)
	writeAmountField(w, "amount", e.Amount)
	w.RawByte('}')
}

type VotingTimeChanged struct {
	ProposalID uint64
	OldEndTime int64
	NewEndTime int64
}

func (e VotingTimeChanged) Kind() string { return KindVotingTimeChanged }

func (e VotingTimeChanged) LogLine() string {
	return fmt.Sprintf("vt|id:%d|old:%d|new:%d", e.ProposalID, e.OldEndTime, e.NewEndTime)
}

func (e VotingTimeChanged) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"proposalId":`)
	w.Uint64(e.ProposalID)
	w.RawString(`,"oldEndTime":`)
	w.Int64(e.OldEndTime)
	w.RawString(`,"newEndTime":`)
	w.Int64(e.NewEndTime)
	w.RawByte('}')
}

// -----------------------------------------------------------------------------
// Governance parameters
// -----------------------------------------------------------------------------

type ParameterProposalCreated struct {
	ID            uint64
	Name          string
	Value         uint64
	Justification string
	Proposer      common.Address
}

func (e ParameterProposalCreated) Kind() string { return KindParameterProposalCreated }

func (e ParameterProposalCreated) LogLine() string {
	return fmt.Sprintf("gp|id:%d|f:%s|v:%d|by:%s", e.ID, e.Name, e.Value, e.Proposer.Hex())
}

func (e ParameterProposalCreated) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.Uint64(e.ID)
	w.RawString(`,"name":`)
	w.String(e.Name)
	w.RawString(`,"value":`)
	w.Uint64(e.Value)
	w.RawString(`,"justification":`)
	w.String(e.Justification)
	writeAddressField(w, "proposer", e.Proposer)
	w.RawByte('}')
}

type ParameterChanged struct {
	Name     string
	OldValue uint64
	NewValue uint64
}

func (e ParameterChanged) Kind() string { return KindParameterChanged }

func (e ParameterChanged) LogLine() string {
	return fmt.Sprintf("pm|f:%s|old:%d|new:%d", e.Name, e.OldValue, e.NewValue)
}

func (e ParameterChanged) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"name":`)
	w.String(e.Name)
	w.RawString(`,"oldValue":`)
	w.Uint64(e.OldValue)
	w.RawString(`,"newValue":`)
	w.Uint64(e.NewValue)
	w.RawByte('}')
}

// -----------------------------------------------------------------------------
// Multisig and admin
// -----------------------------------------------------------------------------

type MultiSigProposalCreated struct {
	ID       uint64
	Action   string
	Value    uint64
	Target   common.Address
	Proposer common.Address
}

func (e MultiSigProposalCreated) Kind() string { return KindMultiSigProposalCreated }

func (e MultiSigProposalCreated) LogLine() string {
	return fmt.Sprintf("mc|id:%d|a:%s|v:%d|t:%s|by:%s", e.ID, e.Action, e.Value, e.Target.Hex(), e.Proposer.Hex())
}

func (e MultiSigProposalCreated) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.Uint64(e.ID)
	w.RawString(`,"action":`)
	w.String(e.Action)
	w.RawString(`,"value":`)
	w.Uint64(e.Value)
	writeAddressField(w, "target", e.Target)
	writeAddressField(w, "proposer", e.Proposer)
	w.RawByte('}')
}

type MultiSigApproved struct {
	ID        uint64
	Approver  common.Address
	Approvals int
	Required  int
}

func (e MultiSigApproved) Kind() string { return KindMultiSigApproved }

func (e MultiSigApproved) LogLine() string {
	return fmt.Sprintf("ma|id:%d|by:%s|n:%d/%d", e.ID, e.Approver.Hex(), e.Approvals, e.Required)
}

func (e MultiSigApproved) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.Uint64(e.ID)
	writeAddressField(w, "approver", e.Approver)
	w.RawString(`,"approvals":`)
	w.Int(e.Approvals)
	w.RawString(`,"required":`)
	w.Int(e.Required)
	w.RawByte('}')
}

type MultiSigExecuted struct {
	ID     uint64
	Action string
}

func (e MultiSigExecuted) Kind() string { return KindMultiSigExecuted }

func (e MultiSigExecuted) LogLine() string {
	return fmt.Sprintf("mx|id:%d|a:%s", e.ID, e.Action)
}

func (e MultiSigExecuted) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.Uint64(e.ID)
	w.RawString(`,"action":`)
	w.String(e.Action)
	w.RawByte('}')
}

// Paused and Unpaused carry the multisig proposal that flipped the switch.
type Paused struct{ MultiSigID uint64 }

func (e Paused) Kind() string    { return KindPaused }
func (e Paused) LogLine() string { return fmt.Sprintf("pz|ms:%d", e.MultiSigID) }
func (e Paused) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"multiSigId":`)
	w.Uint64(e.MultiSigID)
	w.RawByte('}')
}

type Unpaused struct{ MultiSigID uint64 }

func (e Unpaused) Kind() string    { return KindUnpaused }
func (e Unpaused) LogLine() string { return fmt.Sprintf("uz|ms:%d", e.MultiSigID) }
func (e Unpaused) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"multiSigId":`)
	w.Uint64(e.MultiSigID)
	w.RawByte('}')
}

type AdminAdded struct {
	MultiSigID uint64
	Admin      common.Address
}

func (e AdminAdded) Kind() string { return KindAdminAdded }

func (e AdminAdded) LogLine() string {
	return fmt.Sprintf("aa|ms:%d|who:%s", e.MultiSigID, e.Admin.Hex())
}

func (e AdminAdded) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"multiSigId":`)
	w.Uint64(e.MultiSigID)
	writeAddressField(w, "admin", e.Admin)
	w.RawByte('}')
}

type FeePolicyChanged struct {
	MultiSigID uint64
	Refundable bool
}

func (e FeePolicyChanged) Kind() string { return KindFeePolicyChanged }

func (e FeePolicyChanged) LogLine() string {
	return fmt.Sprintf("fp|ms:%d|r:%s", e.MultiSigID, strconv.FormatBool(e.Refundable))
}

func (e FeePolicyChanged) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"multiSigId":`)
	w.Uint64(e.MultiSigID)
	w.RawString(`,"refundable":`)
	w.Bool(e.Refundable)
	w.RawByte('}')
}

// -----------------------------------------------------------------------------
// Treasury
// -----------------------------------------------------------------------------

type Deposited struct {
	From   common.Address
	Amount sdk.Amount
}

func (e Deposited) Kind() string { return KindDeposited }

func (e Deposited) LogLine() string {
	return fmt.Sprintf("af|by:%s|am:%d", e.From.Hex(), e.Amount)
}

func (e Deposited) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"from":`)
	w.String(e.From.Hex())
	writeAmountField(w, "amount", e.Amount)
	w.RawByte('}')
}

type Withdrawn struct {
	MultiSigID uint64
	To         common.Address
	Amount     sdk.Amount
}

func (e Withdrawn) Kind() string { return KindWithdrawn }

func (e Withdrawn) LogLine() string {
	return fmt.Sprintf("wd|ms:%d|to:%s|am:%d", e.MultiSigID, e.To.Hex(), e.Amount)
}

func (e Withdrawn) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"multiSigId":`)
	w.Uint64(e.MultiSigID)
	writeAddressField(w, "to", e.To)
	writeAmountField(w, "amount", e.Amount)
	w.RawByte('}')
}

func writeAddressField(w *jwriter.Writer, name string, a common.Address) {
	w.RawString(`,"` + name + `":`)
	w.String(a.Hex())
}

// writeAmountField writes amounts as decimal strings.
func writeAmountField(w *jwriter.Writer, name string, v sdk.Amount) {
	w.RawString(`,"` + name + `":`)
	w.String(v.String())
}
