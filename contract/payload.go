package contract

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"ganjes_dao/sdk"
)

// Calls arrive as pipe-delimited payloads, one field per argument. Missing
// trailing fields read as empty.

type fieldList []string

func splitPayload(payload string) (fieldList, error) {
	raw, err := unwrapPayload(payload)
	if err != nil {
		return nil, err
	}
	return strings.Split(raw, "|"), nil
}

func (f fieldList) get(i int) string {
	if i < len(f) {
		return strings.TrimSpace(f[i])
	}
	return ""
}

// unwrapPayload trims quotes and whitespace and rejects empty payloads.
func unwrapPayload(payload string) (string, error) {
	raw := strings.TrimSpace(payload)
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			if unquoted, err := strconv.Unquote(raw); err == nil {
				raw = unquoted
			} else {
				raw = raw[1 : len(raw)-1]
			}
			raw = strings.TrimSpace(raw)
		}
	}
	if raw == "" {
		return "", fail(ErrInvalidInput, "payload missing")
	}
	return raw, nil
}

// parseUintField names the field in the error so callers see what broke.
func parseUintField(val, field string) (uint64, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, fail(ErrInvalidInput, "%s missing", field)
	}
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fail(ErrInvalidInput, "invalid %s %q", field, val)
	}
	return n, nil
}

func parseAmountField(val, field string) (Amount, error) {
	a, err := sdk.ParseAmount(strings.TrimSpace(val))
	if err != nil {
		return 0, fail(ErrInvalidAmount, "invalid %s: %v", field, err)
	}
	return a, nil
}

func parseAddressField(val, field string) (common.Address, error) {
	a, err := sdk.ParseAddress(strings.TrimSpace(val))
	if err != nil {
		return common.Address{}, fail(ErrInvalidInput, "invalid %s: %v", field, err)
	}
	return a, nil
}

// parseBoolField accepts a couple of truthy keywords, unknown text is false.
func parseBoolField(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "y", "for":
		return true
	default:
		return false
	}
}

// decodeProposalInput expects `fundingGoal|projectName|description|url`.
// Example payload: 200|Solar Kiosk|Panels for the market square|https://example.org/kiosk
func decodeProposalInput(payload string) (ProposalInput, error) {
	f, err := splitPayload(payload)
	if err != nil {
		return ProposalInput{}, err
	}
	goal, err := parseAmountField(f.get(0), "funding goal")
	if err != nil {
		return ProposalInput{}, err
	}
	return ProposalInput{
		FundingGoal: goal,
		ProjectName: f.get(1),
		Description: f.get(2),
		ProjectURL:  f.get(3),
	}, nil
}

type voteArgs struct {
	ProposalID uint64
	Support    bool
	Investment Amount
}

// decodeVoteArgs expects `proposalId|support|investment`.
// Example payload: 1|true|60
func decodeVoteArgs(payload string) (*voteArgs, error) {
	f, err := splitPayload(payload)
	if err != nil {
		return nil, err
	}
	if len(f) < 3 {
		return nil, fail(ErrInvalidInput, "vote payload requires proposalId|support|investment")
	}
	id, err := parseUintField(f.get(0), "proposal id")
	if err != nil {
		return nil, err
	}
	amount, err := parseAmountField(f.get(2), "investment")
	if err != nil {
		return nil, err
	}
	return &voteArgs{ProposalID: id, Support: parseBoolField(f.get(1)), Investment: amount}, nil
}

// decodeProposalID reads a bare id payload.
// Example payload: 7
func decodeProposalID(payload string) (uint64, error) {
	f, err := splitPayload(payload)
	if err != nil {
		return 0, err
	}
	return parseUintField(f.get(0), "id")
}

type durationArgs struct {
	ProposalID uint64
	Seconds    uint64
}

// decodeDurationArgs expects `proposalId|seconds`.
// Example payload: 3|86400
func decodeDurationArgs(payload string) (*durationArgs, error) {
	f, err := splitPayload(payload)
	if err != nil {
		return nil, err
	}
	id, err := parseUintField(f.get(0), "proposal id")
	if err != nil {
		return nil, err
	}
	secs, err := parseUintField(f.get(1), "seconds")
	if err != nil {
		return nil, err
	}
	return &durationArgs{ProposalID: id, Seconds: secs}, nil
}

type paramArgs struct {
	Name          string
	Value         uint64
	Justification string
}

// decodeParamArgs expects `name|value|justification`. The justification may
// itself contain pipes.
// Example payload: minQuorumPercent|60|raise participation bar
func decodeParamArgs(payload string) (*paramArgs, error) {
	raw, err := unwrapPayload(payload)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(raw, "|", 3)
	if len(parts) < 3 {
		return nil, fail(ErrInvalidInput, "parameter payload requires name|value|justification")
	}
	v, err := parseUintField(parts[1], "value")
	if err != nil {
		return nil, err
	}
	return &paramArgs{Name: strings.TrimSpace(parts[0]), Value: v, Justification: strings.TrimSpace(parts[2])}, nil
}

type multiSigArgs struct {
	Action MultiSigAction
	Value  uint64
	Target common.Address
}

// decodeMultiSigArgs expects `action|value|target`. Duration actions take the
// seconds in place of the target address.
// Example payload: withdraw|50|0x00000000000000000000000000000000000000b0
// Example payload: decreaseVotingDuration|3|3600
func decodeMultiSigArgs(payload string) (*multiSigArgs, error) {
	f, err := splitPayload(payload)
	if err != nil {
		return nil, err
	}
	action, err := ParseMultiSigAction(f.get(0))
	if err != nil {
		return nil, err
	}
	args := &multiSigArgs{Action: action}
	if v := f.get(1); v != "" {
		if args.Value, err = parseUintField(v, "value"); err != nil {
			return nil, err
		}
	}
	target := f.get(2)
	switch {
	case target == "":
	case action == ActionIncreaseVotingDuration || action == ActionDecreaseVotingDuration:
		secs, err := parseUintField(target, "seconds")
		if err != nil {
			return nil, err
		}
		args.Target = sdk.SecondsToAddress(secs)
	default:
		if args.Target, err = parseAddressField(target, "target"); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// decodeAmount reads a bare amount payload.
// Example payload: 500
func decodeAmount(payload string) (Amount, error) {
	f, err := splitPayload(payload)
	if err != nil {
		return 0, err
	}
	return parseAmountField(f.get(0), "amount")
}
