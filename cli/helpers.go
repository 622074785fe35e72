package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"

	"ganjes_dao/contract"
	"ganjes_dao/sdk"
)

// Package-level color styles
var (
	successStyle  = color.New(color.FgGreen)
	failStyle     = color.New(color.FgRed)
	pendingStyle  = color.New(color.FgYellow)
	addressStyle  = color.New(color.FgWhite)
	headerStyle   = color.New(color.Bold, color.FgHiWhite)
	faintStyle    = color.New(color.Faint)
	activeStyle   = color.New(color.FgCyan)
	highlightBold = color.New(color.Bold)
)

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseAmount(raw string) (sdk.Amount, error) {
	return sdk.ParseAmount(raw)
}

// parseSupport accepts for/against next to the usual boolean spellings.
func parseSupport(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "for", "yes", "y", "true", "1":
		return true, nil
	case "against", "no", "n", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("support must be for or against, got %q", raw)
	}
}

// parseSeconds takes plain seconds or a Go duration like 36h.
func parseSeconds(raw string) (uint64, error) {
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return uint64(d / time.Second), nil
}

func formatTime(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}

func formatLeft(seconds int64) string {
	if seconds <= 0 {
		return "ended"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func shortAddress(a common.Address) string {
	hex := a.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

func statusStyle(s contract.ProposalStatus) *color.Color {
	switch s {
	case contract.StatusPassed:
		return successStyle
	case contract.StatusFailed:
		return failStyle
	case contract.StatusResolvable:
		return pendingStyle
	default:
		return activeStyle
	}
}

func gateStyle(s contract.GateState) *color.Color {
	switch s {
	case contract.GateExecuted:
		return successStyle
	case contract.GateRejected, contract.GateExpired:
		return failStyle
	case contract.GateApproved:
		return pendingStyle
	default:
		return activeStyle
	}
}

// done prints a green check line.
func done(out io.Writer, format string, args ...any) {
	successStyle.Fprint(out, "✓ ")
	fmt.Fprintf(out, format+"\n", args...)
}

// describeError renders engine errors with their kind and any shortfall.
func describeError(err error) string {
	var e *contract.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	var extra []string
	if e.Shortfall > 0 {
		extra = append(extra, "shortfall "+e.Shortfall.String())
	}
	if e.Remaining > 0 {
		extra = append(extra, "remaining "+formatLeft(e.Remaining))
	}
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Error())
	if len(extra) > 0 {
		msg += " (" + strings.Join(extra, ", ") + ")"
	}
	return msg
}
