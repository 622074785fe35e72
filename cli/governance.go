package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"ganjes_dao/contract"
	"ganjes_dao/sdk"
)

// -----------------------------------------------------------------------------
// Governance parameters
// -----------------------------------------------------------------------------

// NewParamCmd groups the governance parameter commands.
func NewParamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "param",
		Aliases: []string{"params"},
		Short:   "Propose, approve and list governance parameters",
	}
	cmd.AddCommand(newParamProposeCmd(), newParamApproveCmd(), newParamListCmd())
	return cmd
}

func newParamProposeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "propose <name> <value> <justification...>",
		Short: "Propose a parameter change (admin)",
		Long: `Propose a parameter change. Direct parameters apply at once, sensitive ones
wait for the multisig threshold of admin approvals.

Examples:
  ganjes param propose minQuorumPercent 60 raise the participation bar
  ganjes param propose votingDuration 72h shorter rounds`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := app.Caller()
			if err != nil {
				return err
			}
			value, err := parseParamValue(args[0], args[1])
			if err != nil {
				return err
			}
			justification := strings.Join(args[2:], " ")
			id, err := app.Engine.CreateParameterProposal(cmd.Context(), caller, args[0], value, justification)
			if err != nil {
				return err
			}
			gp, err := app.Engine.ParameterProposal(id)
			if err != nil {
				return err
			}
			if gp.State == contract.GateExecuted {
				done(cmd.OutOrStdout(), "parameter proposal %d applied: %s = %d", id, gp.Name, gp.NewValue)
				return nil
			}
			pendingStyle.Fprintf(cmd.OutOrStdout(), "parameter proposal %d waiting for approvals (%d/%d)\n",
				id, len(gp.Approvals), app.Engine.RequiredApprovals())
			return nil
		},
	}
}

// parseParamValue lets duration parameters take 36h style values.
func parseParamValue(name, raw string) (uint64, error) {
	if name == contract.ParamVotingDuration || name == contract.ParamProposalCooldown {
		return parseSeconds(raw)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s", raw, name)
	}
	return v, nil
}

func newParamApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <param-proposal-id>",
		Short: "Approve a pending parameter change (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := app.Caller()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			applied, err := app.Engine.ApproveParameterProposal(cmd.Context(), caller, id)
			if err != nil {
				return err
			}
			if applied {
				done(cmd.OutOrStdout(), "parameter proposal %d applied", id)
			} else {
				done(cmd.OutOrStdout(), "parameter proposal %d approved", id)
			}
			return nil
		},
	}
}

func newParamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show current parameters and parameter proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			params, err := app.Engine.GovernanceParameters()
			if err != nil {
				return err
			}
			values := contract.ParameterTable(params)
			out := cmd.OutOrStdout()

			t := newTable(out)
			t.AppendHeader(table.Row{"PARAMETER", "VALUE", "CLASS", "BOUNDS"})
			for _, name := range contract.ParameterNames() {
				class, _ := contract.ParameterClass(name)
				low, high, err := app.Engine.ParameterBounds(name)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{name, values[name], class, fmt.Sprintf("%d..%d", low, high)})
			}
			t.Render()

			ids, err := app.Engine.ParameterProposalIDs()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			t = newTable(out)
			t.AppendHeader(table.Row{"ID", "PARAMETER", "OLD", "NEW", "APPROVALS", "STATE", "EXPIRES"})
			for _, id := range ids {
				gp, err := app.Engine.ParameterProposal(id)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{
					gp.ID, gp.Name, gp.OldValue, gp.NewValue,
					fmt.Sprintf("%d/%d", len(gp.Approvals), app.Engine.RequiredApprovals()),
					gateStyle(gp.State).Sprint(gp.State),
					formatTime(gp.ExpiresAt),
				})
			}
			t.Render()
			return nil
		},
	}
}

// -----------------------------------------------------------------------------
// Multisig
// -----------------------------------------------------------------------------

// NewMultiSigCmd groups the admin multisig commands.
func NewMultiSigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "multisig",
		Short: "Create and approve admin actions",
	}
	cmd.AddCommand(
		newMultiSigCreateCmd(),
		newMultiSigDecisionCmd("approve", "Approve a pending action (admin)"),
		newMultiSigDecisionCmd("reject", "Reject a pending action (admin)"),
		newMultiSigDecisionCmd("execute", "Retry an approved action whose run failed (admin)"),
		newMultiSigShowCmd(),
		newMultiSigListCmd(),
	)
	return cmd
}

func newMultiSigCreateCmd() *cobra.Command {
	var value uint64
	var target string

	cmd := &cobra.Command{
		Use:   "create <action>",
		Short: "Open an admin action; the creator's approval counts",
		Long: `Open an admin action. Actions and their arguments:

  pause, unpause
  withdraw                 --value amount --target recipient
  addAdmin                 --target address
  setFeeRefundable         --value 1 enables, 0 disables
  increaseVotingDuration   --value proposal id --target seconds or duration
  decreaseVotingDuration   --value proposal id --target seconds or duration
  executeProposal          --value proposal id`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := app.Caller()
			if err != nil {
				return err
			}
			action, err := contract.ParseMultiSigAction(args[0])
			if err != nil {
				return err
			}
			addr, err := multiSigTarget(action, target)
			if err != nil {
				return err
			}
			id, err := app.Engine.CreateMultiSigProposal(cmd.Context(), caller, action, value, addr)
			if id == 0 && err != nil {
				return err
			}
			if err != nil {
				failStyle.Fprintf(cmd.OutOrStdout(), "multisig proposal %d approved but the action failed\n", id)
				return err
			}
			return printMultiSigState(cmd, app, id)
		},
	}
	cmd.Flags().Uint64Var(&value, "value", 0, "Amount, proposal id or flag depending on the action")
	cmd.Flags().StringVar(&target, "target", "", "Address, or seconds for duration actions")
	return cmd
}

func multiSigTarget(action contract.MultiSigAction, raw string) (common.Address, error) {
	if raw == "" {
		return sdk.ZeroAddress, nil
	}
	if action == contract.ActionIncreaseVotingDuration || action == contract.ActionDecreaseVotingDuration {
		secs, err := parseSeconds(raw)
		if err != nil {
			return sdk.ZeroAddress, err
		}
		return sdk.SecondsToAddress(secs), nil
	}
	return sdk.ParseAddress(raw)
}

func newMultiSigDecisionCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <multisig-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := app.Caller()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			switch verb {
			case "approve":
				err = app.Engine.ApproveMultiSigProposal(cmd.Context(), caller, id)
			case "reject":
				err = app.Engine.RejectMultiSigProposal(cmd.Context(), caller, id)
			default:
				err = app.Engine.ExecuteMultiSigProposal(cmd.Context(), caller, id)
			}
			if err != nil {
				return err
			}
			return printMultiSigState(cmd, app, id)
		},
	}
}

func printMultiSigState(cmd *cobra.Command, app *App, id uint64) error {
	m, err := app.Engine.MultiSigProposal(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "multisig %d %s: %s (%d/%d approvals)\n",
		m.ID, m.Action, gateStyle(m.State).Sprint(m.State), len(m.Approvals), app.Engine.RequiredApprovals())
	return nil
}

func newMultiSigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <multisig-id>",
		Short: "Show one admin action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := app.Engine.MultiSigProposal(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			headerStyle.Fprintf(out, "Multisig %d: %s\n", m.ID, m.Action)
			fmt.Fprintf(out, "  state:      %s\n", gateStyle(m.State).Sprint(m.State))
			fmt.Fprintf(out, "  value:      %d\n", m.Value)
			fmt.Fprintf(out, "  target:     %s\n", describeTarget(m))
			fmt.Fprintf(out, "  proposer:   %s\n", m.Proposer.Hex())
			fmt.Fprintf(out, "  approvals:  %s\n", joinAddresses(m.Approvals))
			fmt.Fprintf(out, "  rejections: %s\n", joinAddresses(m.Rejections))
			fmt.Fprintf(out, "  created:    %s\n", formatTime(m.CreatedAt))
			fmt.Fprintf(out, "  expires:    %s\n", formatTime(m.ExpiresAt))
			if m.ExecutedAt != 0 {
				fmt.Fprintf(out, "  executed:   %s\n", formatTime(m.ExecutedAt))
			}
			if m.LastError != "" {
				failStyle.Fprintf(out, "  last error: %s\n", m.LastError)
			}
			return nil
		},
	}
}

func describeTarget(m *contract.MultiSigProposal) string {
	if m.Target == sdk.ZeroAddress {
		return "-"
	}
	if m.Action == contract.ActionIncreaseVotingDuration || m.Action == contract.ActionDecreaseVotingDuration {
		if secs, err := sdk.SecondsFromAddress(m.Target); err == nil {
			return formatLeft(int64(secs))
		}
	}
	return m.Target.Hex()
}

func joinAddresses(list []common.Address) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(lo.Map(list, func(a common.Address, _ int) string { return shortAddress(a) }), ", ")
}

func newMultiSigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admin actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			ids, err := app.Engine.MultiSigProposalIDs()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No multisig proposals")
				return nil
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "ACTION", "VALUE", "TARGET", "APPROVALS", "STATE", "EXPIRES"})
			for _, id := range ids {
				m, err := app.Engine.MultiSigProposal(id)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{
					m.ID, m.Action, m.Value, describeTarget(m),
					fmt.Sprintf("%d/%d", len(m.Approvals), app.Engine.RequiredApprovals()),
					gateStyle(m.State).Sprint(m.State),
					formatTime(m.ExpiresAt),
				})
			}
			t.Render()
			return nil
		},
	}
}
