package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"ganjes_dao/contract"
	"ganjes_dao/sdk"
)

// NewProposeCmd creates the propose command
func NewProposeCmd() *cobra.Command {
	var in contract.ProposalInput
	var goal string

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Submit a funding proposal",
		Long: `Submit a funding proposal. The caller needs the minimum token balance plus
the creation fee, and must have approved the engine for the fee.

Examples:
  ganjes propose --goal 500 --name "Solar Kiosk" --description "Panels for the market square"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := app.Caller()
			if err != nil {
				return err
			}
			if in.FundingGoal, err = parseAmount(goal); err != nil {
				return err
			}
			id, err := app.Engine.CreateProposal(cmd.Context(), caller, in)
			if err != nil {
				return err
			}
			p, err := app.Engine.Proposal(id)
			if err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "proposal %d created, voting ends %s", id, formatTime(p.EndTime))
			return nil
		},
	}
	cmd.Flags().StringVar(&goal, "goal", "", "Funding goal in tokens")
	cmd.Flags().StringVar(&in.ProjectName, "name", "", "Project name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Project description")
	cmd.Flags().StringVar(&in.ProjectURL, "url", "", "Project URL")
	_ = cmd.MarkFlagRequired("goal")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

// NewRequirementsCmd shows every eligibility check for creating a proposal.
func NewRequirementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requirements [address]",
		Short: "Check whether an address may create a proposal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			who, err := addressArgOrCaller(app, args)
			if err != nil {
				return err
			}
			req, err := app.Engine.CheckProposalRequirements(cmd.Context(), who)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			check := func(label string, ok bool) {
				if ok {
					successStyle.Fprintf(out, "  ✓ %s\n", label)
				} else {
					failStyle.Fprintf(out, "  ✗ %s\n", label)
				}
			}
			addressStyle.Fprintln(out, who.Hex())
			check("not paused", !req.Paused)
			check(fmt.Sprintf("balance %s covers %s", req.UserBalance, req.RequiredBalance), req.HasMinTokens && req.HasDepositTokens)
			check(fmt.Sprintf("allowance %s covers fee %s", req.CurrentAllowance, req.CreationFee), req.HasAllowance)
			check(fmt.Sprintf("%d open proposals below limit", req.OpenProposals), req.BelowMaxProposals)
			check("cooldown passed", req.CooldownPassed)
			if req.CanCreateProposal {
				highlightBold.Fprintln(out, req.StatusMessage)
			} else {
				failStyle.Fprintln(out, req.StatusMessage)
			}
			return nil
		},
	}
}

func NewVoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <proposal-id> <for|against> <investment>",
		Short: "Vote on a proposal by locking an investment",
		Args:  cobra.ExactArgs(3),
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
			support, err := parseSupport(args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			if err := app.Engine.Vote(cmd.Context(), caller, id, support, amount); err != nil {
				return err
			}
			side := "against"
			if support {
				side = "for"
			}
			done(cmd.OutOrStdout(), "voted %s proposal %d with %s", side, id, amount)
			return nil
		},
	}
}

func NewExecuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <proposal-id>",
		Short: "Resolve a proposal whose voting window has closed",
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
			res, err := app.Engine.ExecuteProposal(cmd.Context(), caller, id)
			if err != nil {
				return err
			}
			printResolution(cmd, res)
			return nil
		},
	}
}

func printResolution(cmd *cobra.Command, res *contract.Resolution) {
	out := cmd.OutOrStdout()
	if res.Passed {
		successStyle.Fprintf(out, "proposal %d passed, %s paid to %s\n", res.ProposalID, res.Payout, res.Recipient.Hex())
		return
	}
	reason := "majority against"
	if !res.QuorumMet {
		reason = "quorum not met"
	}
	failStyle.Fprintf(out, "proposal %d failed (%s), investments are refundable\n", res.ProposalID, reason)
}

func NewExecuteDueCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "execute-due",
		Short: "Resolve every proposal whose window has closed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := app.Caller()
			if err != nil {
				return err
			}
			results, err := app.Engine.ExecuteDue(cmd.Context(), caller, limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No proposals due")
				return nil
			}
			for _, r := range results {
				if r.Err != nil {
					failStyle.Fprintf(cmd.OutOrStdout(), "proposal %d: %s\n", r.ProposalID, describeError(r.Err))
					continue
				}
				printResolution(cmd, r.Resolution)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Resolve at most this many (0 = all)")
	return cmd
}

func NewRefundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund <proposal-id>",
		Short: "Return every open investment of a failed proposal",
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
			rep, err := app.Engine.RefundInvestments(cmd.Context(), caller, id)
			out := cmd.OutOrStdout()
			if rep != nil {
				for _, r := range rep.Refunded {
					fmt.Fprintf(out, "  %s  %s\n", addressStyle.Sprint(r.Voter.Hex()), r.Amount)
				}
			}
			if err != nil {
				if rep != nil && rep.Pending > 0 {
					pendingStyle.Fprintf(out, "%d refunds still pending\n", rep.Pending)
				}
				return err
			}
			done(out, "refunded %d investors, %s total", len(rep.Refunded), rep.Total)
			return nil
		},
	}
}

func NewClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <proposal-id>",
		Short: "Claim back the caller's investment in a failed proposal",
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
			amount, err := app.Engine.ClaimRefund(cmd.Context(), caller, id)
			if err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "claimed %s from proposal %d", amount, id)
			return nil
		},
	}
}

func NewRefundFeeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund-fee <proposal-id>",
		Short: "Return the creation fee of a failed proposal, when the fee policy allows it",
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
			if err := app.Engine.RefundProposalFee(cmd.Context(), caller, id); err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "creation fee of proposal %d refunded", id)
			return nil
		},
	}
}

// NewDurationCmd groups the admin voting window adjustments.
func NewDurationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duration",
		Short: "Adjust the voting window of an active proposal (admin)",
	}
	for _, increase := range []bool{true, false} {
		use, short := "increase", "Extend the voting window"
		if !increase {
			use, short = "decrease", "Shorten the voting window, keeping the safety floor"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use + " <proposal-id> <seconds|duration>",
			Short: short,
			Args:  cobra.ExactArgs(2),
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
				secs, err := parseSeconds(args[1])
				if err != nil {
					return err
				}
				var end int64
				if increase {
					end, err = app.Engine.IncreaseVotingDuration(cmd.Context(), caller, id, secs)
				} else {
					end, err = app.Engine.DecreaseVotingDuration(cmd.Context(), caller, id, secs)
				}
				if err != nil {
					return err
				}
				done(cmd.OutOrStdout(), "proposal %d now ends %s", id, formatTime(end))
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the voting duration and its bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			info, err := app.Engine.VotingDurationInfo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "current:      %s\n", formatLeft(int64(info.Current)))
			fmt.Fprintf(out, "bounds:       %s .. %s\n", formatLeft(int64(info.Min)), formatLeft(int64(info.Max)))
			fmt.Fprintf(out, "safety floor: %s\n", formatLeft(int64(info.SafetyFloor)))
			return nil
		},
	})
	return cmd
}

func addressArgOrCaller(app *App, args []string) (common.Address, error) {
	if len(args) > 0 {
		return sdk.ParseAddress(args[0])
	}
	return app.Caller()
}
