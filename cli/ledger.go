package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"ganjes_dao/sdk"
)

// NewInitCmd seeds the data dir. Opening the app already writes genesis on an
// empty store, so this only reports what is in effect.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data dir and write genesis from config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			s := app.Engine.Settings()
			done(out, "engine %s ready in %s", app.Engine.Address().Hex(), app.Config.DataDir)
			fmt.Fprintf(out, "  quorum rule:        %s\n", s.QuorumRule)
			fmt.Fprintf(out, "  required approvals: %d\n", s.RequiredApprovals)
			fmt.Fprintf(out, "  funding goal band:  %d..%d\n", s.MinFundingGoal, s.MaxFundingGoal)
			return nil
		},
	}
}

// NewMintCmd credits tokens on the local book. Only meaningful for the
// state-backed ledger the cli runs against.
func NewMintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint <address> <amount>",
		Short: "Mint tokens on the local token book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			to, err := sdk.ParseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			if err := app.Ledger.Mint(cmd.Context(), to, amount); err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "minted %s to %s", amount, to.Hex())
			return nil
		},
	}
}

func NewApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <amount>",
		Short: "Allow the engine to pull up to amount from the caller",
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
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			if err := app.Ledger.Approve(cmd.Context(), caller, app.Engine.Address(), amount); err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "%s approved %s for the engine", caller.Hex(), amount)
			return nil
		},
	}
}

func NewBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show token balance and engine allowance (defaults to the caller)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			var who common.Address
			if len(args) == 1 {
				who, err = sdk.ParseAddress(args[0])
			} else {
				who, err = app.Caller()
			}
			if err != nil {
				return err
			}
			bal, err := app.Ledger.BalanceOf(cmd.Context(), who)
			if err != nil {
				return err
			}
			alw, err := app.Ledger.Allowance(cmd.Context(), who, app.Engine.Address())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			addressStyle.Fprintln(out, who.Hex())
			fmt.Fprintf(out, "  balance:   %s\n", bal)
			fmt.Fprintf(out, "  allowance: %s\n", alw)
			return nil
		},
	}
}

func NewDepositCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Donate tokens to the DAO treasury",
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
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			if err := app.Engine.Deposit(cmd.Context(), caller, amount); err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "deposited %s into the treasury", amount)
			return nil
		},
	}
}
