package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"ganjes_dao/config"
)

// session carries the opened app from the pre-run hook back to Run, which
// closes it even when the command failed.
type session struct {
	app *App
}

// Execute is the process entry point.
func Execute() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// Run executes one command line against fresh state.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	s := &session{}
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(context.WithValue(ctx, appKey, s))
	if s.app != nil {
		err = multierr.Append(err, s.app.Close())
	}
	return err
}

// NewRootCmd creates the ganjes command tree
func NewRootCmd() *cobra.Command {
	var configFile string
	var noColor bool
	var showEvents bool

	rootCmd := &cobra.Command{
		Use:   "ganjes",
		Short: "Operator shell for the Ganjes DAO funding engine",
		Long: `ganjes runs the DAO engine against a local data dir: proposals, investment
votes, resolution, refunds, governance parameters and the admin multisig.

Settings come from flags, GANJES_* environment variables and an optional
ganjes.yaml in the working directory or the data dir.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "exports" {
				return nil
			}
			if noColor {
				color.NoColor = true
			}
			s, ok := cmd.Context().Value(appKey).(*session)
			if !ok {
				return fmt.Errorf("command context not prepared, use cli.Run")
			}

			dataDir, _ := cmd.Flags().GetString("data-dir")
			v, err := config.SetupViper(configFile, dataDir, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			a, err := OpenApp(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			s.app = a

			if cfg.Timeout > 0 && cmd.Name() != "keeper" {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
				a.closers = append(a.closers, func() error { cancel(); return nil })
				cmd.SetContext(ctx)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			s, ok := cmd.Context().Value(appKey).(*session)
			if !ok || s.app == nil {
				return nil
			}
			recs := s.app.DrainEvents()
			if !showEvents {
				return nil
			}
			out := cmd.OutOrStdout()
			for _, rec := range recs {
				faintStyle.Fprintf(out, "event %d %s\n", rec.Seq, rec.LogLine())
			}
			return nil
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default ./ganjes.yaml)")
	pf.String("data-dir", "", "Data directory holding engine state and token book")
	pf.String("caller", "", "Address acting for state-changing commands")
	pf.String("engine-address", "", "Custody address of the engine on the ledger")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (console, json)")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&showEvents, "events", false, "Print the events the command emitted")

	rootCmd.AddGroup(
		&cobra.Group{ID: "proposals", Title: "Proposal Commands"},
		&cobra.Group{ID: "governance", Title: "Governance Commands"},
		&cobra.Group{ID: "ledger", Title: "Token Commands"},
		&cobra.Group{ID: "views", Title: "View Commands"},
	)

	for _, c := range []*cobra.Command{
		NewProposeCmd(), NewRequirementsCmd(), NewVoteCmd(), NewExecuteCmd(),
		NewExecuteDueCmd(), NewRefundCmd(), NewClaimCmd(), NewRefundFeeCmd(),
	} {
		c.GroupID = "proposals"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{NewParamCmd(), NewDurationCmd(), NewMultiSigCmd()} {
		c.GroupID = "governance"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{NewMintCmd(), NewApproveCmd(), NewBalanceCmd(), NewDepositCmd()} {
		c.GroupID = "ledger"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{NewShowCmd(), NewListCmd(), NewStatsCmd(), NewInvestorCmd()} {
		c.GroupID = "views"
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(NewInitCmd(), NewKeeperCmd(), NewCallCmd(), NewScriptCmd(), NewExportsCmd())

	return rootCmd
}
