package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ganjes_dao/contract"
)

// proposalView is the printable form of one proposal, shared by the yaml and
// json outputs.
type proposalView struct {
	ID            uint64 `yaml:"id" json:"id"`
	ProjectName   string `yaml:"projectName" json:"projectName"`
	Description   string `yaml:"description" json:"description"`
	ProjectURL    string `yaml:"projectUrl,omitempty" json:"projectUrl,omitempty"`
	Proposer      string `yaml:"proposer" json:"proposer"`
	Status        string `yaml:"status" json:"status"`
	FundingGoal   int64  `yaml:"fundingGoal" json:"fundingGoal"`
	CreationFee   int64  `yaml:"creationFee" json:"creationFee"`
	VotesFor      int64  `yaml:"votesFor" json:"votesFor"`
	VotesAgainst  int64  `yaml:"votesAgainst" json:"votesAgainst"`
	TotalInvested int64  `yaml:"totalInvested" json:"totalInvested"`
	VotersFor     uint64 `yaml:"votersFor" json:"votersFor"`
	VotersAgainst uint64 `yaml:"votersAgainst" json:"votersAgainst"`
	FundedPercent uint64 `yaml:"fundedPercent" json:"fundedPercent"`
	QuorumMet     bool   `yaml:"quorumMet" json:"quorumMet"`
	Approved      bool   `yaml:"approved" json:"approved"`
	CreatedAt     string `yaml:"createdAt" json:"createdAt"`
	EndTime       string `yaml:"endTime" json:"endTime"`
	TimeLeft      string `yaml:"timeLeft" json:"timeLeft"`
	FeeRefunded   bool   `yaml:"feeRefunded" json:"feeRefunded"`
	FundsReleased int64  `yaml:"fundsReleased" json:"fundsReleased"`
	Tx            string `yaml:"tx,omitempty" json:"tx,omitempty"`

	status contract.ProposalStatus
}

func buildProposalView(e *contract.Engine, id uint64) (*proposalView, error) {
	p, err := e.Proposal(id)
	if err != nil {
		return nil, err
	}
	vd, err := e.ProposalVotingDetails(id)
	if err != nil {
		return nil, err
	}
	return &proposalView{
		ID:            p.ID,
		ProjectName:   p.ProjectName,
		Description:   p.Description,
		ProjectURL:    p.ProjectURL,
		Proposer:      p.Proposer.Hex(),
		Status:        vd.Status.String(),
		FundingGoal:   int64(p.FundingGoal),
		CreationFee:   int64(p.CreationFee),
		VotesFor:      int64(p.TotalVotesFor),
		VotesAgainst:  int64(p.TotalVotesAgainst),
		TotalInvested: int64(p.TotalInvested),
		VotersFor:     p.VotersFor,
		VotersAgainst: p.VotersAgainst,
		FundedPercent: vd.FundedPercent,
		QuorumMet:     vd.QuorumMet,
		Approved:      vd.Approved,
		CreatedAt:     formatTime(p.CreatedAt),
		EndTime:       formatTime(p.EndTime),
		TimeLeft:      formatLeft(vd.TimeLeft),
		FeeRefunded:   p.DepositRefunded,
		FundsReleased: int64(p.FundsReleased),
		Tx:            p.Tx,
		status:        vd.Status,
	}, nil
}

// writeStructured renders v as yaml or json.
func writeStructured(out io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	default:
		return fmt.Errorf("unknown output format %q (table, yaml, json)", format)
	}
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	return t
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <proposal-id>",
		Short: "Show one proposal with its tally and voters",
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
			view, err := buildProposalView(app.Engine, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output != "table" {
				return writeStructured(out, output, view)
			}

			headerStyle.Fprintf(out, "Proposal %d: %s ", view.ID, view.ProjectName)
			statusStyle(view.status).Fprintln(out, "["+view.Status+"]")
			fmt.Fprintf(out, "  %s\n", view.Description)
			if view.ProjectURL != "" {
				faintStyle.Fprintf(out, "  %s\n", view.ProjectURL)
			}
			fmt.Fprintf(out, "  proposer:  %s\n", addressStyle.Sprint(view.Proposer))
			fmt.Fprintf(out, "  goal:      %d (%d%% funded, fee %d)\n", view.FundingGoal, view.FundedPercent, view.CreationFee)
			fmt.Fprintf(out, "  for:       %d from %d voters\n", view.VotesFor, view.VotersFor)
			fmt.Fprintf(out, "  against:   %d from %d voters\n", view.VotesAgainst, view.VotersAgainst)
			fmt.Fprintf(out, "  quorum:    %v, approved: %v\n", view.QuorumMet, view.Approved)
			fmt.Fprintf(out, "  window:    %s .. %s (%s)\n", view.CreatedAt, view.EndTime, view.TimeLeft)

			voters, err := app.Engine.Voters(id)
			if err != nil {
				return err
			}
			if len(voters) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			t := newTable(out)
			t.AppendHeader(table.Row{"VOTER", "SIDE", "INVESTMENT", "WEIGHT", "REFUNDED"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 3, Align: text.AlignRight},
				{Number: 4, Align: text.AlignRight},
			})
			for _, v := range voters {
				side := successStyle.Sprint("for")
				if !v.Support {
					side = failStyle.Sprint("against")
				}
				t.AppendRow(table.Row{v.Voter.Hex(), side, v.Investment, v.Weight, v.Refunded})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, yaml, json)")
	return cmd
}

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var activeOnly bool
	var proposer string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List proposals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			var ids []uint64
			switch {
			case activeOnly:
				ids = app.Engine.ActiveProposals(0)
			case proposer != "":
				who, err := addressArgOrCaller(app, []string{proposer})
				if err != nil {
					return err
				}
				if ids, err = app.Engine.ProposalIDsByProposer(who); err != nil {
					return err
				}
			default:
				if ids, err = app.Engine.AllProposalIDs(); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No proposals found")
				return nil
			}

			fmt.Fprintf(out, "Proposals (%d total):\n\n", len(ids))
			t := newTable(out)
			t.AppendHeader(table.Row{"ID", "PROJECT", "PROPOSER", "GOAL", "FOR", "AGAINST", "STATUS", "ENDS"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 2, WidthMax: 28},
				{Number: 4, Align: text.AlignRight},
				{Number: 5, Align: text.AlignRight},
				{Number: 6, Align: text.AlignRight},
			})
			for _, id := range ids {
				b, err := app.Engine.ProposalBasicDetails(id)
				if err != nil {
					return err
				}
				vd, err := app.Engine.ProposalVotingDetails(id)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{
					b.ID, b.ProjectName, shortAddress(b.Proposer), b.FundingGoal,
					vd.TotalVotesFor, vd.TotalVotesAgainst,
					statusStyle(b.Status).Sprint(b.Status),
					timestampOrLeft(b, vd),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only proposals still accepting votes")
	cmd.Flags().StringVar(&proposer, "proposer", "", "Only proposals created by this address")
	return cmd
}

func timestampOrLeft(b *contract.ProposalBasicDetails, vd *contract.ProposalVotingDetails) string {
	if b.Status == contract.StatusActive {
		return formatLeft(vd.TimeLeft)
	}
	return faintStyle.Sprint(formatTime(b.EndTime))
}

// statsView is the printable DAO dashboard.
type statsView struct {
	TotalProposals    uint64   `yaml:"totalProposals" json:"totalProposals"`
	Active            uint64   `yaml:"active" json:"active"`
	Resolvable        uint64   `yaml:"resolvable" json:"resolvable"`
	Executed          uint64   `yaml:"executed" json:"executed"`
	Passed            uint64   `yaml:"passed" json:"passed"`
	Failed            uint64   `yaml:"failed" json:"failed"`
	SuccessRate       float64  `yaml:"successRate" json:"successRate"`
	TotalFunded       int64    `yaml:"totalFunded" json:"totalFunded"`
	TotalLocked       int64    `yaml:"totalLocked" json:"totalLocked"`
	Treasury          int64    `yaml:"treasury" json:"treasury"`
	Investors         uint64   `yaml:"investors" json:"investors"`
	Paused            bool     `yaml:"paused" json:"paused"`
	FeeRefundable     bool     `yaml:"feeRefundable" json:"feeRefundable"`
	Admins            []string `yaml:"admins" json:"admins"`
	RequiredApprovals uint64   `yaml:"requiredApprovals" json:"requiredApprovals"`
	QuorumRule        string   `yaml:"quorumRule" json:"quorumRule"`
}

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show DAO totals and admin status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			s, err := app.Engine.DAOStats()
			if err != nil {
				return err
			}
			st, err := app.Engine.ContractStatus()
			if err != nil {
				return err
			}
			view := statsView{
				TotalProposals:    s.TotalProposals,
				Active:            s.Active,
				Resolvable:        s.Resolvable,
				Executed:          s.Executed,
				Passed:            s.Passed,
				Failed:            s.Failed,
				SuccessRate:       s.SuccessRate,
				TotalFunded:       int64(s.TotalFunded),
				TotalLocked:       int64(s.TotalLocked),
				Treasury:          int64(s.Treasury),
				Investors:         s.Investors,
				Paused:            st.Paused,
				FeeRefundable:     st.FeeRefundable,
				Admins:            lo.Map(st.Admins, func(a common.Address, _ int) string { return a.Hex() }),
				RequiredApprovals: st.RequiredApprovals,
				QuorumRule:        st.Settings.QuorumRule.String(),
			}
			out := cmd.OutOrStdout()
			if output != "table" {
				return writeStructured(out, output, view)
			}
			t := newTable(out)
			t.AppendRows([]table.Row{
				{"proposals", view.TotalProposals},
				{"active", view.Active},
				{"awaiting execution", view.Resolvable},
				{"passed / failed", fmt.Sprintf("%d / %d", view.Passed, view.Failed)},
				{"success rate", fmt.Sprintf("%.1f%%", view.SuccessRate)},
				{"funded", view.TotalFunded},
				{"locked", view.TotalLocked},
				{"treasury", view.Treasury},
				{"investors", view.Investors},
			})
			t.Render()
			if view.Paused {
				failStyle.Fprintln(out, "engine is PAUSED")
			}
			fmt.Fprintf(out, "admins: %d, approvals required: %d, quorum rule: %s, fee refundable: %v\n",
				len(view.Admins), view.RequiredApprovals, view.QuorumRule, view.FeeRefundable)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, yaml, json)")
	return cmd
}

// NewInvestorCmd shows one address's investments.
func NewInvestorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "investor [address]",
		Short: "Show an investor's positions (defaults to the caller)",
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
			d, err := app.Engine.InvestorDetails(who)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			addressStyle.Fprintln(out, who.Hex())
			fmt.Fprintf(out, "  invested:   %s in %d proposals\n", d.TotalInvested, len(d.ProposalsInvested))
			fmt.Fprintf(out, "  refundable: %s\n", d.Refundable)
			fmt.Fprintf(out, "  refunded:   %s\n", d.Refunded)
			return nil
		},
	}
}
