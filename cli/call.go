package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"ganjes_dao/contract"
	"ganjes_dao/sdk"
)

// NewCallCmd invokes one exported call by name with a raw payload.
func NewCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [payload]",
		Short: "Invoke an exported call with a pipe-delimited payload",
		Long: `Invoke an exported call by name, the same entry points scripts use.

Examples:
  ganjes call proposals_create "500|Solar Kiosk|Panels for the market square|https://kiosk.example"
  ganjes call proposals_vote "1|true|80"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := app.Caller()
			if err != nil {
				return err
			}
			payload := ""
			if len(args) == 2 {
				payload = args[1]
			}
			res, err := app.Engine.Call(cmd.Context(), caller, args[0], payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

// NewScriptCmd replays a file of calls, one per line: `<caller> <method> <payload>`.
// Blank lines and lines starting with # are skipped.
func NewScriptCmd() *cobra.Command {
	var keepGoing bool
	cmd := &cobra.Command{
		Use:   "script <file|->",
		Short: "Replay a file of calls, one `caller method payload` per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runScript(cmd, app.Engine, in, keepGoing)
		},
	}
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue after a failing line")
	return cmd
}

func runScript(cmd *cobra.Command, e *contract.Engine, in io.Reader, keepGoing bool) error {
	out := cmd.OutOrStdout()
	var errs error
	sc := bufio.NewScanner(in)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			err := fmt.Errorf("line %d: want `<caller> <method> [payload]`", n)
			if !keepGoing {
				return err
			}
			errs = multierr.Append(errs, err)
			continue
		}
		caller, err := sdk.ParseAddress(fields[0])
		if err != nil {
			err = fmt.Errorf("line %d: %w", n, err)
			if !keepGoing {
				return err
			}
			errs = multierr.Append(errs, err)
			continue
		}
		payload := ""
		if len(fields) == 3 {
			payload = strings.TrimSpace(fields[2])
		}
		res, err := e.Call(cmd.Context(), caller, fields[1], payload)
		if err != nil {
			failStyle.Fprintf(out, "%4d %-22s %s\n", n, fields[1], describeError(err))
			if !keepGoing {
				return fmt.Errorf("line %d: %w", n, err)
			}
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", n, err))
			continue
		}
		fmt.Fprintf(out, "%4d %-22s %s\n", n, fields[1], successStyle.Sprint(res))
	}
	return multierr.Append(errs, sc.Err())
}

// NewExportsCmd lists the call names; it needs no data dir.
func NewExportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exports",
		Short: "List the call names accepted by call and script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range contract.ExportNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
