package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ganjes_dao/config"
	"ganjes_dao/contract"
	"ganjes_dao/sdk"
)

const (
	admin1    = "0x00000000000000000000000000000000000000a1"
	admin2    = "0x00000000000000000000000000000000000000a2"
	proposer  = "0x00000000000000000000000000000000000000b1"
	investor1 = "0x00000000000000000000000000000000000000c1"
	investor2 = "0x00000000000000000000000000000000000000c2"
)

// harness runs command lines against one data dir.
type harness struct {
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("GANJES_GENESIS_ADMINS", admin1+","+admin2)
	t.Setenv("GANJES_GENESIS_REQUIRED_APPROVALS", "2")
	t.Setenv("GANJES_LOG_LEVEL", "error")
	return &harness{dir: t.TempDir()}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--data-dir", h.dir, "--no-color"}, args...)
	err := Run(context.Background(), full, &out, &errOut)
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, "ganjes %s", strings.Join(args, " "))
	return out
}

// seed funds everyone and opens proposal 1 with one vote for it.
func (h *harness) seed(t *testing.T) {
	t.Helper()
	h.mustRun(t, "mint", proposer, "1000")
	h.mustRun(t, "mint", investor1, "500")
	h.mustRun(t, "mint", investor2, "100")
	h.mustRun(t, "approve", "100", "--caller", proposer)
	out := h.mustRun(t, "propose", "--goal", "200", "--name", "Solar Kiosk",
		"--description", "Panels for the market square", "--caller", proposer)
	require.Contains(t, out, "proposal 1 created")
	h.mustRun(t, "approve", "80", "--caller", investor1)
	out = h.mustRun(t, "vote", "1", "for", "80", "--caller", investor1)
	require.Contains(t, out, "voted for proposal 1 with 80")
}

// =============================================================================
// Command Flow Tests
// =============================================================================

func TestInitReportsGenesis(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "init")
	assert.Contains(t, out, "ready in "+h.dir)
	assert.Contains(t, out, "required approvals: 2")
	assert.Contains(t, out, "quorum rule:")
}

func TestProposalFlow(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	out := h.mustRun(t, "balance", proposer)
	assert.Contains(t, out, "balance:   990")
	assert.Contains(t, out, "allowance: 90")

	out = h.mustRun(t, "list")
	assert.Contains(t, out, "Proposals (1 total)")
	assert.Contains(t, out, "Solar Kiosk")

	out = h.mustRun(t, "list", "--active")
	assert.Contains(t, out, "Solar Kiosk")

	out = h.mustRun(t, "show", "1")
	assert.Contains(t, out, "Proposal 1: Solar Kiosk")
	assert.Contains(t, out, investor1[:10])

	out = h.mustRun(t, "investor", investor1)
	assert.Contains(t, out, "invested:   80 in 1 proposals")

	out = h.mustRun(t, "stats")
	assert.Contains(t, out, "admins: 2")

	// voting is still open
	_, err := h.run(t, "execute", "1", "--caller", investor2)
	require.ErrorIs(t, err, contract.ErrVotingNotEnded)

	out = h.mustRun(t, "execute-due", "--caller", investor2)
	assert.Contains(t, out, "No proposals due")
}

func TestShowStructuredOutput(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	out := h.mustRun(t, "show", "1", "--output", "yaml")
	var fromYAML proposalView
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, uint64(1), fromYAML.ID)
	assert.Equal(t, "Solar Kiosk", fromYAML.ProjectName)
	assert.EqualValues(t, 80, fromYAML.VotesFor)
	assert.EqualValues(t, 40, fromYAML.FundedPercent)
	assert.True(t, strings.EqualFold(proposer, fromYAML.Proposer))

	out = h.mustRun(t, "show", "1", "-o", "json")
	var fromJSON proposalView
	require.NoError(t, json.Unmarshal([]byte(out), &fromJSON))
	assert.Equal(t, fromYAML, fromJSON)

	_, err := h.run(t, "show", "1", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	out = h.mustRun(t, "stats", "-o", "yaml")
	var stats statsView
	require.NoError(t, yaml.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 1, stats.TotalProposals)
	assert.EqualValues(t, 80, stats.TotalLocked)
	assert.EqualValues(t, 10, stats.Treasury)
	assert.Len(t, stats.Admins, 2)
}

func TestVoteErrors(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	_, err := h.run(t, "vote", "1", "for", "20", "--caller", proposer)
	require.ErrorIs(t, err, contract.ErrProposerCannotVote)

	_, err = h.run(t, "vote", "9", "for", "20", "--caller", investor2)
	require.ErrorIs(t, err, contract.ErrProposalNotFound)

	_, err = h.run(t, "vote", "1", "maybe", "20", "--caller", investor2)
	require.Error(t, err)

	_, err = h.run(t, "vote", "1", "for", "20")
	require.Error(t, err, "state-changing commands need a caller")
}

func TestCallAndScript(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.mustRun(t, "approve", "50", "--caller", investor2)

	script := filepath.Join(t.TempDir(), "calls.txt")
	body := strings.Join([]string{
		"# donations and a late vote",
		investor2 + " treasury_deposit 5",
		"",
		investor2 + " proposals_vote 1|against|20",
	}, "\n")
	require.NoError(t, os.WriteFile(script, []byte(body), 0o644))

	out := h.mustRun(t, "script", script)
	assert.Contains(t, out, "deposited")
	assert.Contains(t, out, "voted")

	out = h.mustRun(t, "call", "treasury_deposit", "5", "--caller", investor2)
	assert.Equal(t, "deposited\n", out)

	_, err := h.run(t, "call", "proposals_vote", "1|true|20", "--caller", investor2)
	require.ErrorIs(t, err, contract.ErrAlreadyVoted)

	_, err = h.run(t, "call", "proposals_dance", "1", "--caller", investor2)
	require.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestScriptStopsOnFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	script := filepath.Join(t.TempDir(), "calls.txt")
	body := investor2 + " proposals_claim 1\n" + investor2 + " nope 1\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o644))

	_, err := h.run(t, "script", script)
	require.ErrorIs(t, err, contract.ErrProposalNotExecuted)
	assert.Contains(t, err.Error(), "line 1")

	_, err = h.run(t, "script", "--keep-going", script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestExportsNeedsNoDataDir(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), []string{"exports"}, &out, &bytes.Buffer{}))
	names := strings.Fields(out.String())
	assert.Equal(t, contract.ExportNames(), names)
	assert.Contains(t, names, "proposals_vote")
}

func TestKeeperOnce(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	_, err := h.run(t, "keeper", "--once", "--caller", admin1)
	require.NoError(t, err)
}

func TestEventsFlag(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.mustRun(t, "approve", "50", "--caller", investor2)

	out := h.mustRun(t, "deposit", "5", "--caller", investor2)
	assert.NotContains(t, out, "event ")

	out = h.mustRun(t, "--events", "deposit", "7", "--caller", investor2)
	assert.Contains(t, out, "|am:7")
	assert.Contains(t, out, "af|by:")
	assert.Equal(t, 1, strings.Count(out, "event "))
}

func TestKeeperRoundDrainsEvents(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.mustRun(t, "approve", "50", "--caller", investor2)

	t.Setenv("GANJES_DATA_DIR", h.dir)
	v, err := config.SetupViper("", h.dir, nil)
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	app, err := OpenApp(cfg)
	require.NoError(t, err)
	defer app.Close()

	from, err := sdk.ParseAddress(investor2)
	require.NoError(t, err)
	_, err = app.Engine.Call(context.Background(), from, "treasury_deposit", "5")
	require.NoError(t, err)
	require.Len(t, app.Sink.Records(), 1)

	k := &keeper{
		engine: app.Engine,
		caller: from,
		batch:  cfg.Keeper.Batch,
		log:    app.Log,
		drain:  app.DrainEvents,
	}
	assert.Equal(t, 0, k.round(context.Background()))
	assert.Empty(t, app.Sink.Records())
}

func TestBadConfig(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "init", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")

	_, err = h.run(t, "--config", filepath.Join(h.dir, "missing.yaml"), "init")
	require.Error(t, err)
}
