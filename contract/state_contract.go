package contract

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// isInitialized returns true once genesis has been written.
func isInitialized(d *diff) (bool, error) {
	ptr, err := d.Get(genesisKey())
	if err != nil {
		return false, err
	}
	return ptr != nil && *ptr != "", nil
}

func loadSettings(d *diff) (*Settings, error) {
	ptr, err := d.Get(genesisKey())
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, fmt.Errorf("store not initialized")
	}
	s, err := decodeSettings(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func saveSettings(d *diff, s *Settings) {
	d.Set(genesisKey(), encodeSettings(s))
}

func loadParams(d *diff) (*Params, error) {
	ptr, err := d.Get(paramsKey())
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, fmt.Errorf("governance parameters missing")
	}
	p, err := decodeParams(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return p, nil
}

func saveParams(d *diff, p *Params) {
	d.Set(paramsKey(), encodeParams(p))
}

// validate checks genesis before anything is written and reports every
// problem at once.
func (g *Genesis) validate() error {
	s := g.Settings
	var errs error
	if s.MinFundingGoal <= 0 || s.MaxFundingGoal < s.MinFundingGoal {
		errs = multierr.Append(errs, fmt.Errorf("funding goal band: min %d, max %d", s.MinFundingGoal, s.MaxFundingGoal))
	}
	if s.QuorumRule != QuorumFundingRatio && s.QuorumRule != QuorumVoterCount {
		errs = multierr.Append(errs, fmt.Errorf("quorum rule: unknown %d", s.QuorumRule))
	}
	if s.QuorumRule == QuorumVoterCount && s.MinVoters == 0 {
		errs = multierr.Append(errs, errors.New("min voters: must be positive under the voter count rule"))
	}
	if s.MinVotingDuration == 0 || s.MaxVotingDuration < s.MinVotingDuration {
		errs = multierr.Append(errs, fmt.Errorf("voting duration band: min %d, max %d", s.MinVotingDuration, s.MaxVotingDuration))
	}
	if s.SafetyFloor == 0 {
		errs = multierr.Append(errs, errors.New("safety floor: must be positive"))
	}
	if s.MultiSigWindow == 0 || s.ParameterWindow == 0 {
		errs = multierr.Append(errs, errors.New("approval windows: must be positive"))
	}
	if len(g.Admins) == 0 {
		errs = multierr.Append(errs, errors.New("admins: none"))
	}
	if s.RequiredApprovals == 0 || s.RequiredApprovals > uint64(len(g.Admins)) {
		errs = multierr.Append(errs, fmt.Errorf("required approvals: %d of %d admins", s.RequiredApprovals, len(g.Admins)))
	}
	for _, name := range ParameterNames() {
		spec := paramSpecs[name]
		v := spec.get(&g.Params)
		lo, hi := spec.bounds(&s)
		if v < lo || v > hi {
			errs = multierr.Append(errs, fmt.Errorf("%s: %d outside [%d, %d]", name, v, lo, hi))
		}
	}
	if errs != nil {
		return &Error{Kind: ErrInvalidInput.Kind, Code: ErrInvalidInput.Code, Msg: "invalid genesis: " + errs.Error(), Err: errs}
	}
	return nil
}
