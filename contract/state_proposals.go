package contract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// loadProposal reads a proposal or returns ErrProposalNotFound.
func loadProposal(d *diff, id uint64) (*Proposal, error) {
	ptr, err := d.Get(proposalKey(id))
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, fail(ErrProposalNotFound, "proposal %d does not exist", id)
	}
	p, err := DecodeProposal(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode proposal %d: %w", id, err)
	}
	return p, nil
}

func saveProposal(d *diff, p *Proposal) {
	d.Set(proposalKey(p.ID), EncodeProposal(p))
}

func proposalCount(d *diff) (uint64, error) {
	return getCount(d, ProposalsCount)
}

func loadVote(d *diff, id uint64, voter common.Address) (*Vote, error) {
	ptr, err := d.Get(voteKey(id, voter))
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, nil
	}
	v, err := decodeVote(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode vote %d: %w", id, err)
	}
	return v, nil
}

func saveVote(d *diff, v *Vote) {
	d.Set(voteKey(v.ProposalID, v.Voter), encodeVote(v))
}

// voterAt loads the vote of the voter stored in a proposal's slot.
func voterAt(d *diff, id, slot uint64) (*Vote, error) {
	ptr, err := d.Get(voterSlotKey(id, slot))
	if err != nil {
		return nil, err
	}
	if ptr == nil || len(*ptr) != 20 {
		return nil, fmt.Errorf("voter slot %d/%d missing", id, slot)
	}
	v, err := loadVote(d, id, common.BytesToAddress([]byte(*ptr)))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("vote for slot %d/%d missing", id, slot)
	}
	return v, nil
}
