package contract

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

type binWriter struct {
	buf bytes.Buffer
}

// newWriter spins up a fresh writer so we dont leak old bytes between encodes.
func newWriter() *binWriter { return &binWriter{} }

func (w *binWriter) string() string { return w.buf.String() }

// writeBool squashes bools into a single byte flag for deterministic payloads.
func (w *binWriter) writeBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// writeUint64 writes big endian numbers so tooling can read them without guessing.
func (w *binWriter) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// writeInt64 reuses the uint routine since casting keeps the sign bits intact.
func (w *binWriter) writeInt64(v int64) {
	w.writeUint64(uint64(v))
}

// writeVarUint uses varints to keep counts and lens compact.
func (w *binWriter) writeVarUint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

func (w *binWriter) writeAmount(v Amount) {
	w.writeInt64(int64(v))
}

// writeString prefixes its length then dumps UTF-8 directly.
func (w *binWriter) writeString(s string) {
	w.writeVarUint(uint64(len(s)))
	w.buf.WriteString(s)
}

// writeAddress dumps the raw 20 bytes, fixed width so no length prefix.
func (w *binWriter) writeAddress(a common.Address) {
	w.buf.Write(a.Bytes())
}

func (w *binWriter) writeAddresses(list []common.Address) {
	w.writeVarUint(uint64(len(list)))
	for _, a := range list {
		w.writeAddress(a)
	}
}

var errEOF = errors.New("unexpected EOF")

type binReader struct {
	data []byte
	pos  int
}

// newReader wraps raw bytes so we can peek sequentially w/out copying.
func newReader(data string) *binReader {
	return &binReader{data: []byte(data)}
}

func (r *binReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *binReader) readBool() (bool, error) {
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	return b == 1, nil
}

func (r *binReader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, errEOF
	}
	val := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return val, nil
}

func (r *binReader) readInt64() (int64, error) {
	v, err := r.readUint64()
	return int64(v), err
}

func (r *binReader) readVarUint() (uint64, error) {
	val, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, errors.New("invalid varuint")
	}
	r.pos += n
	return val, nil
}

func (r *binReader) readAmount() (Amount, error) {
	v, err := r.readInt64()
	return Amount(v), err
}

func (r *binReader) readString() (string, error) {
	l, err := r.readVarUint()
	if err != nil {
		return "", err
	}
	if uint64(len(r.data)-r.pos) < l {
		return "", errEOF
	}
	s := string(r.data[r.pos : r.pos+int(l)])
	r.pos += int(l)
	return s, nil
}

func (r *binReader) readAddress() (common.Address, error) {
	if r.pos+common.AddressLength > len(r.data) {
		return common.Address{}, errEOF
	}
	a := common.BytesToAddress(r.data[r.pos : r.pos+common.AddressLength])
	r.pos += common.AddressLength
	return a, nil
}

func (r *binReader) readAddresses() ([]common.Address, error) {
	n, err := r.readVarUint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.data)) {
		return nil, errEOF
	}
	out := make([]common.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		a, err := r.readAddress()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// fieldReader keeps the first error so decoders read like a list of fields.
type fieldReader struct {
	r   *binReader
	err error
}

func (f *fieldReader) u64() uint64 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.readUint64()
	f.err = err
	return v
}

func (f *fieldReader) i64() int64 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.readInt64()
	f.err = err
	return v
}

func (f *fieldReader) amount() Amount { return Amount(f.i64()) }

func (f *fieldReader) boolean() bool {
	if f.err != nil {
		return false
	}
	v, err := f.r.readBool()
	f.err = err
	return v
}

func (f *fieldReader) u8() byte {
	if f.err != nil {
		return 0
	}
	v, err := f.r.readByte()
	f.err = err
	return v
}

func (f *fieldReader) str() string {
	if f.err != nil {
		return ""
	}
	v, err := f.r.readString()
	f.err = err
	return v
}

func (f *fieldReader) addr() common.Address {
	if f.err != nil {
		return common.Address{}
	}
	v, err := f.r.readAddress()
	f.err = err
	return v
}

func (f *fieldReader) addrs() []common.Address {
	if f.err != nil {
		return nil
	}
	v, err := f.r.readAddresses()
	f.err = err
	return v
}

func fields(data string) *fieldReader { return &fieldReader{r: newReader(data)} }

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

// EncodeProposal packs a Proposal into bytes so storage stays lean and no json noise leaks.
func EncodeProposal(p *Proposal) string {
	w := newWriter()
	w.writeUint64(p.ID)
	w.writeAddress(p.Proposer)
	w.writeString(p.Description)
	w.writeString(p.ProjectName)
	w.writeString(p.ProjectURL)
	w.writeAmount(p.FundingGoal)
	w.writeAmount(p.CreationFee)
	w.writeInt64(p.CreatedAt)
	w.writeInt64(p.EndTime)
	w.writeAmount(p.TotalVotesFor)
	w.writeAmount(p.TotalVotesAgainst)
	w.writeAmount(p.TotalInvested)
	w.writeUint64(p.VotersFor)
	w.writeUint64(p.VotersAgainst)
	w.writeBool(p.Executed)
	w.writeBool(p.Passed)
	w.writeBool(p.DepositRefunded)
	w.writeInt64(p.ExecutedAt)
	w.writeAmount(p.FundsReleased)
	w.writeString(p.Tx)
	return w.string()
}

// DecodeProposal reverses EncodeProposal.
func DecodeProposal(data string) (*Proposal, error) {
	f := fields(data)
	p := &Proposal{
		ID:                f.u64(),
		Proposer:          f.addr(),
		Description:       f.str(),
		ProjectName:       f.str(),
		ProjectURL:        f.str(),
		FundingGoal:       f.amount(),
		CreationFee:       f.amount(),
		CreatedAt:         f.i64(),
		EndTime:           f.i64(),
		TotalVotesFor:     f.amount(),
		TotalVotesAgainst: f.amount(),
		TotalInvested:     f.amount(),
		VotersFor:         f.u64(),
		VotersAgainst:     f.u64(),
		Executed:          f.boolean(),
		Passed:            f.boolean(),
		DepositRefunded:   f.boolean(),
		ExecutedAt:        f.i64(),
		FundsReleased:     f.amount(),
		Tx:                f.str(),
	}
	if f.err != nil {
		return nil, f.err
	}
	return p, nil
}

func encodeVote(v *Vote) string {
	w := newWriter()
	w.writeUint64(v.ProposalID)
	w.writeAddress(v.Voter)
	w.writeAmount(v.Investment)
	w.writeAmount(v.Weight)
	w.writeBool(v.Support)
	w.writeBool(v.HasVoted)
	w.writeBool(v.Refunded)
	w.writeInt64(v.VotedAt)
	return w.string()
}

func decodeVote(data string) (*Vote, error) {
	f := fields(data)
	v := &Vote{
		ProposalID: f.u64(),
		Voter:      f.addr(),
		Investment: f.amount(),
		Weight:     f.amount(),
		Support:    f.boolean(),
		HasVoted:   f.boolean(),
		Refunded:   f.boolean(),
		VotedAt:    f.i64(),
	}
	if f.err != nil {
		return nil, f.err
	}
	return v, nil
}

func encodeParams(p *Params) string {
	w := newWriter()
	w.writeAmount(p.MinInvestmentAmount)
	w.writeAmount(p.MinTokensForProposal)
	w.writeAmount(p.ProposalCreationFee)
	w.writeUint64(p.VotingDuration)
	w.writeUint64(p.MinQuorumPercent)
	w.writeUint64(p.MaxProposalsPerUser)
	w.writeUint64(p.ProposalCooldown)
	return w.string()
}

func decodeParams(data string) (*Params, error) {
	f := fields(data)
	p := &Params{
		MinInvestmentAmount:  f.amount(),
		MinTokensForProposal: f.amount(),
		ProposalCreationFee:  f.amount(),
		VotingDuration:       f.u64(),
		MinQuorumPercent:     f.u64(),
		MaxProposalsPerUser:  f.u64(),
		ProposalCooldown:     f.u64(),
	}
	if f.err != nil {
		return nil, f.err
	}
	return p, nil
}

func encodeSettings(s *Settings) string {
	w := newWriter()
	w.writeAmount(s.MinFundingGoal)
	w.writeAmount(s.MaxFundingGoal)
	w.buf.WriteByte(byte(s.QuorumRule))
	w.writeUint64(s.MinVoters)
	w.writeUint64(s.SafetyFloor)
	w.writeUint64(s.MinVotingDuration)
	w.writeUint64(s.MaxVotingDuration)
	w.writeUint64(s.MultiSigWindow)
	w.writeUint64(s.ParameterWindow)
	w.writeUint64(s.RequiredApprovals)
	return w.string()
}

func decodeSettings(data string) (*Settings, error) {
	f := fields(data)
	s := &Settings{
		MinFundingGoal:    f.amount(),
		MaxFundingGoal:    f.amount(),
		QuorumRule:        QuorumRule(f.u8()),
		MinVoters:         f.u64(),
		SafetyFloor:       f.u64(),
		MinVotingDuration: f.u64(),
		MaxVotingDuration: f.u64(),
		MultiSigWindow:    f.u64(),
		ParameterWindow:   f.u64(),
		RequiredApprovals: f.u64(),
	}
	if f.err != nil {
		return nil, f.err
	}
	return s, nil
}

func encodeAccounting(a *Accounting) string {
	w := newWriter()
	w.writeAmount(a.Treasury)
	w.writeAmount(a.Locked)
	w.writeAmount(a.Funded)
	w.writeAmount(a.FeesCollected)
	w.writeAmount(a.FeesRefunded)
	w.writeAmount(a.Deposited)
	w.writeAmount(a.Withdrawn)
	return w.string()
}

func decodeAccounting(data string) (*Accounting, error) {
	f := fields(data)
	a := &Accounting{
		Treasury:      f.amount(),
		Locked:        f.amount(),
		Funded:        f.amount(),
		FeesCollected: f.amount(),
		FeesRefunded:  f.amount(),
		Deposited:     f.amount(),
		Withdrawn:     f.amount(),
	}
	if f.err != nil {
		return nil, f.err
	}
	return a, nil
}

func encodeStatus(s *Status) string {
	w := newWriter()
	w.writeBool(s.Paused)
	w.writeBool(s.FeeRefundable)
	return w.string()
}

func decodeStatus(data string) (*Status, error) {
	f := fields(data)
	s := &Status{Paused: f.boolean(), FeeRefundable: f.boolean()}
	if f.err != nil {
		return nil, f.err
	}
	return s, nil
}

func encodeAddressList(list []common.Address) string {
	w := newWriter()
	w.writeAddresses(list)
	return w.string()
}

func decodeAddressList(data string) ([]common.Address, error) {
	f := fields(data)
	list := f.addrs()
	return list, f.err
}

func encodeMultiSig(m *MultiSigProposal) string {
	w := newWriter()
	w.writeUint64(m.ID)
	w.buf.WriteByte(byte(m.Action))
	w.writeUint64(m.Value)
	w.writeAddress(m.Target)
	w.writeAddress(m.Proposer)
	w.writeAddresses(m.Approvals)
	w.writeAddresses(m.Rejections)
	w.buf.WriteByte(byte(m.State))
	w.writeInt64(m.CreatedAt)
	w.writeInt64(m.ExpiresAt)
	w.writeInt64(m.ExecutedAt)
	w.writeString(m.LastError)
	return w.string()
}

func decodeMultiSig(data string) (*MultiSigProposal, error) {
	f := fields(data)
	m := &MultiSigProposal{
		ID:         f.u64(),
		Action:     MultiSigAction(f.u8()),
		Value:      f.u64(),
		Target:     f.addr(),
		Proposer:   f.addr(),
		Approvals:  f.addrs(),
		Rejections: f.addrs(),
		State:      GateState(f.u8()),
		CreatedAt:  f.i64(),
		ExpiresAt:  f.i64(),
		ExecutedAt: f.i64(),
		LastError:  f.str(),
	}
	if f.err != nil {
		return nil, f.err
	}
	return m, nil
}

func encodeParamProposal(p *ParamProposal) string {
	w := newWriter()
	w.writeUint64(p.ID)
	w.writeString(p.Name)
	w.writeUint64(p.OldValue)
	w.writeUint64(p.NewValue)
	w.writeString(p.Justification)
	w.writeAddress(p.Proposer)
	w.buf.WriteByte(byte(p.Class))
	w.writeAddresses(p.Approvals)
	w.buf.WriteByte(byte(p.State))
	w.writeInt64(p.CreatedAt)
	w.writeInt64(p.ExpiresAt)
	w.writeInt64(p.AppliedAt)
	return w.string()
}

func decodeParamProposal(data string) (*ParamProposal, error) {
	f := fields(data)
	p := &ParamProposal{
		ID:            f.u64(),
		Name:          f.str(),
		OldValue:      f.u64(),
		NewValue:      f.u64(),
		Justification: f.str(),
		Proposer:      f.addr(),
		Class:         ParamClass(f.u8()),
		Approvals:     f.addrs(),
		State:         GateState(f.u8()),
		CreatedAt:     f.i64(),
		ExpiresAt:     f.i64(),
		AppliedAt:     f.i64(),
	}
	if f.err != nil {
		return nil, f.err
	}
	return p, nil
}

// encodeIDs stores an index chunk as varints.
func encodeIDs(ids []uint64) string {
	w := newWriter()
	w.writeVarUint(uint64(len(ids)))
	for _, id := range ids {
		w.writeVarUint(id)
	}
	return w.string()
}

func decodeIDs(data string) ([]uint64, error) {
	r := newReader(data)
	n, err := r.readVarUint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(data)) {
		return nil, errEOF
	}
	ids := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		id, err := r.readVarUint()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
