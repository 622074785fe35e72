package contract

import "github.com/ethereum/go-ethereum/common"

// packU64LEInline sprinkles a uint64 into dst in little-endian order so our keys stay compact.
func packU64LEInline(x uint64, dst []byte) {
	dst[0] = byte(x)
	dst[1] = byte(x >> 8)
	dst[2] = byte(x >> 16)
	dst[3] = byte(x >> 24)
	dst[4] = byte(x >> 32)
	dst[5] = byte(x >> 40)
	dst[6] = byte(x >> 48)
	dst[7] = byte(x >> 56)
}

// packU64LE appends the encoded number to dst and returns the new slice.
func packU64LE(x uint64, dst []byte) []byte {
	var tmp [8]byte
	packU64LEInline(x, tmp[:])
	return append(dst, tmp[:]...)
}

func singletonKey(prefix byte) string {
	return string([]byte{prefix})
}

// idKey is prefix + 8 byte id, shared by every record addressed by number.
func idKey(prefix byte, id uint64) string {
	var buf [9]byte
	buf[0] = prefix
	packU64LEInline(id, buf[1:])
	return string(buf[:])
}

// addrKey is prefix + raw 20 address bytes.
func addrKey(prefix byte, addr common.Address) string {
	buf := make([]byte, 0, 1+common.AddressLength)
	buf = append(buf, prefix)
	buf = append(buf, addr.Bytes()...)
	return string(buf)
}

func genesisKey() string    { return singletonKey(kGenesis) }
func paramsKey() string     { return singletonKey(kParams) }
func accountingKey() string { return singletonKey(kAccounting) }
func statusKey() string     { return singletonKey(kStatus) }
func adminsKey() string     { return singletonKey(kAdmins) }

func roleKey(addr common.Address) string { return addrKey(kRole, addr) }

// proposalKey encodes id under 0x10 prefix keeping metadata lumps contiguous.
func proposalKey(id uint64) string { return idKey(kProposalMeta, id) }

// openProposalsKey counts a proposer's unexecuted proposals.
func openProposalsKey(addr common.Address) string { return addrKey(kOpenProposals, addr) }

func lastProposalKey(addr common.Address) string { return addrKey(kLastProposal, addr) }

// voteKey mixes proposal id plus address bytes to avoid nested maps in storage.
func voteKey(id uint64, voter common.Address) string {
	buf := make([]byte, 0, 1+8+common.AddressLength)
	buf = append(buf, kVoteReceipt)
	buf = packU64LE(id, buf)
	buf = append(buf, voter.Bytes()...)
	return string(buf)
}

// voterSlotKey addresses the n-th voter of a proposal.
func voterSlotKey(id uint64, slot uint64) string {
	buf := make([]byte, 0, 1+16)
	buf = append(buf, kVoterSlot)
	buf = packU64LE(id, buf)
	buf = packU64LE(slot, buf)
	return string(buf)
}

func multiSigKey(id uint64) string      { return idKey(kMultiSig, id) }
func paramProposalKey(id uint64) string { return idKey(kParamProposal, id) }

// index bases for the chunked id lists
func proposerIndex(addr common.Address) string { return "idx:proposer:" + addr.Hex() }
func investorIndex(addr common.Address) string { return "idx:investor:" + addr.Hex() }
