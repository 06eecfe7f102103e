package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	zrntaltair "github.com/protolambda/zrnt/eth2/beacon/altair"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"
)

// TrustedStore is the light client's current belief. It is created once from
// a trusted checkpoint and afterwards only ever replaced wholesale by an
// accepted update; FinalizedHeader.Slot strictly increases across stores.
type TrustedStore struct {
	FinalizedHeader             zrntcommon.BeaconBlockHeader `json:"finalized_header"`
	CurrentSyncCommitteeHash    zrntcommon.Root              `json:"current_sync_committee_hash"`
	NextSyncCommitteeHash       zrntcommon.Root              `json:"next_sync_committee_hash"` // zero until known
	FinalizedExecutionStateRoot zrntcommon.Root              `json:"finalized_execution_state_root"`
}

// Update is one candidate consensus advance, already fetched and shaped by
// the host. The sync committee branch and the next committee itself are only
// present on period-boundary updates.
type Update struct {
	AttestedHeader          zrntcommon.BeaconBlockHeader `json:"attested_header"`
	FinalizedHeader         zrntcommon.BeaconBlockHeader `json:"finalized_header"`
	FinalityBranch          []zrntcommon.Root            `json:"finality_branch"`
	NextSyncCommittee       *zrntcommon.SyncCommittee    `json:"next_sync_committee,omitempty"`
	NextSyncCommitteeBranch []zrntcommon.Root            `json:"next_sync_committee_branch,omitempty"`
	SyncAggregate           zrntaltair.SyncAggregate     `json:"sync_aggregate"`
	SignatureSlot           zrntcommon.Slot              `json:"signature_slot"`

	// Execution-layer linkage: ExecutionBranch proves ExecutionStateRoot
	// inside FinalizedHeader.BodyRoot; StorageSlots are optional MPT proofs
	// against that execution state root.
	ExecutionStateRoot zrntcommon.Root    `json:"execution_state_root"`
	ExecutionBranch    []zrntcommon.Root  `json:"execution_branch,omitempty"`
	StorageSlots       []StorageSlotProof `json:"storage_slots,omitempty"`
}

// StorageSlotProof carries an execution-layer account proof plus one storage
// slot proof under that account, RLP node lists as produced by eth_getProof.
type StorageSlotProof struct {
	Address      common.Address `json:"address"`
	Key          common.Hash    `json:"key"`
	Value        common.Hash    `json:"value"`
	AccountProof []HexBytes     `json:"account_proof"`
	StorageProof []HexBytes     `json:"storage_proof"`
}

// ForkEntry is one step of the fork schedule, ascending by epoch.
type ForkEntry struct {
	Epoch   zrntcommon.Epoch   `json:"epoch"`
	Version zrntcommon.Version `json:"version"`
}

// ChainConfig pins the verified chain: the genesis validators root feeding
// signature domains and the fork-version schedule. GenesisTime feeds the
// host's chain clock only and is not part of the commitment.
type ChainConfig struct {
	GenesisValidatorsRoot zrntcommon.Root `json:"genesis_validators_root"`
	GenesisTime           uint64          `json:"genesis_time,omitempty"`
	Forks                 []ForkEntry     `json:"forks"`
}

// VersionAtEpoch returns the fork version in force at the given epoch.
func (c *ChainConfig) VersionAtEpoch(epoch zrntcommon.Epoch) zrntcommon.Version {
	var version zrntcommon.Version
	for _, f := range c.Forks {
		if epoch < f.Epoch {
			break
		}
		version = f.Version
	}
	return version
}

// Commitment binds the genesis root and the fork schedule into a single root
// carried in every journal, so a verifier contract can pin the chain it
// accepts proofs for: keccak256(genesis_validators_root || cbor(forks)).
func (c *ChainConfig) Commitment() (zrntcommon.Root, error) {
	var out zrntcommon.Root
	forksEnc, err := encMode.Marshal(c.Forks)
	if err != nil {
		return out, err
	}
	copy(out[:], crypto.Keccak256(c.GenesisValidatorsRoot[:], forksEnc))
	return out, nil
}

// ProofInput is the full private input to one verification call. The
// committees are the preimages of the store's committee hashes; the verifier
// rejects them if they do not hash back to the trusted roots.
type ProofInput struct {
	Store                TrustedStore              `json:"store"`
	Update               Update                    `json:"update"`
	CurrentSyncCommittee zrntcommon.SyncCommittee  `json:"current_sync_committee"`
	NextSyncCommittee    *zrntcommon.SyncCommittee `json:"next_sync_committee,omitempty"`
	// ExpectedCurrentSlot is the host's view of the chain clock; updates
	// signed beyond it are rejected. Zero disables the bound.
	ExpectedCurrentSlot zrntcommon.Slot `json:"expected_current_slot,omitempty"`
	Config              ChainConfig     `json:"config"`
}

// Journal is the public commitment the proof binds to. Everything else
// computed during verification stays private to the guest.
type Journal struct {
	PrevFinalizedHeader   zrntcommon.BeaconBlockHeader `json:"prev_finalized_header"`
	NewFinalizedHeader    zrntcommon.BeaconBlockHeader `json:"new_finalized_header"`
	SyncCommitteeHash     zrntcommon.Root              `json:"sync_committee_hash"`
	NextSyncCommitteeHash zrntcommon.Root              `json:"next_sync_committee_hash"`
	ExecutionStateRoot    zrntcommon.Root              `json:"execution_state_root"`
	SignatureSlot         zrntcommon.Slot              `json:"signature_slot"`
	ChainCommitment       zrntcommon.Root              `json:"chain_commitment"`
}

// ParseSyncCommitteeBits expands the aggregate's participation bitfield into
// per-validator booleans, little-endian bit order within each byte.
func ParseSyncCommitteeBits(bitsBytes []byte) []bool {
	bits := make([]bool, 512)
	for i := 0; i < 512; i++ {
		byteIndex := i / 8
		bitIndex := i % 8
		if byteIndex < len(bitsBytes) {
			bits[i] = (bitsBytes[byteIndex] & (1 << bitIndex)) != 0
		}
	}
	return bits
}

var zeroRoot = zrntcommon.Root{}

// HasNextCommittee reports whether the store already knows the next period's
// committee hash.
func (s *TrustedStore) HasNextCommittee() bool {
	return s.NextSyncCommitteeHash != zeroRoot
}

// IsSyncCommitteeUpdate reports whether the update carries a next-committee
// rotation proof.
func (u *Update) IsSyncCommitteeUpdate() bool {
	return u.NextSyncCommittee != nil
}

// HashRoot hashes a beacon block header with the shared SSZ hasher.
func HashRoot(h *zrntcommon.BeaconBlockHeader) zrntcommon.Root {
	return h.HashTreeRoot(tree.GetHashFn())
}
