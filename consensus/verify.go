package consensus

import (
	gethcommon "github.com/ethereum/go-ethereum/common"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/protolambda/ztyp/tree"

	"github.com/kysee/zk-helios/primitives"
	"github.com/kysee/zk-helios/types"
)

// Verify runs the full state-transition check on one update. All validation
// passes or the whole call fails; on success it returns the replacement
// store and the public journal. Identical inputs always produce identical
// outputs, which proof reproducibility depends on.
func Verify(in *types.ProofInput) (types.TrustedStore, types.Journal, error) {
	var (
		store = in.Store
		u     = &in.Update
		hFn   = tree.GetHashFn()
		none  types.TrustedStore
		noJ   types.Journal
	)

	// 1. Slot monotonicity.
	if u.AttestedHeader.Slot <= store.FinalizedHeader.Slot {
		return none, noJ, errf(StaleUpdate, "attested_header.slot",
			"attested slot %d not beyond finalized slot %d", u.AttestedHeader.Slot, store.FinalizedHeader.Slot)
	}
	if u.SignatureSlot < u.AttestedHeader.Slot || u.AttestedHeader.Slot < u.FinalizedHeader.Slot {
		return none, noJ, errf(StaleUpdate, "signature_slot",
			"slots out of order: signature %d, attested %d, finalized %d",
			u.SignatureSlot, u.AttestedHeader.Slot, u.FinalizedHeader.Slot)
	}
	if in.ExpectedCurrentSlot != 0 && u.SignatureSlot > in.ExpectedCurrentSlot {
		return none, noJ, errf(StaleUpdate, "signature_slot",
			"signature slot %d is beyond the expected current slot %d", u.SignatureSlot, in.ExpectedCurrentSlot)
	}

	// 2. Finality inclusion: the finalized header must be the checkpoint
	// recorded in the attested header's state.
	finalizedRoot := u.FinalizedHeader.HashTreeRoot(hFn)
	if !primitives.VerifyBranch(finalizedRoot, u.FinalityBranch, FinalizedRootGIndex, u.AttestedHeader.StateRoot) {
		return none, noJ, errf(InvalidMerkleProof, "finality_branch",
			"finalized header %s not anchored in attested state", finalizedRoot)
	}

	// 3. Committee selection. The store advances at most one committee step
	// per update.
	storePeriod := SyncCommitteePeriod(store.FinalizedHeader.Slot)
	sigPeriod := SyncCommitteePeriod(u.SignatureSlot)

	var (
		committee     *zrntcommon.SyncCommittee
		committeeHash zrntcommon.Root
	)
	switch {
	case sigPeriod == storePeriod:
		committee = &in.CurrentSyncCommittee
		committeeHash = store.CurrentSyncCommitteeHash
	case sigPeriod == storePeriod+1:
		if !store.HasNextCommittee() {
			return none, noJ, errf(PeriodGap, "signature_slot",
				"period %d signed by a committee the store has not learned", sigPeriod)
		}
		if in.NextSyncCommittee == nil {
			return none, noJ, errf(InvalidMerkleProof, "next_sync_committee",
				"missing preimage for next committee hash %s", store.NextSyncCommitteeHash)
		}
		committee = in.NextSyncCommittee
		committeeHash = store.NextSyncCommitteeHash
	default:
		return none, noJ, errf(PeriodGap, "signature_slot",
			"update period %d is %d periods beyond store period %d", sigPeriod, sigPeriod-storePeriod, storePeriod)
	}
	if got := committee.HashTreeRoot(configs.Mainnet, hFn); got != committeeHash {
		return none, noJ, errf(InvalidMerkleProof, "sync_committee",
			"committee preimage hashes to %s, store trusts %s", got, committeeHash)
	}

	// Rotation proof for the following period, when supplied: the next
	// committee must be anchored in the new finalized header's state.
	var provenNextHash zrntcommon.Root
	if u.IsSyncCommitteeUpdate() {
		nextRoot := u.NextSyncCommittee.HashTreeRoot(configs.Mainnet, hFn)
		if !primitives.VerifyBranch(nextRoot, u.NextSyncCommitteeBranch, NextSyncCommitteeGIndex, u.FinalizedHeader.StateRoot) {
			return none, noJ, errf(InvalidMerkleProof, "sync_committee_branch",
				"next committee %s not anchored in finalized state", nextRoot)
		}
		provenNextHash = nextRoot
	}

	// The store's committee rotates only when the finalized header itself
	// crosses into the next period. A signature from the next period's
	// committee picks the verifying key above, nothing more: the store may
	// still need the current committee for later in-period updates.
	finPeriod := SyncCommitteePeriod(u.FinalizedHeader.Slot)
	rotated := finPeriod == storePeriod+1

	// 4. Supermajority aggregate signature over the attested header.
	bits := types.ParseSyncCommitteeBits(u.SyncAggregate.SyncCommitteeBits)
	participants := 0
	for _, b := range bits {
		if b {
			participants++
		}
	}
	if !HasSupermajority(participants) {
		return none, noJ, errf(InsufficientSignatures, "sync_committee_bits",
			"%d of %d participants, below two-thirds", participants, SyncCommitteeSize)
	}

	aggPubkey, _, err := primitives.AggregatePubkeys(committee.Pubkeys, bits)
	if err != nil {
		return none, noJ, errf(InvalidSignature, "sync_committee_pubkeys", "%v", err)
	}
	signature, err := primitives.ParseSignature(u.SyncAggregate.SyncCommitteeSignature)
	if err != nil {
		return none, noJ, errf(InvalidSignature, "sync_committee_signature", "%v", err)
	}

	version := in.Config.VersionAtEpoch(EpochAtSlot(u.SignatureSlot))
	domain := zrntcommon.ComputeDomain(DomainSyncCommittee, version, in.Config.GenesisValidatorsRoot)
	signingRoot := zrntcommon.ComputeSigningRoot(u.AttestedHeader.HashTreeRoot(hFn), domain)

	valid, err := primitives.VerifyAggregate(aggPubkey, signingRoot, signature)
	if err != nil {
		return none, noJ, errf(InvalidSignature, "sync_committee_signature", "pairing check: %v", err)
	}
	if !valid {
		return none, noJ, errf(InvalidSignature, "sync_committee_signature",
			"aggregate does not sign root %s at slot %d", signingRoot, u.SignatureSlot)
	}

	// 5. Execution-state linkage, when supplied.
	var execStateRoot zrntcommon.Root
	if len(u.ExecutionBranch) > 0 {
		if !primitives.VerifyBranch(u.ExecutionStateRoot, u.ExecutionBranch, ExecutionStateRootGIndex, u.FinalizedHeader.BodyRoot) {
			return none, noJ, errf(InvalidExecutionProof, "execution_branch",
				"execution state root %s not anchored in finalized body", u.ExecutionStateRoot)
		}
		execStateRoot = u.ExecutionStateRoot

		for i := range u.StorageSlots {
			if err := verifyStorageSlot(execStateRoot, &u.StorageSlots[i]); err != nil {
				return none, noJ, err
			}
		}
	} else if len(u.StorageSlots) > 0 {
		return none, noJ, errf(InvalidExecutionProof, "execution_branch",
			"storage proofs supplied without an execution state root")
	}

	newStore := types.TrustedStore{
		FinalizedHeader:             u.FinalizedHeader,
		CurrentSyncCommitteeHash:    store.CurrentSyncCommitteeHash,
		NextSyncCommitteeHash:       store.NextSyncCommitteeHash,
		FinalizedExecutionStateRoot: execStateRoot,
	}
	switch {
	case rotated:
		newStore.CurrentSyncCommitteeHash = store.NextSyncCommitteeHash
		newStore.NextSyncCommitteeHash = provenNextHash
	case !store.HasNextCommittee() && finPeriod == storePeriod:
		newStore.NextSyncCommitteeHash = provenNextHash
	}

	chainCommitment, err := in.Config.Commitment()
	if err != nil {
		return none, noJ, errf(InvalidMerkleProof, "chain_config", "cannot commit fork schedule: %v", err)
	}

	journal := types.Journal{
		PrevFinalizedHeader:   store.FinalizedHeader,
		NewFinalizedHeader:    u.FinalizedHeader,
		SyncCommitteeHash:     newStore.CurrentSyncCommitteeHash,
		NextSyncCommitteeHash: newStore.NextSyncCommitteeHash,
		ExecutionStateRoot:    newStore.FinalizedExecutionStateRoot,
		SignatureSlot:         u.SignatureSlot,
		ChainCommitment:       chainCommitment,
	}
	return newStore, journal, nil
}

func verifyStorageSlot(execStateRoot zrntcommon.Root, p *types.StorageSlotProof) error {
	stateRoot := gethcommon.Hash(execStateRoot)
	account, err := primitives.VerifyAccountProof(stateRoot, p.Address, hexNodes(p.AccountProof))
	if err != nil {
		return errf(InvalidExecutionProof, "account_proof", "%v", err)
	}
	value, err := primitives.VerifyStorageProof(account.Root, p.Key, hexNodes(p.StorageProof))
	if err != nil {
		return errf(InvalidExecutionProof, "storage_proof", "%v", err)
	}
	if value != p.Value {
		return errf(InvalidExecutionProof, "storage_proof",
			"slot %s holds %s, expected %s", p.Key.Hex(), value.Hex(), p.Value.Hex())
	}
	return nil
}

func hexNodes(nodes []types.HexBytes) [][]byte {
	out := make([][]byte, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}
