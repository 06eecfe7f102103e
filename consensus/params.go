// Package consensus implements the light-client state transition: given a
// trusted store and one candidate update it either produces the next store
// plus the public journal, or a typed rejection. The whole package is pure
// and deterministic; it runs unchanged inside the zkVM guest.
package consensus

import (
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

const (
	SlotsPerEpoch                = 32
	EpochsPerSyncCommitteePeriod = 256
	SlotsPerSyncCommitteePeriod  = SlotsPerEpoch * EpochsPerSyncCommitteePeriod
	SecondsPerSlot               = 12

	SyncCommitteeSize = 512

	// Supermajority participation threshold: 3*participants >= 2*committee.
	SupermajorityNum = 2
	SupermajorityDen = 3

	// Generalized indices into the beacon state and block body trees.
	FinalizedRootGIndex        = 105 // state.finalized_checkpoint.root, depth 6
	CurrentSyncCommitteeGIndex = 54  // state.current_sync_committee, depth 5
	NextSyncCommitteeGIndex    = 55  // state.next_sync_committee, depth 5
	// body.execution_payload (25) combined with payload.state_root (field 2
	// of the payload header), depth 9.
	ExecutionStateRootGIndex = 802
)

// DomainSyncCommittee is DOMAIN_SYNC_COMMITTEE.
var DomainSyncCommittee = zrntcommon.BLSDomainType{0x07, 0x00, 0x00, 0x00}

// EpochAtSlot returns the epoch containing a slot.
func EpochAtSlot(slot zrntcommon.Slot) zrntcommon.Epoch {
	return zrntcommon.Epoch(slot / SlotsPerEpoch)
}

// SyncCommitteePeriod returns the sync-committee period containing a slot.
func SyncCommitteePeriod(slot zrntcommon.Slot) uint64 {
	return uint64(slot) / SlotsPerSyncCommitteePeriod
}

// SlotAtTime returns the slot in progress at a unix timestamp, zero before
// genesis.
func SlotAtTime(unix, genesisTime uint64) zrntcommon.Slot {
	if unix < genesisTime {
		return 0
	}
	return zrntcommon.Slot((unix - genesisTime) / SecondsPerSlot)
}

// HasSupermajority reports whether the participant count clears the
// two-thirds threshold over the full committee.
func HasSupermajority(participants int) bool {
	return SupermajorityDen*participants >= SupermajorityNum*SyncCommitteeSize
}
