package types

import (
	zrntaltair "github.com/protolambda/zrnt/eth2/beacon/altair"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

// ExecutionPayloadHeader is the Beacon API's JSON shape of the execution
// payload header carried on Capella+ light client headers. Fields stay as
// strings; the relayer parses what it needs when building the execution
// state root branch.
type ExecutionPayloadHeader struct {
	ParentHash       string `json:"parent_hash"`
	FeeRecipient     string `json:"fee_recipient"`
	StateRoot        string `json:"state_root"`
	ReceiptsRoot     string `json:"receipts_root"`
	LogsBloom        string `json:"logs_bloom"`
	PrevRandao       string `json:"prev_randao"`
	BlockNumber      string `json:"block_number"`
	GasLimit         string `json:"gas_limit"`
	GasUsed          string `json:"gas_used"`
	Timestamp        string `json:"timestamp"`
	ExtraData        string `json:"extra_data"`
	BaseFeePerGas    string `json:"base_fee_per_gas"`
	BlockHash        string `json:"block_hash"`
	TransactionsRoot string `json:"transactions_root"`
	WithdrawalsRoot  string `json:"withdrawals_root"`
	BlobGasUsed      string `json:"blob_gas_used"`
	ExcessBlobGas    string `json:"excess_blob_gas"`
}

// LightClientHeader is a beacon header plus its execution payload header and
// the branch anchoring the payload in the beacon body.
type LightClientHeader struct {
	Beacon          zrntcommon.BeaconBlockHeader `json:"beacon"`
	Execution       ExecutionPayloadHeader       `json:"execution"`
	ExecutionBranch []zrntcommon.Root            `json:"execution_branch"`
}

// LightClientUpdate is one entry of the Beacon API light-client updates and
// finality-update responses.
type LightClientUpdate struct {
	Data struct {
		AttestedHeader          LightClientHeader         `json:"attested_header"`
		NextSyncCommittee       *zrntcommon.SyncCommittee `json:"next_sync_committee"`
		NextSyncCommitteeBranch []zrntcommon.Root         `json:"next_sync_committee_branch"`
		FinalizedHeader         LightClientHeader         `json:"finalized_header"`
		FinalityBranch          []zrntcommon.Root         `json:"finality_branch"`
		SyncAggregate           zrntaltair.SyncAggregate  `json:"sync_aggregate"`
		SignatureSlot           zrntcommon.Slot           `json:"signature_slot"`
	} `json:"data"`
	Version string `json:"version"`
}

// LightClientBootstrap is the Beacon API bootstrap response for a trusted
// block root.
type LightClientBootstrap struct {
	Data struct {
		Header                     LightClientHeader        `json:"header"`
		CurrentSyncCommittee       zrntcommon.SyncCommittee `json:"current_sync_committee"`
		CurrentSyncCommitteeBranch []zrntcommon.Root        `json:"current_sync_committee_branch"`
	} `json:"data"`
	Version string `json:"version"`
}

// Fetcher supplies beacon-chain light client data. Implementations do not
// authenticate the transport; everything they return is re-verified
// cryptographically before the store moves.
type Fetcher interface {
	// ScUpdates retrieves sync-committee period updates starting at the
	// given period.
	ScUpdates(startPeriod uint64, count int) ([]LightClientUpdate, error)
	// FinalityUpdate retrieves the latest finality update.
	FinalityUpdate() (*LightClientUpdate, error)
	// Bootstrap retrieves the light client bootstrap for a trusted root.
	Bootstrap(blockRoot string) (*LightClientBootstrap, error)
}
