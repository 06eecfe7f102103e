package relayer

import (
	"encoding/binary"
	"fmt"
	"math/big"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"

	"github.com/kysee/zk-helios/consensus"
	"github.com/kysee/zk-helios/primitives"
	cfgtypes "github.com/kysee/zk-helios/provers/types"
	"github.com/kysee/zk-helios/types"
)

const (
	// The deneb/electra execution payload header has 17 fields merkleized
	// into a depth-5 subtree; state_root is field 2.
	payloadHeaderFields = 17
	payloadHeaderDepth  = 5
	payloadStateRootIdx = 2
)

// ExecutionStateRootProof turns an API light-client header into the combined
// depth-9 branch the verifier expects: the state_root sibling path inside
// the payload header subtree concatenated with the API's execution branch
// (payload header inside the beacon body).
func ExecutionStateRootProof(h *cfgtypes.LightClientHeader) (zrntcommon.Root, []zrntcommon.Root, error) {
	var stateRoot zrntcommon.Root
	if len(h.ExecutionBranch) == 0 {
		return stateRoot, nil, nil
	}

	leaves, err := payloadHeaderLeaves(&h.Execution)
	if err != nil {
		return stateRoot, nil, fmt.Errorf("failed to merkleize payload header: %w", err)
	}
	stateRoot = leaves[payloadStateRootIdx]

	branch := buildBranch(leaves[:], payloadStateRootIdx, payloadHeaderDepth)
	branch = append(branch, h.ExecutionBranch...)

	// The combined branch must fold back to the body root; anything else
	// means the API handed us an inconsistent header.
	if !primitives.VerifyBranch(stateRoot, branch, consensus.ExecutionStateRootGIndex, h.Beacon.BodyRoot) {
		return stateRoot, nil, fmt.Errorf("execution branch does not anchor state root %s in body root %s",
			stateRoot, h.Beacon.BodyRoot)
	}
	return stateRoot, branch, nil
}

// buildBranch collects the sibling path for a leaf inside a fixed-depth
// subtree, padding ragged levels with zero hashes.
func buildBranch(leaves []zrntcommon.Root, index int, depth uint8) []zrntcommon.Root {
	hFn := tree.GetHashFn()
	branch := make([]zrntcommon.Root, 0, depth)

	currentLevel := make([]zrntcommon.Root, len(leaves))
	copy(currentLevel, leaves)
	idx := uint64(index)

	for level := uint8(0); level < depth; level++ {
		siblingIdx := idx ^ 1
		if siblingIdx < uint64(len(currentLevel)) {
			branch = append(branch, currentLevel[siblingIdx])
		} else {
			branch = append(branch, tree.ZeroHashes[level])
		}

		nextLevelSize := (uint64(len(currentLevel)) + 1) / 2
		nextLevel := make([]zrntcommon.Root, nextLevelSize)
		for i := uint64(0); i < nextLevelSize; i++ {
			left := tree.ZeroHashes[level]
			right := tree.ZeroHashes[level]
			if 2*i < uint64(len(currentLevel)) {
				left = currentLevel[2*i]
			}
			if 2*i+1 < uint64(len(currentLevel)) {
				right = currentLevel[2*i+1]
			}
			nextLevel[i] = hFn(left, right)
		}

		currentLevel = nextLevel
		idx /= 2
	}
	return branch
}

// payloadHeaderLeaves computes the 17 SSZ field roots of the execution
// payload header from its API string form.
func payloadHeaderLeaves(h *cfgtypes.ExecutionPayloadHeader) ([payloadHeaderFields]zrntcommon.Root, error) {
	var leaves [payloadHeaderFields]zrntcommon.Root
	var err error

	set := func(i int) func(zrntcommon.Root, error) {
		return func(leaf zrntcommon.Root, e error) {
			if err == nil && e != nil {
				err = e
			}
			leaves[i] = leaf
		}
	}

	set(0)(rootLeaf(h.ParentHash))
	set(1)(bytesLeaf(h.FeeRecipient, 20))
	set(2)(rootLeaf(h.StateRoot))
	set(3)(rootLeaf(h.ReceiptsRoot))
	set(4)(bloomLeaf(h.LogsBloom))
	set(5)(rootLeaf(h.PrevRandao))
	set(6)(uint64Leaf(h.BlockNumber))
	set(7)(uint64Leaf(h.GasLimit))
	set(8)(uint64Leaf(h.GasUsed))
	set(9)(uint64Leaf(h.Timestamp))
	set(10)(extraDataLeaf(h.ExtraData))
	set(11)(uint256Leaf(h.BaseFeePerGas))
	set(12)(rootLeaf(h.BlockHash))
	set(13)(rootLeaf(h.TransactionsRoot))
	set(14)(rootLeaf(h.WithdrawalsRoot))
	set(15)(uint64Leaf(h.BlobGasUsed))
	set(16)(uint64Leaf(h.ExcessBlobGas))
	return leaves, err
}

func rootLeaf(s string) (zrntcommon.Root, error) {
	var root zrntcommon.Root
	bz, err := types.HexToBytes(s)
	if err != nil {
		return root, err
	}
	if len(bz) != 32 {
		return root, fmt.Errorf("expected 32 bytes, got %d", len(bz))
	}
	copy(root[:], bz)
	return root, nil
}

func bytesLeaf(s string, want int) (zrntcommon.Root, error) {
	var root zrntcommon.Root
	bz, err := types.HexToBytes(s)
	if err != nil {
		return root, err
	}
	if len(bz) != want {
		return root, fmt.Errorf("expected %d bytes, got %d", want, len(bz))
	}
	copy(root[:], bz)
	return root, nil
}

func uint64Leaf(s string) (zrntcommon.Root, error) {
	var root zrntcommon.Root
	v, err := parseUint64(s)
	if err != nil {
		return root, err
	}
	binary.LittleEndian.PutUint64(root[:8], v)
	return root, nil
}

func uint256Leaf(s string) (zrntcommon.Root, error) {
	var root zrntcommon.Root
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return root, fmt.Errorf("invalid uint256: %q", s)
	}
	be := v.Bytes()
	if len(be) > 32 {
		return root, fmt.Errorf("uint256 overflow: %q", s)
	}
	// SSZ uint256 is little-endian.
	for i, b := range be {
		root[len(be)-1-i] = b
	}
	return root, nil
}

// extraDataLeaf hashes the extra_data byte list (limit 32 bytes, one chunk)
// with its SSZ length mixin.
func extraDataLeaf(s string) (zrntcommon.Root, error) {
	var chunk, length zrntcommon.Root
	bz, err := types.HexToBytes(s)
	if err != nil {
		return chunk, err
	}
	if len(bz) > 32 {
		return chunk, fmt.Errorf("extra_data longer than 32 bytes: %d", len(bz))
	}
	copy(chunk[:], bz)
	binary.LittleEndian.PutUint64(length[:8], uint64(len(bz)))
	return tree.GetHashFn()(chunk, length), nil
}

// bloomLeaf merkleizes the 256-byte logs bloom into its depth-3 root.
func bloomLeaf(s string) (zrntcommon.Root, error) {
	var zero zrntcommon.Root
	bz, err := types.HexToBytes(s)
	if err != nil {
		return zero, err
	}
	if len(bz) != 256 {
		return zero, fmt.Errorf("expected 256 bloom bytes, got %d", len(bz))
	}
	hFn := tree.GetHashFn()
	chunks := make([]zrntcommon.Root, 8)
	for i := range chunks {
		copy(chunks[i][:], bz[i*32:(i+1)*32])
	}
	for len(chunks) > 1 {
		next := make([]zrntcommon.Root, len(chunks)/2)
		for i := range next {
			next[i] = hFn(chunks[2*i], chunks[2*i+1])
		}
		chunks = next
	}
	return chunks[0], nil
}

func parseUint64(s string) (uint64, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid uint64: %q", s)
	}
	return v, nil
}
