package relayer

import (
	"strings"
	"testing"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"
	"github.com/stretchr/testify/require"

	"github.com/kysee/zk-helios/consensus"
	"github.com/kysee/zk-helios/primitives"
	cfgtypes "github.com/kysee/zk-helios/provers/types"
)

func samplePayloadHeader() cfgtypes.ExecutionPayloadHeader {
	return cfgtypes.ExecutionPayloadHeader{
		ParentHash:       "0x" + strings.Repeat("11", 32),
		FeeRecipient:     "0x" + strings.Repeat("22", 20),
		StateRoot:        "0x" + strings.Repeat("33", 32),
		ReceiptsRoot:     "0x" + strings.Repeat("44", 32),
		LogsBloom:        "0x" + strings.Repeat("00", 256),
		PrevRandao:       "0x" + strings.Repeat("55", 32),
		BlockNumber:      "123456",
		GasLimit:         "30000000",
		GasUsed:          "21000",
		Timestamp:        "1700000000",
		ExtraData:        "0x626c6f636b20627920626573",
		BaseFeePerGas:    "1000000007",
		BlockHash:        "0x" + strings.Repeat("66", 32),
		TransactionsRoot: "0x" + strings.Repeat("77", 32),
		WithdrawalsRoot:  "0x" + strings.Repeat("88", 32),
		BlobGasUsed:      "0",
		ExcessBlobGas:    "131072",
	}
}

// foldPayloadRoot merkleizes 17 field roots into the depth-5 payload header
// root the straightforward way, independent of the branch builder.
func foldPayloadRoot(leaves [payloadHeaderFields]zrntcommon.Root) zrntcommon.Root {
	hFn := tree.GetHashFn()
	level := make([]zrntcommon.Root, 32)
	copy(level, leaves[:])
	for len(level) > 1 {
		next := make([]zrntcommon.Root, len(level)/2)
		for i := range next {
			next[i] = hFn(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// sampleLightClientHeader builds a header whose body root genuinely anchors
// the payload's state root under the combined gindex.
func sampleLightClientHeader(t *testing.T, slot zrntcommon.Slot) cfgtypes.LightClientHeader {
	t.Helper()

	execution := samplePayloadHeader()
	leaves, err := payloadHeaderLeaves(&execution)
	require.NoError(t, err)
	payloadRoot := foldPayloadRoot(leaves)

	// body gindex of execution_payload is 25, depth 4
	execBranch := []zrntcommon.Root{{0xc1}, {0xc2}, {0xc3}, {0xc4}}
	bodyRoot := primitives.ComputeRoot(payloadRoot, execBranch, 25)

	return cfgtypes.LightClientHeader{
		Beacon: zrntcommon.BeaconBlockHeader{
			Slot:          slot,
			ProposerIndex: 3,
			ParentRoot:    zrntcommon.Root{0xd1},
			StateRoot:     zrntcommon.Root{0xd2},
			BodyRoot:      bodyRoot,
		},
		Execution:       execution,
		ExecutionBranch: execBranch,
	}
}

func TestExecutionStateRootProof(t *testing.T) {
	h := sampleLightClientHeader(t, 1032)

	stateRoot, branch, err := ExecutionStateRootProof(&h)
	require.NoError(t, err)

	var want zrntcommon.Root
	for i := range want {
		want[i] = 0x33
	}
	require.Equal(t, want, stateRoot)
	require.Len(t, branch, 9)
	require.True(t, primitives.VerifyBranch(stateRoot, branch, consensus.ExecutionStateRootGIndex, h.Beacon.BodyRoot))
}

func TestExecutionStateRootProofInconsistentHeader(t *testing.T) {
	h := sampleLightClientHeader(t, 1032)
	h.Beacon.BodyRoot[0] ^= 0x01

	_, _, err := ExecutionStateRootProof(&h)
	require.Error(t, err)
}

func TestExecutionStateRootProofWithoutBranch(t *testing.T) {
	h := sampleLightClientHeader(t, 1032)
	h.ExecutionBranch = nil

	stateRoot, branch, err := ExecutionStateRootProof(&h)
	require.NoError(t, err)
	require.Equal(t, zrntcommon.Root{}, stateRoot)
	require.Nil(t, branch)
}

func TestExecutionStateRootProofBadField(t *testing.T) {
	h := sampleLightClientHeader(t, 1032)
	h.Execution.BaseFeePerGas = "not a number"

	_, _, err := ExecutionStateRootProof(&h)
	require.Error(t, err)
}

func TestPayloadLeafEncodings(t *testing.T) {
	leaf, err := uint64Leaf("258")
	require.NoError(t, err)
	require.Equal(t, byte(0x02), leaf[0])
	require.Equal(t, byte(0x01), leaf[1])

	leaf, err = uint256Leaf("256")
	require.NoError(t, err)
	require.Equal(t, byte(0x00), leaf[0])
	require.Equal(t, byte(0x01), leaf[1])

	// extra_data mixes the byte-list length into the leaf
	short, err := extraDataLeaf("0x01")
	require.NoError(t, err)
	long, err := extraDataLeaf("0x0100")
	require.NoError(t, err)
	require.NotEqual(t, short, long)
}
