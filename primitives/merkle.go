// Package primitives holds the deterministic, allocation-light crypto used
// by the consensus verifier: SSZ Merkle branch checks, BLS12-381 aggregate
// signature verification, and execution-layer Merkle-Patricia proofs. Every
// function here is pure; the guest calls them on a metered cycle budget.
package primitives

import (
	"math/bits"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"
)

// BranchDepth returns the proof depth of a generalized index.
func BranchDepth(gindex uint64) uint8 {
	return uint8(bits.Len64(gindex) - 1)
}

// SubtreeIndex returns the leaf position of a generalized index within its
// fixed-depth subtree.
func SubtreeIndex(gindex uint64) uint64 {
	return gindex % (uint64(1) << BranchDepth(gindex))
}

// ComputeRoot folds a leaf up through the branch at the given generalized
// index. Branch siblings are ordered leaf-first.
func ComputeRoot(leaf zrntcommon.Root, branch []zrntcommon.Root, gindex uint64) zrntcommon.Root {
	hFn := tree.GetHashFn()
	index := SubtreeIndex(gindex)
	node := leaf
	for i := 0; i < len(branch); i++ {
		if (index>>uint(i))&1 == 1 {
			node = hFn(branch[i], node)
		} else {
			node = hFn(node, branch[i])
		}
	}
	return node
}

// VerifyBranch checks a fixed-depth SSZ Merkle inclusion proof: the branch
// must be exactly as deep as the generalized index and fold the leaf back up
// to the claimed root.
func VerifyBranch(leaf zrntcommon.Root, branch []zrntcommon.Root, gindex uint64, root zrntcommon.Root) bool {
	if gindex < 2 || len(branch) != int(BranchDepth(gindex)) {
		return false
	}
	return ComputeRoot(leaf, branch, gindex) == root
}
