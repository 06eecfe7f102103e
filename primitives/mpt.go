package primitives

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// proofDB rebuilds the keccak-keyed node database trie.VerifyProof walks
// from a flat list of RLP proof nodes (the eth_getProof wire shape).
func proofDB(nodes [][]byte) ethdb.KeyValueReader {
	db := memorydb.New()
	for _, node := range nodes {
		_ = db.Put(crypto.Keccak256(node), node)
	}
	return db
}

// VerifyAccountProof checks an execution-layer account inclusion proof
// against a state root and returns the decoded account body.
func VerifyAccountProof(stateRoot common.Hash, address common.Address, proof [][]byte) (*types.StateAccount, error) {
	key := crypto.Keccak256(address.Bytes())
	val, err := trie.VerifyProof(stateRoot, key, proofDB(proof))
	if err != nil {
		return nil, fmt.Errorf("account proof for %s: %w", address.Hex(), err)
	}
	if len(val) == 0 {
		return nil, fmt.Errorf("account %s not present in state", address.Hex())
	}
	var account types.StateAccount
	if err := rlp.DecodeBytes(val, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account body: %w", err)
	}
	return &account, nil
}

// VerifyStorageProof checks a storage-slot inclusion proof against an
// account's storage root and returns the slot value, left-padded to 32
// bytes. An absent slot verifies to the zero hash.
func VerifyStorageProof(storageRoot common.Hash, slot common.Hash, proof [][]byte) (common.Hash, error) {
	key := crypto.Keccak256(slot.Bytes())
	val, err := trie.VerifyProof(storageRoot, key, proofDB(proof))
	if err != nil {
		return common.Hash{}, fmt.Errorf("storage proof for slot %s: %w", slot.Hex(), err)
	}
	if len(val) == 0 {
		return common.Hash{}, nil
	}
	var content []byte
	if err := rlp.DecodeBytes(val, &content); err != nil {
		return common.Hash{}, fmt.Errorf("failed to decode storage value: %w", err)
	}
	return common.BytesToHash(content), nil
}
