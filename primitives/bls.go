package primitives

import (
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

// SigningDST is the hash-to-curve domain separation tag of the Ethereum BLS
// signature scheme (pubkeys in G1, signatures in G2).
const SigningDST = "BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_"

// AggregatePubkeys adds the G1 points selected by the participation bits.
// Point addition is associative and commutative, so the bitfield's order
// never affects the result. Returns the aggregate and the participant count.
func AggregatePubkeys(pubkeys []zrntcommon.BLSPubkey, bits []bool) (bls12381.G1Affine, int, error) {
	var aggPubkey bls12381.G1Affine
	aggPubkey.SetInfinity()

	count := 0
	for i, participate := range bits {
		if !participate || i >= len(pubkeys) {
			continue
		}
		var pubkey bls12381.G1Affine
		if _, err := pubkey.SetBytes(pubkeys[i][:]); err != nil {
			return aggPubkey, 0, fmt.Errorf("failed to deserialize pubkey %d: %w", i, err)
		}
		aggPubkey.Add(&aggPubkey, &pubkey)
		count++
	}

	if count == 0 {
		return aggPubkey, 0, fmt.Errorf("no public keys to aggregate")
	}
	return aggPubkey, count, nil
}

// ParseSignature deserializes a compressed G2 signature, rejecting points
// off the curve or outside the subgroup.
func ParseSignature(sig zrntcommon.BLSSignature) (bls12381.G2Affine, error) {
	var signature bls12381.G2Affine
	if _, err := signature.SetBytes(sig[:]); err != nil {
		return signature, fmt.Errorf("failed to deserialize signature: %w", err)
	}
	return signature, nil
}

// VerifyAggregate checks e(pubkey, H(signingRoot)) == e(G1, signature) via
// the product pairing e(pubkey, H(m)) * e(-G1, signature) == 1.
func VerifyAggregate(aggPubkey bls12381.G1Affine, signingRoot zrntcommon.Root, signature bls12381.G2Affine) (bool, error) {
	messageHash, err := bls12381.HashToG2(signingRoot[:], []byte(SigningDST))
	if err != nil {
		return false, fmt.Errorf("failed to hash to G2: %w", err)
	}

	_, _, g1Gen, _ := bls12381.Generators()
	var negG1 bls12381.G1Affine
	negG1.Neg(&g1Gen)

	return bls12381.PairingCheck(
		[]bls12381.G1Affine{aggPubkey, negG1},
		[]bls12381.G2Affine{messageHash, signature},
	)
}
