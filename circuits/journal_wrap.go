package circuit

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
)

// JournalWrapCircuit is the BN254 circuit the proving environment wraps its
// receipts into for cheap on-chain verification. Its only public inputs are
// the two 128-bit halves of sha256(journal); the zkVM execution claim is
// bound to them by the wrapping backend. The host uses this circuit solely
// to build the public witness when pre-verifying a seal before submission.
type JournalWrapCircuit struct {
	// sha256(journal), big-endian, split as digest[0:16] || digest[16:32].
	JournalDigest [2]frontend.Variable `gnark:",public"`
}

// Define constrains each half to 128 bits so the digest cannot be smeared
// across field-element overflows.
func (c *JournalWrapCircuit) Define(api frontend.API) error {
	for i := range c.JournalDigest {
		api.ToBinary(c.JournalDigest[i], 128)
	}
	return nil
}

// SplitJournalDigest maps a journal digest onto the circuit's two public
// field elements.
func SplitJournalDigest(digest [32]byte) [2]*big.Int {
	return [2]*big.Int{
		new(big.Int).SetBytes(digest[0:16]),
		new(big.Int).SetBytes(digest[16:32]),
	}
}
