package types

import (
	bn254_fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Receipt is the opaque result of one proving run: the groth16 seal produced
// by the proving environment and the journal bytes the proof commits to.
// A receipt with an empty seal comes from the local dev backend and must
// never be submitted on-chain.
type Receipt struct {
	Seal    HexBytes `json:"seal"`
	Journal HexBytes `json:"journal"`
}

// DecodeJournal decodes the receipt's committed journal frame.
func (r *Receipt) DecodeJournal() (*Journal, error) {
	return DecodeJournal(r.Journal)
}

// ProofData is the calldata layout of a BN254 groth16 seal as the on-chain
// verifier consumes it.
type ProofData struct {
	Proof         []HexBytes `json:"proof"`
	Commitments   []HexBytes `json:"commitments"`
	CommitmentPok []HexBytes `json:"commitmentPok"`
}

// CreateProofData splits a MarshalSolidity-encoded seal into its calldata
// parts: the A/B/C points (8 field words), then the Pedersen commitments and
// their proof of knowledge behind the 4-byte commitment count.
func CreateProofData(seal []byte) *ProofData {
	proof := make([]HexBytes, 8)
	for i := 0; i < len(proof); i++ {
		proof[i] = seal[i*bn254_fr.Bytes : (i+1)*bn254_fr.Bytes]
	}

	startIdx0 := 8*bn254_fr.Bytes + 4
	commitments := make([]HexBytes, 4)
	for i := 0; i < len(commitments); i++ {
		startIdx := startIdx0 + (i * bn254_fr.Bytes)
		commitments[i] = seal[startIdx : startIdx+bn254_fr.Bytes]
	}

	return &ProofData{
		Proof:         proof,
		Commitments:   commitments[0:2],
		CommitmentPok: commitments[2:4],
	}
}
