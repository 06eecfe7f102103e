package relayer

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	circuit "github.com/kysee/zk-helios/circuits"
	"github.com/kysee/zk-helios/types"
)

// SealVerifier checks a wrapped receipt locally before it is submitted, so
// a bad seal burns no gas. The proving service serializes seals in gnark's
// native form; the public witness is rebuilt from the journal digest.
type SealVerifier struct {
	vk groth16.VerifyingKey
}

func NewSealVerifier(vkPath string) (*SealVerifier, error) {
	f, err := os.Open(vkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open verifying key: %w", err)
	}
	defer f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("failed to read verifying key: %w", err)
	}
	return &SealVerifier{vk: vk}, nil
}

// Verify checks the receipt's seal against its committed journal.
func (v *SealVerifier) Verify(receipt *types.Receipt) error {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(receipt.Seal)); err != nil {
		return fmt.Errorf("failed to decode seal: %w", err)
	}

	digest := sha256.Sum256(receipt.Journal)
	limbs := circuit.SplitJournalDigest(digest)
	assignment := &circuit.JournalWrapCircuit{
		JournalDigest: [2]frontend.Variable{limbs[0], limbs[1]},
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("failed to build public witness: %w", err)
	}

	if err := groth16.Verify(proof, v.vk, witness,
		backend.WithVerifierHashToFieldFunction(sha256.New())); err != nil {
		return fmt.Errorf("seal does not verify: %w", err)
	}
	return nil
}

// SealCalldata re-encodes a gnark-serialized seal into the flat calldata
// layout the on-chain verifier consumes.
func SealCalldata(seal []byte) ([]byte, error) {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(seal)); err != nil {
		return nil, fmt.Errorf("failed to decode seal: %w", err)
	}
	ms, ok := proof.(interface{ MarshalSolidity() []byte })
	if !ok {
		return nil, fmt.Errorf("proof does not implement MarshalSolidity()")
	}
	return ms.MarshalSolidity(), nil
}
