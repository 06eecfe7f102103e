package main

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/solidity"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/logger"

	circuit "github.com/kysee/zk-helios/circuits"
)

const (
	buildDir     = ".build"
	verifierPath = "verifiers/eth2/contracts/HeliosJournalVerifier.sol"
)

// The wrapper circuit only re-exposes the journal digest, so one setup per
// wire version suffices. Artifacts land in .build/; the Solidity verifier
// goes next to the contract sources.
func main() {
	if err := run(); err != nil {
		println("error:", err.Error())
		os.Exit(1)
	}
}

func run() error {
	logger.Disable()

	println("🕧 Compiling JournalWrapCircuit...")
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit.JournalWrapCircuit{})
	if err != nil {
		return err
	}
	println("constraints:", ccs.GetNbConstraints(), "public inputs:", ccs.GetNbPublicVariables())

	println("🕧 Running groth16 setup...")
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return err
	}
	artifacts := []struct {
		name string
		blob io.WriterTo
	}{
		{"JournalWrapCircuit.ccs", ccs},
		{"JournalWrapCircuit.pk", pk},
		{"JournalWrapCircuit.vk", vk},
	}
	for _, a := range artifacts {
		if err := writeArtifact(filepath.Join(buildDir, a.name), a.blob); err != nil {
			return err
		}
	}
	println("✅ Setup complete")

	return writeSolidityVerifier(vk, verifierPath)
}

func writeArtifact(path string, blob io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := blob.WriteTo(f); err != nil {
		return err
	}
	println("saved", path)
	return nil
}

func writeSolidityVerifier(vk groth16.VerifyingKey, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := vk.ExportSolidity(&buf, solidity.WithHashToFieldFunction(sha256.New())); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	println("✅ Solidity verifier generated to", path)
	return nil
}
