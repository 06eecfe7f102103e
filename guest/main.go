//go:build mipsle

// The guest is the only code that executes inside the proving sandbox. It
// reads one serialized (store, update) frame from the zkVM input channel,
// runs the consensus verifier, and commits the journal. Any rejection panics
// the execution: a failed verification must never yield a proof of
// acceptance.
package main

import (
	"github.com/ProjectZKM/Ziren/crates/go-runtime/zkvm_runtime"

	"github.com/kysee/zk-helios/consensus"
	"github.com/kysee/zk-helios/types"
)

func main() {
	raw := zkvm_runtime.Read[[]byte]()

	input, err := types.DecodeProofInput(raw)
	if err != nil {
		panic(err)
	}

	_, journal, err := consensus.Verify(input)
	if err != nil {
		panic(err)
	}

	out, err := types.EncodeJournal(&journal)
	if err != nil {
		panic(err)
	}
	zkvm_runtime.Commit(out)
}
