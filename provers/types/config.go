package types

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the operator configuration. Endpoints and paths come from
// flags or environment; the relayer key only ever comes from the
// environment.
type Config struct {
	RootDir string

	// BeaconEndpoint is the Beacon API REST endpoint updates are fetched from.
	BeaconEndpoint string
	// DestEndpoint is the execution-layer JSON-RPC endpoint proofs are
	// submitted to. Empty disables submission (journals are only logged).
	DestEndpoint string
	// ContractAddress is the on-chain verifier contract.
	ContractAddress string
	// PrivateKey signs submission transactions. Env only (PRIVATE_KEY).
	PrivateKey string

	// CheckpointPath is the persisted trusted-store checkpoint file.
	CheckpointPath string
	// TrustedRoot bootstraps the checkpoint when no file exists yet.
	TrustedRoot string

	// Backend selects the proving backend: "local" or "remote".
	Backend string
	// ProverEndpoint is the remote proving service, when Backend is "remote".
	ProverEndpoint string
	// VerifyingKeyPath, when set, enables local seal pre-verification.
	VerifyingKeyPath string

	// LoopDelay is the pause between polling iterations.
	LoopDelay time.Duration
	// Once runs a single fetch-prove-submit pass and exits.
	Once bool
	// UpdateFile replays a single update from disk instead of the Beacon API.
	UpdateFile string
}

func NewConfig(args ...string) *Config {
	config := Config{
		RootDir:         getEnv("ROOT", "."),
		BeaconEndpoint:  getEnv("BEACON_ENDPOINT", "https://lodestar-mainnet.chainsafe.io/"),
		DestEndpoint:    getEnv("DEST_RPC_URL", ""),
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),
		PrivateKey:      os.Getenv("PRIVATE_KEY"),
		CheckpointPath:  getEnv("CHECKPOINT_PATH", "checkpoint.json"),
		Backend:         getEnv("PROVER_BACKEND", "local"),
		ProverEndpoint:  getEnv("PROVER_ENDPOINT", ""),
		LoopDelay:       5 * time.Minute,
	}

	for i := 0; i < len(args); i++ {
		if len(args) <= i+1 && args[i] != "--once" {
			panic(fmt.Errorf("missing argument for %s", args[i]))
		}

		switch args[i] {
		case "--root":
			config.RootDir = args[i+1]
			i++
		case "--beacon":
			config.BeaconEndpoint = args[i+1]
			i++
		case "--dest-rpc":
			config.DestEndpoint = args[i+1]
			i++
		case "--contract":
			config.ContractAddress = args[i+1]
			i++
		case "--checkpoint":
			config.CheckpointPath = args[i+1]
			i++
		case "--trusted-root":
			config.TrustedRoot = args[i+1]
			i++
		case "--backend":
			config.Backend = args[i+1]
			i++
		case "--prover":
			config.ProverEndpoint = args[i+1]
			i++
		case "--vk":
			config.VerifyingKeyPath = args[i+1]
			i++
		case "--update-file":
			config.UpdateFile = args[i+1]
			i++
		case "--loop-delay":
			secs, _ := strconv.ParseUint(args[i+1], 10, 64)
			config.LoopDelay = time.Duration(secs) * time.Second
			i++
		case "--once":
			config.Once = true
		}
	}

	return &config
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
