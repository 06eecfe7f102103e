package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	relayer "github.com/kysee/zk-helios/provers"
	cfgtypes "github.com/kysee/zk-helios/provers/types"
	"github.com/kysee/zk-helios/types"
)

func main() {
	config := cfgtypes.NewConfig(os.Args[1:]...)
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var fetcher cfgtypes.Fetcher
	if config.UpdateFile != "" {
		fetcher = relayer.NewFileFetcher(config.UpdateFile)
	} else {
		fetcher = relayer.NewAPIFetcher(config.BeaconEndpoint)
	}

	var backend relayer.Backend
	switch config.Backend {
	case "remote":
		if config.ProverEndpoint == "" {
			log.Fatal().Msg("remote backend requires --prover")
		}
		backend = relayer.NewRemoteBackend(config.ProverEndpoint, log)
	case "local":
		backend = relayer.LocalBackend{}
	default:
		log.Fatal().Str("backend", config.Backend).Msg("unknown proving backend")
	}

	var submitter relayer.Submitter
	if config.DestEndpoint != "" {
		s, err := relayer.NewContractSubmitter(ctx, config.DestEndpoint, config.ContractAddress, config.PrivateKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up submitter")
		}
		submitter = s
	} else {
		log.Warn().Msg("no destination RPC configured, journals will only be logged")
	}

	var sealCheck *relayer.SealVerifier
	if config.VerifyingKeyPath != "" {
		v, err := relayer.NewSealVerifier(config.VerifyingKeyPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load verifying key")
		}
		sealCheck = v
	}

	checkpoint := relayer.NewCheckpointStore(config.CheckpointPath)
	r := relayer.NewRelayer(config, fetcher, backend, submitter, sealCheck, checkpoint, types.MainnetConfig(), log)

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("relayer stopped")
	}
	log.Info().Msg("shutdown complete")
}
