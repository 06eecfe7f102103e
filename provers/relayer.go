package relayer

import (
	"context"
	"errors"
	"fmt"
	"time"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/protolambda/ztyp/tree"
	"github.com/rs/zerolog"

	"github.com/kysee/zk-helios/consensus"
	"github.com/kysee/zk-helios/primitives"
	cfgtypes "github.com/kysee/zk-helios/provers/types"
	"github.com/kysee/zk-helios/types"
)

const (
	initialRetryDelay = 5 * time.Second
	maxRetryDelay     = 5 * time.Minute
)

// Relayer drives the fetch-prove-submit loop. It is the only writer of the
// checkpoint: a new checkpoint is derived from the journal of an accepted
// proof and persisted before the loop moves on, so a crash at any point
// resumes from a store that was actually proven.
type Relayer struct {
	config     *cfgtypes.Config
	fetcher    cfgtypes.Fetcher
	backend    Backend
	submitter  Submitter     // nil: journals are logged, nothing is submitted
	sealCheck  *SealVerifier // nil: no local pre-verification
	checkpoint *CheckpointStore
	chainCfg   types.ChainConfig
	log        zerolog.Logger
}

func NewRelayer(
	config *cfgtypes.Config,
	fetcher cfgtypes.Fetcher,
	backend Backend,
	submitter Submitter,
	sealCheck *SealVerifier,
	checkpoint *CheckpointStore,
	chainCfg types.ChainConfig,
	log zerolog.Logger,
) *Relayer {
	return &Relayer{
		config:     config,
		fetcher:    fetcher,
		backend:    backend,
		submitter:  submitter,
		sealCheck:  sealCheck,
		checkpoint: checkpoint,
		chainCfg:   chainCfg,
		log:        log,
	}
}

// Run polls until ctx is cancelled. Transient fetch and prover failures back
// off exponentially; consensus rejections discard the update and wait for the
// next poll, since a later update may well be acceptable.
func (r *Relayer) Run(ctx context.Context) error {
	retry := initialRetryDelay

	for {
		err := r.RunOnce(ctx)

		var delay time.Duration
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err == nil:
			retry = initialRetryDelay
			delay = r.config.LoopDelay
		case consensus.IsConsensusError(err):
			r.log.Error().Err(err).Msg("update rejected, discarding")
			retry = initialRetryDelay
			delay = r.config.LoopDelay
		case IsRetryable(err):
			r.log.Warn().Err(err).Dur("retry_in", retry).Msg("transient failure")
			delay = retry
			retry = min(retry*2, maxRetryDelay)
		default:
			// Submission failures and host bugs are not auto-retried with
			// the same receipt; surface them.
			if r.config.Once {
				return err
			}
			r.log.Error().Err(err).Msg("iteration failed")
			delay = r.config.LoopDelay
		}

		if r.config.Once {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// RunOnce performs one iteration: ensure a checkpoint exists, pick at most
// one update, prove it, submit it, advance the checkpoint.
func (r *Relayer) RunOnce(ctx context.Context) error {
	cp, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	if cp == nil {
		cp, err = r.bootstrap()
		if err != nil {
			return err
		}
		r.log.Info().
			Uint64("slot", uint64(cp.Store.FinalizedHeader.Slot)).
			Msg("bootstrapped trusted store")
	}

	update, err := r.selectUpdate(cp)
	if err != nil {
		return err
	}
	if update == nil {
		r.log.Debug().
			Uint64("slot", uint64(cp.Store.FinalizedHeader.Slot)).
			Msg("store is up to date")
		return nil
	}

	in, err := r.buildProofInput(cp, update)
	if err != nil {
		return err
	}
	raw, err := types.EncodeProofInput(in)
	if err != nil {
		return err
	}

	r.log.Info().
		Uint64("finalized_slot", uint64(update.Data.FinalizedHeader.Beacon.Slot)).
		Uint64("signature_slot", uint64(update.Data.SignatureSlot)).
		Bool("rotation", update.Data.NextSyncCommittee != nil).
		Msg("proving update")
	receipt, err := r.backend.Prove(ctx, raw)
	if err != nil {
		return err
	}

	journal, err := receipt.DecodeJournal()
	if err != nil {
		return &ProverExecutionError{Err: err}
	}
	if journal.PrevFinalizedHeader != cp.Store.FinalizedHeader {
		return fmt.Errorf("journal does not chain from the current store: got slot %d, want %d",
			journal.PrevFinalizedHeader.Slot, cp.Store.FinalizedHeader.Slot)
	}
	if r.sealCheck != nil && len(receipt.Seal) > 0 {
		if err := r.sealCheck.Verify(receipt); err != nil {
			return fmt.Errorf("seal rejected locally: %w", err)
		}
	}

	if r.submitter != nil && len(receipt.Seal) > 0 {
		head, err := r.submitter.Head(ctx)
		if err != nil {
			return &SubmissionError{Err: err}
		}
		if uint64(journal.NewFinalizedHeader.Slot) <= head {
			r.log.Info().Uint64("head", head).Msg("contract already past this update")
		} else if err := r.submitter.SubmitUpdate(ctx, receipt, head); err != nil {
			return err
		}
	} else {
		r.log.Info().
			Uint64("new_slot", uint64(journal.NewFinalizedHeader.Slot)).
			Hex("sync_committee", journal.SyncCommitteeHash[:]).
			Msg("journal obtained, submission disabled")
	}

	next := advanceCheckpoint(cp, update, journal)
	if err := r.checkpoint.Replace(next); err != nil {
		return err
	}
	r.log.Info().
		Uint64("from_slot", uint64(cp.Store.FinalizedHeader.Slot)).
		Uint64("to_slot", uint64(next.Store.FinalizedHeader.Slot)).
		Msg("checkpoint advanced")
	return nil
}

// bootstrap seeds the checkpoint from a trusted block root. The committee
// branch is checked against the bootstrap header's state root before anything
// is persisted; the beacon node is never trusted beyond the root itself.
func (r *Relayer) bootstrap() (*Checkpoint, error) {
	if r.config.TrustedRoot == "" {
		return nil, errors.New("no checkpoint on disk and no trusted root configured")
	}
	bs, err := r.fetcher.Bootstrap(r.config.TrustedRoot)
	if err != nil {
		return nil, err
	}

	hFn := tree.GetHashFn()
	committeeRoot := bs.Data.CurrentSyncCommittee.HashTreeRoot(configs.Mainnet, hFn)
	if !primitives.VerifyBranch(
		committeeRoot,
		bs.Data.CurrentSyncCommitteeBranch,
		consensus.CurrentSyncCommitteeGIndex,
		bs.Data.Header.Beacon.StateRoot,
	) {
		return nil, errors.New("bootstrap sync committee branch does not verify")
	}

	execRoot, _, err := ExecutionStateRootProof(&bs.Data.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bootstrap execution state root: %w", err)
	}

	cp := &Checkpoint{
		Store: types.TrustedStore{
			FinalizedHeader:             bs.Data.Header.Beacon,
			CurrentSyncCommitteeHash:    committeeRoot,
			FinalizedExecutionStateRoot: execRoot,
		},
		CurrentSyncCommittee: bs.Data.CurrentSyncCommittee,
	}
	if err := r.checkpoint.Replace(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// selectUpdate picks at most one update to prove. The store advances one
// step per iteration: when it trails the chain by a period or more, the
// period updates walk it forward (learn the next committee for its own
// period, then cross into the next) and finality catches up afterwards.
func (r *Relayer) selectUpdate(cp *Checkpoint) (*cfgtypes.LightClientUpdate, error) {
	fin, err := r.fetcher.FinalityUpdate()
	if err != nil {
		return nil, &FetchError{Op: "finality update", Err: err}
	}
	if fin.Data.FinalizedHeader.Beacon.Slot <= cp.Store.FinalizedHeader.Slot {
		return nil, nil
	}

	storePeriod := consensus.SyncCommitteePeriod(cp.Store.FinalizedHeader.Slot)
	sigPeriod := consensus.SyncCommitteePeriod(fin.Data.SignatureSlot)

	needRotation := sigPeriod > storePeriod+1 ||
		(sigPeriod == storePeriod+1 && !cp.Store.HasNextCommittee())
	if !needRotation {
		return fin, nil
	}

	// With the next committee in hand the store can verify the following
	// period's update and rotate on its finalized header; without it, the
	// store's own period update teaches the next committee first.
	fetchPeriod := storePeriod
	if cp.Store.HasNextCommittee() {
		fetchPeriod = storePeriod + 1
	}
	ups, err := r.fetcher.ScUpdates(fetchPeriod, 1)
	if err != nil {
		return nil, &FetchError{Op: "sync committee updates", Err: err}
	}
	if len(ups) == 0 {
		return nil, &FetchError{
			Op:  "sync committee updates",
			Err: fmt.Errorf("no update for period %d", fetchPeriod),
		}
	}
	u := ups[0]
	if u.Data.NextSyncCommittee == nil {
		return nil, &FetchError{
			Op:  "sync committee updates",
			Err: fmt.Errorf("period %d update carries no next sync committee", fetchPeriod),
		}
	}
	if u.Data.FinalizedHeader.Beacon.Slot <= cp.Store.FinalizedHeader.Slot {
		return nil, &FetchError{
			Op:  "sync committee updates",
			Err: fmt.Errorf("period %d update is behind the store", fetchPeriod),
		}
	}
	return &u, nil
}

// buildProofInput shapes an API update into a proof input, deriving the
// execution state root branch from the finalized header's payload.
func (r *Relayer) buildProofInput(cp *Checkpoint, u *cfgtypes.LightClientUpdate) (*types.ProofInput, error) {
	execRoot, execBranch, err := ExecutionStateRootProof(&u.Data.FinalizedHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to build execution state root proof: %w", err)
	}

	var expectedSlot zrntcommon.Slot
	if r.chainCfg.GenesisTime != 0 {
		expectedSlot = consensus.SlotAtTime(uint64(time.Now().Unix()), r.chainCfg.GenesisTime)
	}

	return &types.ProofInput{
		Store: cp.Store,
		Update: types.Update{
			AttestedHeader:          u.Data.AttestedHeader.Beacon,
			FinalizedHeader:         u.Data.FinalizedHeader.Beacon,
			FinalityBranch:          u.Data.FinalityBranch,
			NextSyncCommittee:       u.Data.NextSyncCommittee,
			NextSyncCommitteeBranch: u.Data.NextSyncCommitteeBranch,
			SyncAggregate:           u.Data.SyncAggregate,
			SignatureSlot:           u.Data.SignatureSlot,
			ExecutionStateRoot:      execRoot,
			ExecutionBranch:         execBranch,
		},
		CurrentSyncCommittee: cp.CurrentSyncCommittee,
		NextSyncCommittee:    cp.NextSyncCommittee,
		ExpectedCurrentSlot:  expectedSlot,
		Config:               r.chainCfg,
	}, nil
}

// advanceCheckpoint derives the next checkpoint from an accepted journal.
// The committee preimages track the store rule: the current committee rotates
// to the held next preimage only when the finalized header crossed into the
// following period, and the update's next committee becomes the new next.
func advanceCheckpoint(cp *Checkpoint, u *cfgtypes.LightClientUpdate, journal *types.Journal) *Checkpoint {
	next := &Checkpoint{
		Store: types.TrustedStore{
			FinalizedHeader:             journal.NewFinalizedHeader,
			CurrentSyncCommitteeHash:    journal.SyncCommitteeHash,
			NextSyncCommitteeHash:       journal.NextSyncCommitteeHash,
			FinalizedExecutionStateRoot: journal.ExecutionStateRoot,
		},
		CurrentSyncCommittee: cp.CurrentSyncCommittee,
	}

	storePeriod := consensus.SyncCommitteePeriod(cp.Store.FinalizedHeader.Slot)
	finPeriod := consensus.SyncCommitteePeriod(journal.NewFinalizedHeader.Slot)
	switch {
	case finPeriod == storePeriod+1:
		if cp.NextSyncCommittee != nil {
			next.CurrentSyncCommittee = *cp.NextSyncCommittee
		}
		next.NextSyncCommittee = u.Data.NextSyncCommittee
	case cp.NextSyncCommittee == nil && finPeriod == storePeriod:
		next.NextSyncCommittee = u.Data.NextSyncCommittee
	default:
		next.NextSyncCommittee = cp.NextSyncCommittee
	}
	return next
}
