package relayer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/protolambda/ztyp/tree"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kysee/zk-helios/consensus"
	"github.com/kysee/zk-helios/primitives"
	cfgtypes "github.com/kysee/zk-helios/provers/types"
	"github.com/kysee/zk-helios/types"
)

type fakeFetcher struct {
	finality  *cfgtypes.LightClientUpdate
	periodic  map[uint64]cfgtypes.LightClientUpdate
	bootstrap *cfgtypes.LightClientBootstrap
	scCalls   []uint64
}

func (f *fakeFetcher) ScUpdates(startPeriod uint64, _ int) ([]cfgtypes.LightClientUpdate, error) {
	f.scCalls = append(f.scCalls, startPeriod)
	u, ok := f.periodic[startPeriod]
	if !ok {
		return nil, nil
	}
	return []cfgtypes.LightClientUpdate{u}, nil
}

func (f *fakeFetcher) FinalityUpdate() (*cfgtypes.LightClientUpdate, error) {
	if f.finality == nil {
		return nil, errors.New("no finality update staged")
	}
	return f.finality, nil
}

func (f *fakeFetcher) Bootstrap(string) (*cfgtypes.LightClientBootstrap, error) {
	if f.bootstrap == nil {
		return nil, errors.New("no bootstrap staged")
	}
	return f.bootstrap, nil
}

// fakeBackend decodes the input and emits a journal that chains from its
// store, mimicking the guest without any cryptography.
type fakeBackend struct {
	seal  []byte
	err   error
	calls int
}

func (b *fakeBackend) Prove(_ context.Context, input []byte) (*types.Receipt, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	in, err := types.DecodeProofInput(input)
	if err != nil {
		return nil, err
	}

	journal := types.Journal{
		PrevFinalizedHeader:   in.Store.FinalizedHeader,
		NewFinalizedHeader:    in.Update.FinalizedHeader,
		SyncCommitteeHash:     in.Store.CurrentSyncCommitteeHash,
		NextSyncCommitteeHash: in.Store.NextSyncCommitteeHash,
		SignatureSlot:         in.Update.SignatureSlot,
	}
	var provenNext zrntcommon.Root
	if in.Update.NextSyncCommittee != nil {
		provenNext = in.Update.NextSyncCommittee.HashTreeRoot(configs.Mainnet, tree.GetHashFn())
	}
	storePeriod := consensus.SyncCommitteePeriod(in.Store.FinalizedHeader.Slot)
	finPeriod := consensus.SyncCommitteePeriod(in.Update.FinalizedHeader.Slot)
	switch {
	case finPeriod == storePeriod+1:
		journal.SyncCommitteeHash = in.Store.NextSyncCommitteeHash
		journal.NextSyncCommitteeHash = provenNext
	case !in.Store.HasNextCommittee() && finPeriod == storePeriod:
		journal.NextSyncCommitteeHash = provenNext
	}

	enc, err := types.EncodeJournal(&journal)
	if err != nil {
		return nil, err
	}
	return &types.Receipt{Seal: b.seal, Journal: enc}, nil
}

// cannedBackend replays a fixed receipt regardless of the input.
type cannedBackend struct {
	receipt *types.Receipt
}

func (b *cannedBackend) Prove(context.Context, []byte) (*types.Receipt, error) {
	return b.receipt, nil
}

type fakeSubmitter struct {
	head      uint64
	submitted int
}

func (s *fakeSubmitter) Head(context.Context) (uint64, error) {
	return s.head, nil
}

func (s *fakeSubmitter) SubmitUpdate(context.Context, *types.Receipt, uint64) error {
	s.submitted++
	return nil
}

func beaconHeader(slot zrntcommon.Slot) zrntcommon.BeaconBlockHeader {
	return zrntcommon.BeaconBlockHeader{
		Slot:          slot,
		ProposerIndex: 2,
		ParentRoot:    zrntcommon.Root{0x01},
		StateRoot:     zrntcommon.Root{0x02},
		BodyRoot:      zrntcommon.Root{0x03},
	}
}

func stagedUpdate(finalizedSlot, attestedSlot, signatureSlot zrntcommon.Slot) *cfgtypes.LightClientUpdate {
	u := &cfgtypes.LightClientUpdate{Version: "electra"}
	u.Data.AttestedHeader.Beacon = beaconHeader(attestedSlot)
	u.Data.FinalizedHeader.Beacon = beaconHeader(finalizedSlot)
	u.Data.FinalityBranch = []zrntcommon.Root{{0x61}, {0x62}, {0x63}, {0x64}, {0x65}, {0x66}}
	u.Data.SignatureSlot = signatureSlot
	return u
}

func newTestRelayer(t *testing.T, fetcher cfgtypes.Fetcher, backend Backend, submitter Submitter, trustedRoot string) (*Relayer, *CheckpointStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	config := &cfgtypes.Config{
		CheckpointPath: path,
		TrustedRoot:    trustedRoot,
		Once:           true,
	}
	store := NewCheckpointStore(path)
	r := NewRelayer(config, fetcher, backend, submitter, nil, store, types.MainnetConfig(), zerolog.Nop())
	return r, store
}

func TestRunOnceUpToDate(t *testing.T) {
	fetcher := &fakeFetcher{finality: stagedUpdate(900, 904, 905)}
	backend := &fakeBackend{}
	r, store := newTestRelayer(t, fetcher, backend, nil, "")
	require.NoError(t, store.Replace(testCheckpoint(1000)))

	require.NoError(t, r.RunOnce(context.Background()))
	require.Equal(t, 0, backend.calls)

	cp, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, zrntcommon.Slot(1000), cp.Store.FinalizedHeader.Slot)
}

func TestRunOnceAdvancesCheckpoint(t *testing.T) {
	fetcher := &fakeFetcher{finality: stagedUpdate(1032, 1036, 1037)}
	backend := &fakeBackend{}
	r, store := newTestRelayer(t, fetcher, backend, nil, "")
	require.NoError(t, store.Replace(testCheckpoint(1000)))

	require.NoError(t, r.RunOnce(context.Background()))
	require.Equal(t, 1, backend.calls)

	cp, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, zrntcommon.Slot(1032), cp.Store.FinalizedHeader.Slot)
}

func TestRunOnceSubmitsSealedReceipt(t *testing.T) {
	fetcher := &fakeFetcher{finality: stagedUpdate(1032, 1036, 1037)}
	backend := &fakeBackend{seal: []byte{0x01, 0x02}}
	submitter := &fakeSubmitter{head: 900}
	r, store := newTestRelayer(t, fetcher, backend, submitter, "")
	require.NoError(t, store.Replace(testCheckpoint(1000)))

	require.NoError(t, r.RunOnce(context.Background()))
	require.Equal(t, 1, submitter.submitted)
}

func TestRunOnceSkipsSubmissionBehindHead(t *testing.T) {
	fetcher := &fakeFetcher{finality: stagedUpdate(1032, 1036, 1037)}
	backend := &fakeBackend{seal: []byte{0x01}}
	submitter := &fakeSubmitter{head: 5000}
	r, store := newTestRelayer(t, fetcher, backend, submitter, "")
	require.NoError(t, store.Replace(testCheckpoint(1000)))

	require.NoError(t, r.RunOnce(context.Background()))
	require.Equal(t, 0, submitter.submitted)

	// the local checkpoint still advances past what the contract knows
	cp, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, zrntcommon.Slot(1032), cp.Store.FinalizedHeader.Slot)
}

func TestRunOncePicksRotationUpdate(t *testing.T) {
	rotation := stagedUpdate(2000, 2004, 2005)
	var next zrntcommon.SyncCommittee
	next.Pubkeys = make([]zrntcommon.BLSPubkey, 512)
	next.Pubkeys[0][0] = 0x17
	rotation.Data.NextSyncCommittee = &next
	rotation.Data.NextSyncCommitteeBranch = []zrntcommon.Root{{0x51}, {0x52}, {0x53}, {0x54}, {0x55}}

	fetcher := &fakeFetcher{
		// the chain is already one period ahead of the store
		finality: stagedUpdate(8200, 8204, 8205),
		periodic: map[uint64]cfgtypes.LightClientUpdate{0: *rotation},
	}
	backend := &fakeBackend{}
	r, store := newTestRelayer(t, fetcher, backend, nil, "")
	require.NoError(t, store.Replace(testCheckpoint(1000)))

	require.NoError(t, r.RunOnce(context.Background()))
	require.Equal(t, []uint64{0}, fetcher.scCalls)

	cp, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, zrntcommon.Slot(2000), cp.Store.FinalizedHeader.Slot)
	require.True(t, cp.Store.HasNextCommittee())
	require.NotNil(t, cp.NextSyncCommittee)
	require.Equal(t, byte(0x17), cp.NextSyncCommittee.Pubkeys[0][0])
}

func TestRunOnceRotatesAcrossPeriod(t *testing.T) {
	var next zrntcommon.SyncCommittee
	next.Pubkeys = make([]zrntcommon.BLSPubkey, 512)
	next.Pubkeys[0][0] = 0x17
	nextRoot := next.HashTreeRoot(configs.Mainnet, tree.GetHashFn())

	var upcoming zrntcommon.SyncCommittee
	upcoming.Pubkeys = make([]zrntcommon.BLSPubkey, 512)
	upcoming.Pubkeys[0][0] = 0x29

	// period 1's update finalizes inside period 1 and carries period 2's
	// committee
	rotation := stagedUpdate(8300, 8304, 8305)
	rotation.Data.NextSyncCommittee = &upcoming
	rotation.Data.NextSyncCommitteeBranch = []zrntcommon.Root{{0x51}, {0x52}, {0x53}, {0x54}, {0x55}}

	fetcher := &fakeFetcher{
		finality: stagedUpdate(17000, 17004, 17005),
		periodic: map[uint64]cfgtypes.LightClientUpdate{1: *rotation},
	}
	backend := &fakeBackend{}
	r, store := newTestRelayer(t, fetcher, backend, nil, "")

	cp := testCheckpoint(2000)
	cp.Store.NextSyncCommitteeHash = nextRoot
	cp.NextSyncCommittee = &next
	require.NoError(t, store.Replace(cp))

	require.NoError(t, r.RunOnce(context.Background()))
	require.Equal(t, []uint64{1}, fetcher.scCalls)

	cp2, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, zrntcommon.Slot(8300), cp2.Store.FinalizedHeader.Slot)
	require.Equal(t, nextRoot, cp2.Store.CurrentSyncCommitteeHash)
	require.Equal(t, byte(0x17), cp2.CurrentSyncCommittee.Pubkeys[0][0])
	require.NotNil(t, cp2.NextSyncCommittee)
	require.Equal(t, byte(0x29), cp2.NextSyncCommittee.Pubkeys[0][0])
}

func TestRunOnceRejectsUnchainedJournal(t *testing.T) {
	journal := types.Journal{
		PrevFinalizedHeader: beaconHeader(777), // not the checkpoint's header
		NewFinalizedHeader:  beaconHeader(1032),
	}
	enc, err := types.EncodeJournal(&journal)
	require.NoError(t, err)

	fetcher := &fakeFetcher{finality: stagedUpdate(1032, 1036, 1037)}
	r, store := newTestRelayer(t, fetcher, &cannedBackend{receipt: &types.Receipt{Journal: enc}}, nil, "")
	require.NoError(t, store.Replace(testCheckpoint(1000)))

	require.Error(t, r.RunOnce(context.Background()))

	cp, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, zrntcommon.Slot(1000), cp.Store.FinalizedHeader.Slot)
}

func TestRunOnceBootstraps(t *testing.T) {
	var committee zrntcommon.SyncCommittee
	committee.Pubkeys = make([]zrntcommon.BLSPubkey, 512)
	committeeRoot := committee.HashTreeRoot(configs.Mainnet, tree.GetHashFn())

	branch := []zrntcommon.Root{{0x71}, {0x72}, {0x73}, {0x74}, {0x75}}
	bootstrap := &cfgtypes.LightClientBootstrap{Version: "electra"}
	bootstrap.Data.Header.Beacon = beaconHeader(9000)
	bootstrap.Data.Header.Beacon.StateRoot = primitives.ComputeRoot(committeeRoot, branch, consensus.CurrentSyncCommitteeGIndex)
	bootstrap.Data.CurrentSyncCommittee = committee
	bootstrap.Data.CurrentSyncCommitteeBranch = branch

	fetcher := &fakeFetcher{
		bootstrap: bootstrap,
		finality:  stagedUpdate(8900, 8904, 8905), // behind the bootstrap
	}
	backend := &fakeBackend{}
	r, store := newTestRelayer(t, fetcher, backend, nil, "0xtrusted")

	require.NoError(t, r.RunOnce(context.Background()))
	require.Equal(t, 0, backend.calls)

	cp, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, cp)
	require.Equal(t, zrntcommon.Slot(9000), cp.Store.FinalizedHeader.Slot)
	require.Equal(t, committeeRoot, cp.Store.CurrentSyncCommitteeHash)
}

func TestRunOnceBootstrapRejectsBadBranch(t *testing.T) {
	var committee zrntcommon.SyncCommittee
	committee.Pubkeys = make([]zrntcommon.BLSPubkey, 512)

	bootstrap := &cfgtypes.LightClientBootstrap{}
	bootstrap.Data.Header.Beacon = beaconHeader(9000)
	bootstrap.Data.CurrentSyncCommittee = committee
	bootstrap.Data.CurrentSyncCommitteeBranch = []zrntcommon.Root{{0x71}, {0x72}, {0x73}, {0x74}, {0x75}}

	fetcher := &fakeFetcher{bootstrap: bootstrap}
	r, store := newTestRelayer(t, fetcher, &fakeBackend{}, nil, "0xtrusted")

	require.Error(t, r.RunOnce(context.Background()))
	cp, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, cp)
}
