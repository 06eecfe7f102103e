package relayer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"

	"github.com/kysee/zk-helios/types"
)

// Checkpoint is the host-side state around the trusted store: the store
// itself plus the committee preimages the next proof input needs.
type Checkpoint struct {
	Store                types.TrustedStore        `json:"store"`
	CurrentSyncCommittee zrntcommon.SyncCommittee  `json:"current_sync_committee"`
	NextSyncCommittee    *zrntcommon.SyncCommittee `json:"next_sync_committee,omitempty"`
}

// CheckpointStore persists the checkpoint to a file. A single mutex enforces
// the single-writer discipline: the checkpoint only ever advances after a
// journal was obtained and chained, never speculatively.
type CheckpointStore struct {
	mu   sync.Mutex
	path string
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Load reads the persisted checkpoint. A missing file returns (nil, nil);
// the caller bootstraps from a trusted root in that case.
func (c *CheckpointStore) Load() (*Checkpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", c.path, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint %s: %w", c.path, err)
	}
	return &cp, nil
}

// Replace atomically swaps the persisted checkpoint via write-and-rename.
func (c *CheckpointStore) Replace(cp *Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}
