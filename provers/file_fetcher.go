package relayer

import (
	"encoding/json"
	"fmt"
	"os"

	cfgtypes "github.com/kysee/zk-helios/provers/types"
)

// FileFetcher implements Fetcher by replaying a single update from a local
// JSON file, for offline testing and replaying disputed updates.
type FileFetcher struct {
	FilePath string
}

// NewFileFetcher creates a new FileFetcher with the given file path.
func NewFileFetcher(filePath string) *FileFetcher {
	return &FileFetcher{FilePath: filePath}
}

func (f *FileFetcher) readUpdate() (*cfgtypes.LightClientUpdate, error) {
	data, err := os.ReadFile(f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", f.FilePath, err)
	}
	var update cfgtypes.LightClientUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &update, nil
}

// ScUpdates returns the file's update regardless of the requested period.
func (f *FileFetcher) ScUpdates(uint64, int) ([]cfgtypes.LightClientUpdate, error) {
	update, err := f.readUpdate()
	if err != nil {
		return nil, err
	}
	return []cfgtypes.LightClientUpdate{*update}, nil
}

// FinalityUpdate returns the file's update.
func (f *FileFetcher) FinalityUpdate() (*cfgtypes.LightClientUpdate, error) {
	return f.readUpdate()
}

// Bootstrap is not available from a single update file.
func (f *FileFetcher) Bootstrap(string) (*cfgtypes.LightClientBootstrap, error) {
	return nil, fmt.Errorf("bootstrap not supported by file fetcher")
}
