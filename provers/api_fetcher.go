package relayer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	cfgtypes "github.com/kysee/zk-helios/provers/types"
)

// APIFetcher implements Fetcher by calling a Beacon API REST endpoint.
type APIFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewAPIFetcher creates a new APIFetcher with the given base URL.
func NewAPIFetcher(baseURL string) *APIFetcher {
	return &APIFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ScUpdates retrieves sync-committee period updates.
// GET /eth/v1/beacon/light_client/updates?start_period=&count=
func (a *APIFetcher) ScUpdates(startPeriod uint64, count int) ([]cfgtypes.LightClientUpdate, error) {
	endpoint, err := url.Parse(a.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	endpoint.Path = "/eth/v1/beacon/light_client/updates"
	query := endpoint.Query()
	query.Set("start_period", strconv.FormatUint(startPeriod, 10))
	query.Set("count", strconv.Itoa(count))
	endpoint.RawQuery = query.Encode()

	body, err := a.get(endpoint.String())
	if err != nil {
		return nil, err
	}

	var updates []cfgtypes.LightClientUpdate
	if err := json.Unmarshal(body, &updates); err != nil {
		return nil, fmt.Errorf("failed to parse updates response: %w", err)
	}
	return updates, nil
}

// FinalityUpdate retrieves the latest finality update.
// GET /eth/v1/beacon/light_client/finality_update
func (a *APIFetcher) FinalityUpdate() (*cfgtypes.LightClientUpdate, error) {
	endpoint, err := url.Parse(a.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	endpoint.Path = "/eth/v1/beacon/light_client/finality_update"

	body, err := a.get(endpoint.String())
	if err != nil {
		return nil, err
	}

	var update cfgtypes.LightClientUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("failed to parse finality update: %w", err)
	}
	return &update, nil
}

// Bootstrap retrieves the light client bootstrap for a trusted block root.
// GET /eth/v1/beacon/light_client/bootstrap/{block_root}
func (a *APIFetcher) Bootstrap(blockRoot string) (*cfgtypes.LightClientBootstrap, error) {
	endpoint, err := url.Parse(a.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	endpoint.Path = "/eth/v1/beacon/light_client/bootstrap/" + blockRoot

	body, err := a.get(endpoint.String())
	if err != nil {
		return nil, err
	}

	var bootstrap cfgtypes.LightClientBootstrap
	if err := json.Unmarshal(body, &bootstrap); err != nil {
		return nil, fmt.Errorf("failed to parse bootstrap: %w", err)
	}
	return &bootstrap, nil
}

func (a *APIFetcher) get(endpoint string) ([]byte, error) {
	resp, err := a.Client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
