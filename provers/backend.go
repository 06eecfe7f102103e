package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/kysee/zk-helios/consensus"
	"github.com/kysee/zk-helios/types"
)

// Backend runs the guest program on one encoded input frame and returns the
// receipt. Proving is long-running; implementations must honor ctx.
type Backend interface {
	Prove(ctx context.Context, input []byte) (*types.Receipt, error)
}

// LocalBackend executes the verifier natively instead of inside the zkVM.
// The receipt carries the journal but an empty seal, so it can drive
// development and replay but never an on-chain submission.
type LocalBackend struct{}

func (LocalBackend) Prove(_ context.Context, input []byte) (*types.Receipt, error) {
	in, err := types.DecodeProofInput(input)
	if err != nil {
		return nil, &ProverExecutionError{Err: err}
	}
	_, journal, err := consensus.Verify(in)
	if err != nil {
		// Consensus rejections pass through typed; the caller must not
		// retry them.
		return nil, err
	}
	journalBytes, err := types.EncodeJournal(&journal)
	if err != nil {
		return nil, &ProverExecutionError{Err: err}
	}
	return &types.Receipt{Journal: journalBytes}, nil
}

// RemoteBackend proves through an HTTP proving service: upload the input,
// open a session, poll until it settles, download the receipt.
type RemoteBackend struct {
	BaseURL      string
	Client       *http.Client
	PollInterval time.Duration
	Log          zerolog.Logger
}

func NewRemoteBackend(baseURL string, log zerolog.Logger) *RemoteBackend {
	return &RemoteBackend{
		BaseURL:      baseURL,
		Client:       &http.Client{Timeout: 30 * time.Second},
		PollInterval: 5 * time.Second,
		Log:          log,
	}
}

type proveSessionRequest struct {
	Input types.HexBytes `json:"input"`
}

type proveSessionResponse struct {
	ID      string         `json:"id"`
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Seal    types.HexBytes `json:"seal,omitempty"`
	Journal types.HexBytes `json:"journal,omitempty"`
}

func (b *RemoteBackend) Prove(ctx context.Context, input []byte) (*types.Receipt, error) {
	session, err := b.createSession(ctx, input)
	if err != nil {
		return nil, &ProverExecutionError{Err: err}
	}
	b.Log.Info().Str("session", session.ID).Msg("proving session created")

	ticker := time.NewTicker(b.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := b.sessionStatus(ctx, session.ID)
		if err != nil {
			return nil, &ProverExecutionError{Err: err}
		}
		switch status.Status {
		case "running", "pending":
			b.Log.Debug().Str("session", session.ID).Str("status", status.Status).Msg("still proving")
		case "succeeded":
			return &types.Receipt{Seal: status.Seal, Journal: status.Journal}, nil
		default:
			return nil, &ProverExecutionError{
				Err: fmt.Errorf("session %s exited with status %q: %s", session.ID, status.Status, status.Error),
			}
		}
	}
}

func (b *RemoteBackend) createSession(ctx context.Context, input []byte) (*proveSessionResponse, error) {
	body, err := json.Marshal(&proveSessionRequest{Input: input})
	if err != nil {
		return nil, err
	}
	endpoint, err := url.JoinPath(b.BaseURL, "/v1/sessions")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.doSession(req)
}

func (b *RemoteBackend) sessionStatus(ctx context.Context, id string) (*proveSessionResponse, error) {
	endpoint, err := url.JoinPath(b.BaseURL, "/v1/sessions", id)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return b.doSession(req)
}

func (b *RemoteBackend) doSession(req *http.Request) (*proveSessionResponse, error) {
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prover API returned status %d: %s", resp.StatusCode, string(body))
	}
	var session proveSessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to parse prover response: %w", err)
	}
	return &session, nil
}
