package types

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion tags the guest input/output encoding. The encoding is part of
// the proving contract: identical logical values must serialize to identical
// bytes, so the encoder runs in CBOR core deterministic mode and every frame
// carries an explicit version.
const WireVersion = 1

// ErrWireVersion is returned when a frame was produced by an incompatible
// encoder version.
var ErrWireVersion = errors.New("unsupported wire version")

var encMode cbor.EncMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

type inputFrame struct {
	Version uint8      `cbor:"v"`
	Input   ProofInput `cbor:"input"`
}

type journalFrame struct {
	Version uint8   `cbor:"v"`
	Journal Journal `cbor:"journal"`
}

// EncodeProofInput serializes the guest input frame.
func EncodeProofInput(in *ProofInput) ([]byte, error) {
	return encMode.Marshal(&inputFrame{Version: WireVersion, Input: *in})
}

// DecodeProofInput deserializes a guest input frame, rejecting frames from a
// different wire version.
func DecodeProofInput(data []byte) (*ProofInput, error) {
	var frame inputFrame
	if err := cbor.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode proof input: %w", err)
	}
	if frame.Version != WireVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWireVersion, frame.Version, WireVersion)
	}
	return &frame.Input, nil
}

// EncodeJournal serializes the committed journal frame.
func EncodeJournal(j *Journal) ([]byte, error) {
	return encMode.Marshal(&journalFrame{Version: WireVersion, Journal: *j})
}

// DecodeJournal deserializes a committed journal frame.
func DecodeJournal(data []byte) (*Journal, error) {
	var frame journalFrame
	if err := cbor.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode journal: %w", err)
	}
	if frame.Version != WireVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWireVersion, frame.Version, WireVersion)
	}
	return &frame.Journal, nil
}
