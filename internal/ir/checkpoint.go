package ir

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// CheckpointVersion is bumped on any incompatible change to the node schema.
const CheckpointVersion = 1

// checkpoint is the on-disk envelope around a Document.
type checkpoint struct {
	Version  int       `json:"version"`
	Document *Document `json:"document"`
}

// MarshalCheckpoint serializes the document as an indented, versioned JSON
// checkpoint. Every field of the tree round-trips exactly.
func MarshalCheckpoint(d *Document) ([]byte, error) {
	data, err := json.MarshalIndent(checkpoint{Version: CheckpointVersion, Document: d}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalCheckpoint parses and re-validates a checkpoint.
func UnmarshalCheckpoint(data []byte) (*Document, error) {
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	if cp.Version != CheckpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d (want %d)", cp.Version, CheckpointVersion)
	}
	if cp.Document == nil {
		return nil, fmt.Errorf("checkpoint has no document")
	}
	if err := cp.Document.Validate(); err != nil {
		return nil, err
	}
	return cp.Document, nil
}

// WriteCheckpoint writes a checkpoint to w.
func WriteCheckpoint(w io.Writer, d *Document) error {
	data, err := MarshalCheckpoint(d)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint file from disk.
func LoadCheckpoint(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return UnmarshalCheckpoint(data)
}
