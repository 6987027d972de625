package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for malformed caller input (bad audio,
	// empty transcript, out-of-range parameters). Not retryable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrResourceExhausted is returned when a model cannot be loaded into
	// accelerator memory (missing weights, out of memory).
	ErrResourceExhausted = errors.New("model resources exhausted")
	// ErrSlotBusy is returned when a clear is attempted on a model slot that
	// is mid-inference. Callers must wait for the request to finish.
	ErrSlotBusy = errors.New("model slot busy")
	// ErrTranscription is returned when speech-model inference fails.
	ErrTranscription = errors.New("transcription failed")
	// ErrGeneration is returned when generation-model inference fails.
	ErrGeneration = errors.New("generation failed")
	// ErrEmbedding is returned when embedding-model inference fails.
	ErrEmbedding = errors.New("embedding failed")
	// ErrRetrieval is returned when the vector index is unavailable or
	// corrupt. An empty index is not a retrieval error.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrModelMismatch is returned when the configured embedding model does
	// not match the model the vector index was built with.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// StageError tags an error with the pipeline stage that produced it, so
// callers can tell a transcription failure from a summarization failure.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err with a stage tag. Returns nil if err is nil.
func AtStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// Stage returns the stage tag of err, or "" if err carries none.
func Stage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
