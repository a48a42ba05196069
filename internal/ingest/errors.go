package ingest

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion taxonomy. Parsers and the dedup
// policy wrap these with context; callers branch with errors.Is.
var (
	// ErrMalformedInput marks an unparseable source: bad filename shape,
	// unexpected header, undecodable payload.
	ErrMalformedInput = errors.New("malformed input")

	// ErrEmptyResult marks a well-formed source with nothing to ingest.
	ErrEmptyResult = errors.New("empty result")

	// ErrDuplicateSnapshot marks a snapshot key the dedup policy declined
	// to reprocess. Under the skip action this is a non-error short-circuit.
	ErrDuplicateSnapshot = errors.New("duplicate snapshot")

	// ErrRemoteFetch marks an unreachable source or non-success status.
	ErrRemoteFetch = errors.New("remote fetch failed")
)

// ResolutionError is a row-local failure: the row's artist or track could
// not be matched or created. Collected per row, never aborts the batch.
type ResolutionError struct {
	Position  int
	TrackName string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Position, e.TrackName, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
