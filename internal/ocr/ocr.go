package ocr

import (
	"context"
	"errors"

	"plate-registry/internal/domain/plate"
)

var (
	// ErrImageDecode means the uploaded bytes are not a decodable image.
	ErrImageDecode = errors.New("image could not be decoded")
	// ErrNoTextDetected means the engine ran but found no text at all.
	ErrNoTextDetected = errors.New("no text detected in image")
)

// Engine extracts text candidates from a photograph. Implementations call
// out to an external recognition service; callers bound the call with the
// context deadline.
type Engine interface {
	Recognize(ctx context.Context, imageBytes []byte) ([]plate.Candidate, error)
}
