package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"plate-registry/internal/domain/plate"
	"plate-registry/internal/ocr"
	"plate-registry/internal/repository"
)

// plateResolver is the directory lookup the recognition flow resolves
// against. *repository.VehicleRepository satisfies it.
type plateResolver interface {
	FindByPlate(ctx context.Context, normalized string) (*repository.VehicleWithOwner, error)
}

// RecognitionService turns an uploaded photograph into a registration
// lookup: OCR candidates in, ranked best plate out, resolved against the
// vehicle directory.
type RecognitionService struct {
	engine        ocr.Engine
	resolver      plateResolver
	minConfidence float64
	ocrTimeout    time.Duration
	log           zerolog.Logger
}

func NewRecognitionService(
	engine ocr.Engine,
	resolver plateResolver,
	minConfidence float64,
	ocrTimeout time.Duration,
	log zerolog.Logger,
) *RecognitionService {
	if minConfidence <= 0 {
		minConfidence = plate.DefaultMinConfidence
	}
	return &RecognitionService{
		engine:        engine,
		resolver:      resolver,
		minConfidence: minConfidence,
		ocrTimeout:    ocrTimeout,
		log:           log,
	}
}

// RecognitionResult reports the ranked plate and, when the plate is
// registered, the matching vehicle and owner. Registered false means the
// plate text resolved but no registration matched it.
type RecognitionResult struct {
	Plate      plate.BestMatch     `json:"plate"`
	Registered bool                `json:"registered"`
	Vehicle    *repository.Vehicle `json:"vehicle,omitempty"`
	Owner      *repository.Person  `json:"owner,omitempty"`
}

// ResolveImage runs the full recognition flow. OCR failures surface as
// ocr.ErrImageDecode / ocr.ErrNoTextDetected; an all-filtered candidate
// batch surfaces as plate.ErrNoCandidates.
func (s *RecognitionService) ResolveImage(ctx context.Context, imageBytes []byte) (*RecognitionResult, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}

	ocrCtx := ctx
	if s.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ocrCtx, cancel = context.WithTimeout(ctx, s.ocrTimeout)
		defer cancel()
	}

	candidates, err := s.engine.Recognize(ocrCtx, imageBytes)
	if err != nil {
		return nil, err
	}

	best, err := plate.Rank(candidates, s.minConfidence)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("plate", best.NormalizedText).
		Str("raw_text", best.RawText).
		Float64("confidence", best.Confidence).
		Int("candidates", len(candidates)).
		Msg("ranked plate candidates")

	return s.resolve(ctx, best)
}

// ResolvePlate looks up a literal plate string, bypassing OCR.
func (s *RecognitionService) ResolvePlate(ctx context.Context, literal string) (*RecognitionResult, error) {
	normalized := plate.Normalize(literal)
	if normalized == "" {
		return nil, fmt.Errorf("%w: plate cannot be empty", ErrInvalidInput)
	}
	return s.resolve(ctx, plate.BestMatch{
		RawText:        literal,
		NormalizedText: normalized,
		Confidence:     1,
	})
}

func (s *RecognitionService) resolve(ctx context.Context, best plate.BestMatch) (*RecognitionResult, error) {
	result := &RecognitionResult{Plate: best}

	match, err := s.resolver.FindByPlate(ctx, best.NormalizedText)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.log.Info().
				Str("plate", best.NormalizedText).
				Msg("plate resolved but not registered")
			return result, nil
		}
		return nil, fmt.Errorf("failed to resolve plate: %w", err)
	}

	result.Registered = true
	result.Vehicle = &match.Vehicle
	result.Owner = &match.Owner
	return result, nil
}
