package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog"

	"plate-registry/internal/domain/plate"
)

// RekognitionEngine recognizes plate text with AWS Rekognition DetectText.
type RekognitionEngine struct {
	client *rekognition.Client
	log    zerolog.Logger
}

func NewRekognitionEngine(client *rekognition.Client, log zerolog.Logger) *RekognitionEngine {
	return &RekognitionEngine{client: client, log: log}
}

func (e *RekognitionEngine) Recognize(ctx context.Context, imageBytes []byte) ([]plate.Candidate, error) {
	input := &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	}

	result, err := e.client.DetectText(ctx, input)
	if err != nil {
		var badImage *types.InvalidImageFormatException
		var badParam *types.InvalidParameterException
		if errors.As(err, &badImage) || errors.As(err, &badParam) {
			return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
		}
		return nil, fmt.Errorf("rekognition detect text: %w", err)
	}

	// LINE detections only; Rekognition repeats every line as its
	// constituent WORD detections.
	candidates := make([]plate.Candidate, 0, len(result.TextDetections))
	for _, detection := range result.TextDetections {
		if detection.Type != types.TextTypesLine {
			continue
		}
		if detection.DetectedText == nil || detection.Confidence == nil {
			continue
		}
		candidates = append(candidates, plate.Candidate{
			RawText:    *detection.DetectedText,
			Confidence: float64(*detection.Confidence) / 100,
		})
	}

	e.log.Debug().
		Int("detections", len(result.TextDetections)).
		Int("candidates", len(candidates)).
		Msg("rekognition detect text completed")

	if len(candidates) == 0 {
		return nil, ErrNoTextDetected
	}
	return candidates, nil
}
