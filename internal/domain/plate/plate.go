package plate

import (
	"errors"
	"strings"
	"unicode"
)

// ErrNoCandidates is returned by Rank when no candidate survives the
// confidence filter.
var ErrNoCandidates = errors.New("no plate candidates")

// DefaultMinConfidence is the confidence below which OCR output is treated
// as noise.
const DefaultMinConfidence = 0.5

// Candidate is a single OCR detection. Confidence is in [0, 1].
type Candidate struct {
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

// BestMatch is the candidate Rank selected.
type BestMatch struct {
	RawText        string  `json:"raw_text"`
	NormalizedText string  `json:"normalized_text"`
	Confidence     float64 `json:"confidence"`
}

// Normalize canonicalizes raw OCR text for plate comparison: whitespace is
// stripped, letters are uppercased. Internal punctuation such as hyphens is
// kept. Idempotent, never fails.
func Normalize(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "\t", "")
	normalized = strings.ToUpper(normalized)
	return normalized
}

// Shaped reports whether a normalized string looks like a license plate:
// 5 to 10 characters with at least one digit and one letter. OCR tends to
// pick up short spurious tokens (bolts, stickers) that fail this test.
func Shaped(normalized string) bool {
	if len(normalized) < 5 || len(normalized) > 10 {
		return false
	}
	var hasDigit, hasLetter bool
	for _, r := range normalized {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	return hasDigit && hasLetter
}

// Rank selects the most plausible plate from a batch of OCR candidates.
// Candidates with empty text or confidence at or below minConfidence are
// discarded. Among the survivors, plate-shaped candidates win over higher
// confidence alone; when none is plate-shaped, the highest-confidence
// survivor is returned as a best effort. Ties keep the earliest candidate.
func Rank(candidates []Candidate, minConfidence float64) (BestMatch, error) {
	bestShaped := -1
	bestAny := -1
	normalized := make([]string, len(candidates))

	for i, c := range candidates {
		if c.RawText == "" || c.Confidence <= minConfidence {
			continue
		}
		normalized[i] = Normalize(c.RawText)
		if bestAny == -1 || c.Confidence > candidates[bestAny].Confidence {
			bestAny = i
		}
		if Shaped(normalized[i]) {
			if bestShaped == -1 || c.Confidence > candidates[bestShaped].Confidence {
				bestShaped = i
			}
		}
	}

	pick := bestShaped
	if pick == -1 {
		pick = bestAny
	}
	if pick == -1 {
		return BestMatch{}, ErrNoCandidates
	}

	return BestMatch{
		RawText:        candidates[pick].RawText,
		NormalizedText: normalized[pick],
		Confidence:     candidates[pick].Confidence,
	}, nil
}
