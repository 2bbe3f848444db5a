// Package relevance scores how well a submitted photo matches the complaint
// text, using a shared vision-language embedding space.
package relevance

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	// Decoders for the image formats citizens actually upload.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/common/metrics"
)

// DefaultThreshold is the fixed pass/fail boundary on the 0-100 score scale.
const DefaultThreshold = 25.0

// processingErrorMessage is the uniform message for any internal scoring
// fault; the scorer degrades to rejection rather than propagating the cause.
const processingErrorMessage = "Error processing image relevance"

// Result is the outcome of one image-text comparison.
type Result struct {
	Score   float64 `json:"score"`
	Passed  bool    `json:"passed"`
	Message string  `json:"message,omitempty"`
}

// Scorer computes a normalized match confidence between an image and a
// candidate description.
type Scorer struct {
	embedder  Embedder
	threshold float64
	logger    logger.Logger
}

func NewScorer(embedder Embedder, threshold float64, log logger.Logger) *Scorer {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{
		embedder:  embedder,
		threshold: threshold,
		logger:    log.With(map[string]interface{}{"component": "relevance-scorer"}),
	}
}

// Score embeds the image and the description, normalizes both vectors, and
// scales their cosine similarity to 0-100. Any processing fault fails closed
// with a generic message so the orchestrator sees a uniform failure surface.
func (s *Scorer) Score(ctx context.Context, img []byte, description string) Result {
	if _, _, err := image.Decode(bytes.NewReader(img)); err != nil {
		s.logger.Warn("image does not decode", map[string]interface{}{"error": err.Error()})
		return Result{Passed: false, Message: processingErrorMessage}
	}

	imageVec, err := s.embedder.EmbedImage(ctx, img)
	if err != nil {
		s.logger.Warn("image embedding failed", map[string]interface{}{"error": err.Error()})
		return Result{Passed: false, Message: processingErrorMessage}
	}

	textVec, err := s.embedder.EmbedText(ctx, description)
	if err != nil {
		s.logger.Warn("text embedding failed", map[string]interface{}{"error": err.Error()})
		return Result{Passed: false, Message: processingErrorMessage}
	}

	similarity, err := cosineSimilarity(imageVec, textVec)
	if err != nil {
		s.logger.Warn("similarity computation failed", map[string]interface{}{"error": err.Error()})
		return Result{Passed: false, Message: processingErrorMessage}
	}

	score := similarity * 100.0
	metrics.RelevanceScores.Observe(score)

	return s.decide(score)
}

// Bypassed returns the result used when no image was supplied. The score is
// not a measurement; the gate simply does not apply.
func Bypassed() Result {
	return Result{Score: 100.0, Passed: true}
}

// decide applies the strict-greater-than threshold rule. A score exactly at
// the threshold fails.
func (s *Scorer) decide(score float64) Result {
	if score > s.threshold {
		return Result{Score: score, Passed: true}
	}
	return Result{
		Score:   score,
		Passed:  false,
		Message: fmt.Sprintf("Irrelevant image attached. Similarity score: %.2f%%. Please upload a relevant image.", score),
	}
}

// cosineSimilarity normalizes both vectors to unit length and returns their
// dot product.
func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude embedding")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
