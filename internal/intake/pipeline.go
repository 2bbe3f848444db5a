package intake

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"grievance-intake/internal/classify"
	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/common/metrics"
	"grievance-intake/internal/exifgps"
	"grievance-intake/internal/geocode"
	"grievance-intake/internal/relevance"
	"grievance-intake/internal/storage"
)

// GPSExtractor pulls a decimal coordinate out of raw image bytes.
type GPSExtractor interface {
	Extract(image []byte) (exifgps.Coordinate, error)
}

// RelevanceScorer judges whether an image matches the complaint text.
type RelevanceScorer interface {
	Score(ctx context.Context, image []byte, description string) relevance.Result
}

// Pipeline runs a submission through the full gate sequence: scope
// classification, then for image-bearing submissions GPS extraction, reverse
// geocoding, relevance scoring and best-effort image storage. Gates run in
// that order and the first rejection wins.
type Pipeline struct {
	classifier classify.TextClassifier
	extractor  GPSExtractor
	resolver   geocode.Resolver
	scorer     RelevanceScorer
	store      storage.Store
	logger     logger.Logger
}

func NewPipeline(
	classifier classify.TextClassifier,
	extractor GPSExtractor,
	resolver geocode.Resolver,
	scorer RelevanceScorer,
	store storage.Store,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		extractor:  extractor,
		resolver:   resolver,
		scorer:     scorer,
		store:      store,
		logger:     log.With(map[string]interface{}{"component": "intake-pipeline"}),
	}
}

// Process validates a submission end to end. On success it returns a
// ValidatedIntake carrying the assigned ticket number; on rejection it
// returns a StandardError whose code identifies the failed gate.
func (p *Pipeline) Process(ctx context.Context, sub Submission) (ValidatedIntake, error) {
	cls, err := p.classifier.Classify(ctx, sub.Description)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		p.logger.WithError(err).Error("classification backend unavailable", nil)
		return ValidatedIntake{}, err
	}
	if cls.OutOfScope {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		metrics.GateRejections.WithLabelValues("scope").Inc()
		return ValidatedIntake{}, stderrors.NewOutOfScopeError()
	}

	ticket := newTicketNumber()
	log := p.logger.With(map[string]interface{}{"ticket": ticket})

	if sub.Image == "" {
		metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
		log.Info("submission accepted without image", map[string]interface{}{
			"department": cls.Department,
		})
		return ValidatedIntake{
			TicketNumber:   ticket,
			Description:    sub.Description,
			FinalAddress:   sub.Address,
			DepartmentName: cls.Department,
			RelevanceScore: relevance.Bypassed().Score,
		}, nil
	}

	raw, err := DecodeImagePayload(sub.Image)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		metrics.GateRejections.WithLabelValues("image_format").Inc()
		return ValidatedIntake{}, err
	}

	coord, err := p.extractor.Extract(raw)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		metrics.GateRejections.WithLabelValues("gps").Inc()
		log.WithError(err).Warn("no usable GPS data in image", nil)
		return ValidatedIntake{}, stderrors.NewLocationRequiredError(stderrors.MessageOf(err))
	}

	address, err := p.resolver.Reverse(ctx, coord.Latitude, coord.Longitude)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		metrics.GateRejections.WithLabelValues("geocode").Inc()
		log.WithError(err).Warn("reverse geocoding failed", map[string]interface{}{
			"latitude":  coord.Latitude,
			"longitude": coord.Longitude,
		})
		return ValidatedIntake{}, stderrors.NewLocationRequiredError(stderrors.MessageOf(err))
	}

	res := p.scorer.Score(ctx, raw, sub.Description)
	metrics.RelevanceScores.Observe(res.Score)
	if !res.Passed {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		metrics.GateRejections.WithLabelValues("relevance").Inc()
		return ValidatedIntake{}, stderrors.NewImageIrrelevantError(res.Message)
	}

	// Image persistence is best effort: a full disk must not lose an
	// otherwise valid complaint.
	storedPath := ""
	if path, err := p.store.Save(ctx, ticket, raw); err != nil {
		metrics.StorageFailures.Inc()
		log.WithError(err).Warn("image storage failed, continuing without stored path", nil)
	} else {
		storedPath = path
	}

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	log.Info("submission accepted", map[string]interface{}{
		"department": cls.Department,
		"address":    address,
		"score":      res.Score,
	})

	return ValidatedIntake{
		TicketNumber:    ticket,
		Description:     sub.Description,
		FinalAddress:    address,
		DepartmentName:  cls.Department,
		ImageStoredPath: storedPath,
		RelevanceScore:  res.Score,
	}, nil
}

// newTicketNumber produces a short citizen-facing identifier, "TKT-" plus
// eight uppercase hex characters.
func newTicketNumber() string {
	id := uuid.New()
	return fmt.Sprintf("TKT-%X", id[0:4])
}
