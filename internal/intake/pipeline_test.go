package intake

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance-intake/internal/classify"
	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/exifgps"
	"grievance-intake/internal/relevance"
)

type stubClassifier struct {
	result classify.Result
	err    error
}

func (s *stubClassifier) Classify(context.Context, string) (classify.Result, error) {
	return s.result, s.err
}

type stubExtractor struct {
	coord exifgps.Coordinate
	err   error
}

func (s *stubExtractor) Extract([]byte) (exifgps.Coordinate, error) {
	return s.coord, s.err
}

type stubResolver struct {
	address string
	err     error
}

func (s *stubResolver) Reverse(context.Context, float64, float64) (string, error) {
	return s.address, s.err
}

type stubScorer struct {
	result relevance.Result
}

func (s *stubScorer) Score(context.Context, []byte, string) relevance.Result {
	return s.result
}

type stubStore struct {
	path  string
	err   error
	saved [][]byte
}

func (s *stubStore) Save(_ context.Context, _ string, image []byte) (string, error) {
	s.saved = append(s.saved, image)
	return s.path, s.err
}

func validImage() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE1})
}

func passingPipeline(t *testing.T) (*Pipeline, *stubStore) {
	t.Helper()
	store := &stubStore{path: "uploads/TKT-TEST.jpg"}
	p := NewPipeline(
		&stubClassifier{result: classify.Result{Department: "Water"}},
		&stubExtractor{coord: exifgps.Coordinate{Latitude: 19.0760, Longitude: 72.8777}},
		&stubResolver{address: "Mumbai, Maharashtra, India"},
		&stubScorer{result: relevance.Result{Score: 61.5, Passed: true}},
		store,
		logger.NewTestLogger(t),
	)
	return p, store
}

func TestPipeline_AcceptsWithImage(t *testing.T) {
	p, store := passingPipeline(t)

	out, err := p.Process(context.Background(), Submission{
		Name:        "Asha Rao",
		Email:       "asha@example.com",
		Description: "Water pipeline burst near the market",
		Address:     "typed address ignored when image has GPS",
		Image:       validImage(),
	})
	require.NoError(t, err)

	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, out.TicketNumber)
	assert.Equal(t, "Water", out.DepartmentName)
	assert.Equal(t, "Mumbai, Maharashtra, India", out.FinalAddress)
	assert.Equal(t, "uploads/TKT-TEST.jpg", out.ImageStoredPath)
	assert.InDelta(t, 61.5, out.RelevanceScore, 1e-9)
	require.Len(t, store.saved, 1)
}

func TestPipeline_AcceptsWithoutImage(t *testing.T) {
	p, store := passingPipeline(t)

	out, err := p.Process(context.Background(), Submission{
		Description: "Streetlight out on MG Road",
		Address:     "12 MG Road",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, out.TicketNumber)
	assert.Equal(t, "12 MG Road", out.FinalAddress)
	assert.Empty(t, out.ImageStoredPath)
	assert.Empty(t, store.saved, "no image should be stored")
}

func TestPipeline_RejectsOutOfScope(t *testing.T) {
	p := NewPipeline(
		&stubClassifier{result: classify.Result{OutOfScope: true}},
		&stubExtractor{},
		&stubResolver{},
		&stubScorer{},
		&stubStore{},
		logger.NewTestLogger(t),
	)

	_, err := p.Process(context.Background(), Submission{Description: "what movie should I watch"})
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeOutOfScope, stderrors.CodeOf(err))
	assert.Contains(t, stderrors.MessageOf(err), "outside our scope")
}

func TestPipeline_ClassifierFailurePropagates(t *testing.T) {
	upstream := stderrors.NewUpstreamServiceError("language model", errors.New("timeout"))
	p := NewPipeline(
		&stubClassifier{err: upstream},
		&stubExtractor{},
		&stubResolver{},
		&stubScorer{},
		&stubStore{},
		logger.NewTestLogger(t),
	)

	_, err := p.Process(context.Background(), Submission{Description: "pothole on highway"})
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeUpstreamService, stderrors.CodeOf(err))
}

func TestPipeline_RejectsImageWithoutGPS(t *testing.T) {
	p := NewPipeline(
		&stubClassifier{result: classify.Result{Department: "Civil"}},
		&stubExtractor{err: stderrors.NewNoGpsDataError()},
		&stubResolver{},
		&stubScorer{},
		&stubStore{},
		logger.NewTestLogger(t),
	)

	_, err := p.Process(context.Background(), Submission{
		Description: "Broken drainage cover",
		Image:       validImage(),
	})
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeLocationRequired, stderrors.CodeOf(err))
	assert.Contains(t, stderrors.MessageOf(err), "GPS location data")
}

func TestPipeline_RejectsWhenGeocodingFails(t *testing.T) {
	p := NewPipeline(
		&stubClassifier{result: classify.Result{Department: "Civil"}},
		&stubExtractor{coord: exifgps.Coordinate{Latitude: 1, Longitude: 2}},
		&stubResolver{err: stderrors.NewLocationUnresolvableError(errors.New("503"))},
		&stubScorer{},
		&stubStore{},
		logger.NewTestLogger(t),
	)

	_, err := p.Process(context.Background(), Submission{
		Description: "Collapsed footpath",
		Image:       validImage(),
	})
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeLocationRequired, stderrors.CodeOf(err))
}

func TestPipeline_RejectsIrrelevantImage(t *testing.T) {
	msg := fmt.Sprintf("Irrelevant image attached. Similarity score: %.2f%%. Please upload a relevant image.", 10.0)
	p := NewPipeline(
		&stubClassifier{result: classify.Result{Department: "Water"}},
		&stubExtractor{coord: exifgps.Coordinate{Latitude: 1, Longitude: 2}},
		&stubResolver{address: "somewhere"},
		&stubScorer{result: relevance.Result{Score: 10.0, Passed: false, Message: msg}},
		&stubStore{},
		logger.NewTestLogger(t),
	)

	_, err := p.Process(context.Background(), Submission{
		Description: "Water leak",
		Image:       validImage(),
	})
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeImageIrrelevant, stderrors.CodeOf(err))
	assert.Contains(t, stderrors.MessageOf(err), "10.00")
}

func TestPipeline_RejectsMalformedImagePayload(t *testing.T) {
	p, _ := passingPipeline(t)

	for _, payload := range []string{"!!!not-base64!!!", "data:image/jpeg;base64,@@@@"} {
		_, err := p.Process(context.Background(), Submission{
			Description: "Water leak",
			Image:       payload,
		})
		require.Error(t, err, "payload %q", payload)
		assert.Equal(t, stderrors.ErrCodeInvalidImageFormat, stderrors.CodeOf(err))
	}
}

func TestPipeline_StorageFailureDoesNotReject(t *testing.T) {
	store := &stubStore{err: stderrors.NewStorageFailureError(errors.New("disk full"))}
	p := NewPipeline(
		&stubClassifier{result: classify.Result{Department: "Water"}},
		&stubExtractor{coord: exifgps.Coordinate{Latitude: 1, Longitude: 2}},
		&stubResolver{address: "somewhere"},
		&stubScorer{result: relevance.Result{Score: 80, Passed: true}},
		store,
		logger.NewTestLogger(t),
	)

	out, err := p.Process(context.Background(), Submission{
		Description: "Water leak",
		Image:       validImage(),
	})
	require.NoError(t, err)
	assert.Empty(t, out.ImageStoredPath)
	assert.Equal(t, "somewhere", out.FinalAddress)
}

func TestDecodeImagePayload(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF}
	encoded := base64.StdEncoding.EncodeToString(raw)

	t.Run("bare base64", func(t *testing.T) {
		got, err := DecodeImagePayload(encoded)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("data URI", func(t *testing.T) {
		got, err := DecodeImagePayload("data:image/jpeg;base64," + encoded)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := DecodeImagePayload("%%%")
		require.Error(t, err)
		assert.Equal(t, stderrors.ErrCodeInvalidImageFormat, stderrors.CodeOf(err))
	})

	t.Run("empty payload after prefix", func(t *testing.T) {
		_, err := DecodeImagePayload("data:image/jpeg;base64,")
		require.Error(t, err)
		assert.Equal(t, stderrors.ErrCodeInvalidImageFormat, stderrors.CodeOf(err))
	})
}

func TestNewTicketNumber_Format(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ticket := newTicketNumber()
		assert.True(t, strings.HasPrefix(ticket, "TKT-"))
		assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, ticket)
		seen[ticket] = struct{}{}
	}
	assert.Greater(t, len(seen), 95, "tickets should be effectively unique")
}
