package classify

import (
	"context"
	"math"
	"strings"

	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/departments"
)

// KeywordClassifier is a deterministic fallback for deployments without a
// language-model backend. Each department carries a bag of seed phrases; the
// complaint is scored against every bag with cosine similarity over token
// counts and the best match above the floor wins.
type KeywordClassifier struct {
	threshold float64
	profiles  map[string][]string
	logger    logger.Logger
}

const keywordMatchFloor = 0.12

func NewKeywordClassifier(log logger.Logger) *KeywordClassifier {
	return &KeywordClassifier{
		threshold: keywordMatchFloor,
		profiles:  departmentProfiles(),
		logger:    log.With(map[string]interface{}{"component": "keyword-classifier"}),
	}
}

func (c *KeywordClassifier) Classify(_ context.Context, complaint string) (Result, error) {
	complaintVec := vectorize(complaint)
	if len(complaintVec) == 0 {
		return Result{OutOfScope: true}, nil
	}

	best := ""
	bestScore := 0.0
	for dept, phrases := range c.profiles {
		profileVec := vectorize(strings.Join(phrases, " "))
		score := cosineSimilarity(complaintVec, profileVec)
		if score > bestScore {
			best = dept
			bestScore = score
		}
	}

	if bestScore < c.threshold {
		return Result{OutOfScope: true}, nil
	}

	c.logger.Debug("keyword match", map[string]interface{}{
		"department": best,
		"score":      bestScore,
	})
	return Result{Department: best}, nil
}

func vectorize(text string) map[string]int {
	vec := make(map[string]int)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if len(tok) < 3 {
			continue
		}
		vec[tok]++
	}
	return vec
}

func cosineSimilarity(a, b map[string]int) float64 {
	dot := 0.0
	for tok, av := range a {
		if bv, ok := b[tok]; ok {
			dot += float64(av) * float64(bv)
		}
	}
	if dot == 0 {
		return 0
	}

	magA := 0.0
	for _, v := range a {
		magA += float64(v) * float64(v)
	}
	magB := 0.0
	for _, v := range b {
		magB += float64(v) * float64(v)
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func departmentProfiles() map[string][]string {
	return map[string][]string{
		departments.Administration:   {"administration office permit license certificate registration document paperwork municipal"},
		departments.Civil:            {"civil construction building bridge drainage sewer encroachment illegal structure footpath pavement"},
		departments.Education:        {"education school teacher classroom college students books midday meal admission"},
		departments.Electrical:       {"electrical power streetlight street light transformer wire electricity outage voltage pole"},
		departments.Finance:          {"finance tax bill payment refund property tax fee invoice billing overcharge"},
		departments.HealthSanitation: {"health sanitation hospital clinic mosquito dengue disease hygiene toilet public health medicine"},
		departments.HR:               {"staff employee recruitment salary pension human resources worker misconduct attendance"},
		departments.IT:               {"website portal online application server login computer system digital service app"},
		departments.Maintenance:      {"maintenance repair broken park bench playground fence paint building upkeep"},
		departments.PublicSafety:     {"safety accident danger hazard fire emergency unsafe crowd stray dogs"},
		departments.RoadTransport:    {"road pothole traffic signal bus transport highway street asphalt vehicle parking"},
		departments.Security:         {"security theft guard cctv camera patrol trespass vandalism"},
		departments.WasteManagement:  {"waste garbage trash dump collection bin litter debris disposal dumpster"},
		departments.Water:            {"water supply pipeline leak tap drinking water tank borewell pipe burst contamination"},
	}
}
