package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/common/metrics"
	"grievance-intake/internal/departments"
)

// GeminiClassifier classifies complaints with a single generative
// language-model call per submission. No retries are attempted; transport
// failures surface as upstream errors for the caller to fail closed on.
type GeminiClassifier struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
}

func NewGeminiClassifier(baseURL, model, apiKey string, timeout time.Duration, log logger.Logger) *GeminiClassifier {
	return &GeminiClassifier{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.With(map[string]interface{}{"component": "gemini-classifier"}),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClassifier) Classify(ctx context.Context, complaint string) (Result, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(complaint)}}}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, stderrors.NewUpstreamServiceError("language model", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, stderrors.NewUpstreamServiceError("language model", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues("genai").Observe(time.Since(start).Seconds())
	if err != nil {
		return Result{}, stderrors.NewUpstreamServiceError("language model", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, stderrors.NewUpstreamServiceError("language model", fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, stderrors.NewUpstreamServiceError("language model", fmt.Errorf("decode response: %w", err))
	}

	label := ""
	if len(payload.Candidates) > 0 && len(payload.Candidates[0].Content.Parts) > 0 {
		label = payload.Candidates[0].Content.Parts[0].Text
	}

	result := PostProcess(label)
	c.logger.Info("complaint classified", map[string]interface{}{
		"department": result.Department,
		"outOfScope": result.OutOfScope,
	})
	return result, nil
}

// buildPrompt fixes the closed label set for the model. The department list
// is injected from the registry so prompt and validation share one source.
func buildPrompt(complaint string) string {
	var b strings.Builder

	b.WriteString("As an AI complaint classifier, analyze this message and determine if it's a valid government service complaint:\n\n")
	b.WriteString(fmt.Sprintf("Message: %s\n\n", complaint))
	b.WriteString("First determine if this is a valid complaint about government services/infrastructure with a confidence threshold of 0.7.\n")
	b.WriteString("If not confident or not a clear government service complaint, respond with \"out_of_scope\".\n\n")
	b.WriteString("If it is a valid complaint, which are related to one of these departments below, classify it into one of the following departments:\n")
	b.WriteString(departments.PromptList())
	b.WriteString("\n\nConsider:\n")
	b.WriteString("1. Is this specifically about government/public services?\n")
	b.WriteString("2. Does it mention concrete infrastructure/service problems?\n")
	b.WriteString("3. Is there enough context to confidently classify it?\n")
	b.WriteString("4. Which department would be most appropriate to handle this issue?\n\n")
	b.WriteString("Respond with ONLY ONE WORD: either \"out_of_scope\" or the department name.")

	return b.String()
}

// PostProcess normalizes free-text model output into a Result. Whitespace
// and code fences are stripped; the sentinel matches case-insensitively;
// anything that is not a known department downgrades to out-of-scope rather
// than trusting an unrecognized label.
func PostProcess(label string) Result {
	label = strings.TrimSpace(label)
	label = strings.TrimPrefix(label, "```")
	label = strings.TrimSuffix(label, "```")
	label = strings.TrimSpace(label)

	if label == "" || departments.IsOutOfScope(label) {
		return Result{OutOfScope: true}
	}

	if !departments.IsValid(label) {
		return Result{OutOfScope: true}
	}

	return Result{Department: label}
}
