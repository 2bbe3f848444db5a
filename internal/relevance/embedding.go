package relevance

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"grievance-intake/internal/common/metrics"
)

// Embedder produces fixed-dimension vectors in a shared vision-language
// space. Image and text embeddings are comparable by cosine similarity.
type Embedder interface {
	EmbedImage(ctx context.Context, image []byte) ([]float64, error)
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingClient talks to the embedding model service over HTTP with
// batch-of-one requests.
type EmbeddingClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewEmbeddingClient(baseURL, model string, timeout time.Duration) *EmbeddingClient {
	return &EmbeddingClient{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type embeddingRequest struct {
	Model    string `json:"model"`
	ImageB64 string `json:"image_b64,omitempty"`
	Text     string `json:"text,omitempty"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (c *EmbeddingClient) EmbedImage(ctx context.Context, image []byte) ([]float64, error) {
	return c.embed(ctx, "/v1/embeddings/image", embeddingRequest{
		Model:    c.model,
		ImageB64: base64.StdEncoding.EncodeToString(image),
	})
}

func (c *EmbeddingClient) EmbedText(ctx context.Context, text string) ([]float64, error) {
	return c.embed(ctx, "/v1/embeddings/text", embeddingRequest{
		Model: c.model,
		Text:  text,
	})
}

func (c *EmbeddingClient) embed(ctx context.Context, path string, reqBody embeddingRequest) ([]float64, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues("embedding").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var payload embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	if len(payload.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}

	return payload.Embedding, nil
}
