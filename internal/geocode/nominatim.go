// Package geocode resolves GPS coordinates to human-readable addresses.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
	"grievance-intake/internal/common/metrics"
)

// Resolver turns a coordinate pair into an address string.
type Resolver interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimClient resolves coordinates against a Nominatim-compatible
// reverse-geocoding endpoint.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     logger.Logger
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration, log logger.Logger) *NominatimClient {
	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.With(map[string]interface{}{"component": "geocoder"}),
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse requests the single closest match for (lat, lon). Any miss,
// transport failure, or timeout is LOCATION_UNRESOLVABLE; the caller decides
// whether that is submission-fatal.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("addressdetails", "0")

	reqURL := c.baseURL + "/reverse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", stderrors.NewLocationUnresolvableError(err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues("geocoding").Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("reverse geocoding request failed", map[string]interface{}{
			"lat":   lat,
			"lon":   lon,
			"error": err.Error(),
		})
		return "", stderrors.NewLocationUnresolvableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", stderrors.NewLocationUnresolvableError(fmt.Errorf("geocoder returned status %d", resp.StatusCode))
	}

	var payload nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", stderrors.NewLocationUnresolvableError(fmt.Errorf("decoding response: %w", err))
	}

	if payload.Error != "" {
		return "", stderrors.NewLocationUnresolvableError(fmt.Errorf("geocoder: %s", payload.Error))
	}

	if payload.DisplayName == "" {
		return "", stderrors.NewLocationUnresolvableError(fmt.Errorf("no result for %f, %f", lat, lon))
	}

	return payload.DisplayName, nil
}
