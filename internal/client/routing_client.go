package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/config"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/geo"
)

type RouteLeg struct {
	DistanceMeters  float64
	DurationSeconds float64
}

type RouteResult struct {
	DistanceMeters  float64
	DurationSeconds float64
	Legs            []RouteLeg
}

// RoutingClient talks to an OSRM-compatible routing provider. The HTTP
// client carries a bounded timeout so a slow provider can never stall the
// caller; the route estimator falls back to straight-line segments on any
// error.
type RoutingClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRoutingClient(cfg *config.Config) *RoutingClient {
	timeout := cfg.ExternalServices.RoutingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RoutingClient{
		baseURL: cfg.ExternalServices.RoutingServiceURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Legs     []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"legs"`
}

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

func (c *RoutingClient) Route(ctx context.Context, waypoints []geo.Point) (*RouteResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("routing provider is not configured")
	}
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("at least two waypoints required")
	}

	coords := make([]string, 0, len(waypoints))
	for _, p := range waypoints {
		coords = append(coords, fmt.Sprintf("%f,%f", p.Lng, p.Lat))
	}
	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=false", strings.TrimRight(c.baseURL, "/"), strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("routing provider returned code %q", parsed.Code)
	}

	route := parsed.Routes[0]
	result := &RouteResult{
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
	}
	for _, leg := range route.Legs {
		result.Legs = append(result.Legs, RouteLeg{
			DistanceMeters:  leg.Distance,
			DurationSeconds: leg.Duration,
		})
	}
	return result, nil
}
