package weather

import (
	"context"

	"pestwatch/internal/types"
)

// Provider fetches a point-in-time weather sample for a coordinate.
// Implementations normalize their upstream response into types.WeatherSample;
// malformed or incomplete upstream payloads are errors, never silently
// defaulted.
type Provider interface {
	// Name returns the provider identifier used in config, logs, and metrics.
	Name() string

	// Fetch retrieves the current conditions at (lat, lon). The call is
	// bounded by the client's per-call timeout; failures map to the provider
	// error taxonomy (provider_unavailable, provider_malformed_response,
	// provider_rate_limited).
	Fetch(ctx context.Context, lat, lon float64) (*types.WeatherSample, error)
}

// firstMissing returns the name of the first nil field in the given payload
// fields, or "" when all are present. Providers decode into pointers so that
// an absent value can be told apart from a legitimate zero.
func firstMissing(fields map[string]*float64, order []string) string {
	for _, name := range order {
		if fields[name] == nil {
			return name
		}
	}
	return ""
}
