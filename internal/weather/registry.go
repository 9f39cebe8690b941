package weather

import (
	"fmt"
	"log/slog"

	"pestwatch/internal/config"
)

// Registry holds the configured providers, split into the single primary and
// the secondary/validation set. Secondaries whose credentials are absent are
// silently disabled; the engine runs correctly with only the primary.
type Registry struct {
	primary     Provider
	secondaries []Provider
}

// NewRegistry builds the provider set from configuration. The primary must be
// usable (the config loader enforces its credentials); every other configured
// provider becomes a secondary.
func NewRegistry(cfg config.ProvidersConfig, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	build := func(name string) Provider {
		switch name {
		case ProviderOpenWeather:
			if !cfg.OpenWeatherAPIKey.IsSet() {
				return nil
			}
			return NewOpenWeatherProvider(
				NewClient(DefaultClientConfig(ProviderOpenWeather, cfg.Timeout)),
				cfg.OpenWeatherBaseURL, cfg.OpenWeatherAPIKey)
		case ProviderWeatherAPI:
			if !cfg.WeatherAPIKey.IsSet() {
				return nil
			}
			return NewWeatherAPIProvider(
				NewClient(DefaultClientConfig(ProviderWeatherAPI, cfg.Timeout)),
				cfg.WeatherAPIBaseURL, cfg.WeatherAPIKey)
		case ProviderOpenMeteo:
			if !cfg.OpenMeteoEnabled {
				return nil
			}
			return NewOpenMeteoProvider(
				NewClient(DefaultClientConfig(ProviderOpenMeteo, cfg.Timeout)),
				cfg.OpenMeteoBaseURL)
		default:
			return nil
		}
	}

	primary := build(cfg.Primary)
	if primary == nil {
		return nil, fmt.Errorf("weather: primary provider %q is not configured", cfg.Primary)
	}

	var secondaries []Provider
	for _, name := range []string{ProviderOpenWeather, ProviderWeatherAPI, ProviderOpenMeteo} {
		if name == cfg.Primary {
			continue
		}
		if p := build(name); p != nil {
			secondaries = append(secondaries, p)
		} else {
			logger.Info("secondary weather provider disabled", "provider", name)
		}
	}

	logger.Info("weather providers configured",
		"primary", primary.Name(),
		"secondaries", len(secondaries),
	)

	return &Registry{primary: primary, secondaries: secondaries}, nil
}

// NewRegistryFromProviders assembles a registry directly; used by tests and
// the one-shot evaluate tool.
func NewRegistryFromProviders(primary Provider, secondaries ...Provider) *Registry {
	return &Registry{primary: primary, secondaries: secondaries}
}

// Primary returns the primary provider.
func (r *Registry) Primary() Provider { return r.primary }

// Secondaries returns the enabled secondary/validation providers.
func (r *Registry) Secondaries() []Provider { return r.secondaries }
