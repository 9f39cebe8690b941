package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load resolves the full engine configuration:
//
//  1. Load a local .env file if present (missing files are not an error).
//  2. Populate the Config struct from the OS environment, applying defaults.
//  3. Validate the result; any invalid value fails startup immediately.
func Load() (*Config, error) {
	// Dotenv is a local-development convenience; real environments inject
	// variables directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags plus the cross-field constraints that tags
// cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}

	if cfg.Database.Driver == "postgres" && !cfg.Database.URL.IsSet() {
		return fmt.Errorf("config: DATABASE_URL is required when DB_DRIVER=postgres")
	}
	if cfg.Transport.Kind == "sqs" && cfg.Transport.QueueURL == "" {
		return fmt.Errorf("config: SQS_ALERT_QUEUE is required when TRANSPORT=sqs")
	}

	// The primary provider must actually be usable: a keyed primary without
	// credentials cannot be silently disabled the way a secondary can.
	switch cfg.Providers.Primary {
	case "openweathermap":
		if !cfg.Providers.OpenWeatherAPIKey.IsSet() {
			return fmt.Errorf("config: OPENWEATHER_API_KEY is required when WEATHER_PRIMARY=openweathermap")
		}
	case "weatherapi":
		if !cfg.Providers.WeatherAPIKey.IsSet() {
			return fmt.Errorf("config: WEATHERAPI_API_KEY is required when WEATHER_PRIMARY=weatherapi")
		}
	case "openmeteo":
		if !cfg.Providers.OpenMeteoEnabled {
			return fmt.Errorf("config: OPENMETEO_ENABLED must be true when WEATHER_PRIMARY=openmeteo")
		}
	}

	// Thresholds must preserve the level ordering.
	r := cfg.Risk
	if !(r.ModerateThreshold < r.HighThreshold && r.HighThreshold < r.CriticalThreshold) {
		return fmt.Errorf("config: risk level thresholds must satisfy moderate < high < critical (got %v < %v < %v)",
			r.ModerateThreshold, r.HighThreshold, r.CriticalThreshold)
	}

	return nil
}
