// Package config defines the configuration structure for the PestWatch risk
// engine. Configuration is loaded once at process startup and is immutable
// thereafter; components receive only the config subsets they require.
//
// Every risk-model threshold and scheduler interval is a named field with a
// documented default. The numeric boundaries of the risk model are calibration
// parameters, expected to be retuned in the field without code changes.
package config

import (
	"time"

	"pestwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for provider credentials.
type SecretString = types.SecretString

// Config is the top-level configuration for the engine process.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"pestwatch-engine"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Database  DatabaseConfig
	Providers ProvidersConfig
	Risk      RiskModelConfig
	Scheduler SchedulerConfig
	Transport TransportConfig
}

// ServerConfig holds the inbound HTTP API settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig selects and tunes the subscription registry backend.
type DatabaseConfig struct {
	// Driver selects the registry backend. "memory" keeps subscriptions in
	// process (local development only), "sqlite" uses an embedded database,
	// "postgres" uses a shared server.
	Driver string `envconfig:"DB_DRIVER" default:"memory" validate:"oneof=memory sqlite postgres"`

	// URL is the Postgres connection string; required when Driver=postgres.
	URL SecretString `envconfig:"DATABASE_URL"`

	// SQLitePath is the database file path; used when Driver=sqlite.
	SQLitePath string `envconfig:"SQLITE_PATH" default:"pestwatch.db"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// ProvidersConfig holds the weather provider endpoints and credentials.
// Exactly one provider is primary; the others act as secondary/validation
// sources and are enabled only when their credentials are configured.
type ProvidersConfig struct {
	// Primary names the provider queried first and preferred absent evidence
	// of error.
	Primary string `envconfig:"WEATHER_PRIMARY" default:"openweathermap" validate:"oneof=openweathermap weatherapi openmeteo"`

	// Timeout bounds each individual provider call so one slow provider never
	// blocks the job loop.
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"20s"`

	// FanoutLimit caps concurrent secondary-provider calls.
	FanoutLimit int `envconfig:"WEATHER_FANOUT_LIMIT" default:"4"`

	OpenWeatherAPIKey  SecretString `envconfig:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL string       `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5"`

	WeatherAPIKey     SecretString `envconfig:"WEATHERAPI_API_KEY"`
	WeatherAPIBaseURL string       `envconfig:"WEATHERAPI_BASE_URL" default:"https://api.weatherapi.com/v1"`

	// Open-Meteo requires no credentials; it can be switched off explicitly.
	OpenMeteoEnabled bool   `envconfig:"OPENMETEO_ENABLED" default:"true"`
	OpenMeteoBaseURL string `envconfig:"OPENMETEO_BASE_URL" default:"https://api.open-meteo.com/v1"`
}

// RiskModelConfig holds every step boundary and weight of the additive risk
// model, plus the score thresholds for the four output levels. The defaults
// are the most recently calibrated values; the shape of the model (additive
// factors, four levels) is the invariant, not these numbers.
type RiskModelConfig struct {
	// Temperature steps (degrees Celsius).
	TempHighC      float64 `envconfig:"RISK_TEMP_HIGH_C" default:"28"`
	TempWarmC      float64 `envconfig:"RISK_TEMP_WARM_C" default:"25"`
	TempHighWeight float64 `envconfig:"RISK_TEMP_HIGH_WEIGHT" default:"0.25"`
	TempWarmWeight float64 `envconfig:"RISK_TEMP_WARM_WEIGHT" default:"0.15"`
	TempBaseWeight float64 `envconfig:"RISK_TEMP_BASE_WEIGHT" default:"0.05"`

	// Humidity steps (percent).
	HumidityVeryHighPct    float64 `envconfig:"RISK_HUMIDITY_VERY_HIGH_PCT" default:"85"`
	HumidityHighPct        float64 `envconfig:"RISK_HUMIDITY_HIGH_PCT" default:"75"`
	HumidityModeratePct    float64 `envconfig:"RISK_HUMIDITY_MODERATE_PCT" default:"65"`
	HumidityVeryHighWeight float64 `envconfig:"RISK_HUMIDITY_VERY_HIGH_WEIGHT" default:"0.30"`
	HumidityHighWeight     float64 `envconfig:"RISK_HUMIDITY_HIGH_WEIGHT" default:"0.20"`
	HumidityModerateWeight float64 `envconfig:"RISK_HUMIDITY_MODERATE_WEIGHT" default:"0.10"`
	HumidityBaseWeight     float64 `envconfig:"RISK_HUMIDITY_BASE_WEIGHT" default:"0.05"`

	// Rainfall steps (millimetres).
	RainHeavyMm        float64 `envconfig:"RISK_RAIN_HEAVY_MM" default:"100"`
	RainHighMm         float64 `envconfig:"RISK_RAIN_HIGH_MM" default:"50"`
	RainModerateMm     float64 `envconfig:"RISK_RAIN_MODERATE_MM" default:"20"`
	RainHeavyWeight    float64 `envconfig:"RISK_RAIN_HEAVY_WEIGHT" default:"0.20"`
	RainHighWeight     float64 `envconfig:"RISK_RAIN_HIGH_WEIGHT" default:"0.15"`
	RainModerateWeight float64 `envconfig:"RISK_RAIN_MODERATE_WEIGHT" default:"0.10"`
	RainBaseWeight     float64 `envconfig:"RISK_RAIN_BASE_WEIGHT" default:"0.05"`

	// Season weights.
	SeasonRainyWeight      float64 `envconfig:"RISK_SEASON_RAINY_WEIGHT" default:"0.20"`
	SeasonTransitionWeight float64 `envconfig:"RISK_SEASON_TRANSITION_WEIGHT" default:"0.10"`
	SeasonBaseWeight       float64 `envconfig:"RISK_SEASON_BASE_WEIGHT" default:"0.05"`

	// Pest-history steps (days since last confirmed attack).
	HistoryRecentDays   int     `envconfig:"RISK_HISTORY_RECENT_DAYS" default:"15"`
	HistoryMidDays      int     `envconfig:"RISK_HISTORY_MID_DAYS" default:"30"`
	HistoryOldDays      int     `envconfig:"RISK_HISTORY_OLD_DAYS" default:"60"`
	HistoryRecentWeight float64 `envconfig:"RISK_HISTORY_RECENT_WEIGHT" default:"0.25"`
	HistoryMidWeight    float64 `envconfig:"RISK_HISTORY_MID_WEIGHT" default:"0.15"`
	HistoryOldWeight    float64 `envconfig:"RISK_HISTORY_OLD_WEIGHT" default:"0.10"`
	HistoryBaseWeight   float64 `envconfig:"RISK_HISTORY_BASE_WEIGHT" default:"0.05"`
	HistoryUnknownDays  int     `envconfig:"RISK_HISTORY_UNKNOWN_DAYS" default:"120"`

	// Wind steps (metres per second). Low wind favors pest settling.
	WindCalmMps     float64 `envconfig:"RISK_WIND_CALM_MPS" default:"3"`
	WindLightMps    float64 `envconfig:"RISK_WIND_LIGHT_MPS" default:"5"`
	WindCalmWeight  float64 `envconfig:"RISK_WIND_CALM_WEIGHT" default:"0.15"`
	WindLightWeight float64 `envconfig:"RISK_WIND_LIGHT_WEIGHT" default:"0.10"`
	WindBaseWeight  float64 `envconfig:"RISK_WIND_BASE_WEIGHT" default:"0.05"`

	// Pressure steps (hectopascals).
	PressureLowHPa     float64 `envconfig:"RISK_PRESSURE_LOW_HPA" default:"995"`
	PressureMidHPa     float64 `envconfig:"RISK_PRESSURE_MID_HPA" default:"1005"`
	PressureLowWeight  float64 `envconfig:"RISK_PRESSURE_LOW_WEIGHT" default:"0.10"`
	PressureMidWeight  float64 `envconfig:"RISK_PRESSURE_MID_WEIGHT" default:"0.05"`
	PressureBaseWeight float64 `envconfig:"RISK_PRESSURE_BASE_WEIGHT" default:"0.02"`

	// Level thresholds on the summed score.
	CriticalThreshold float64 `envconfig:"RISK_CRITICAL_THRESHOLD" default:"0.85"`
	HighThreshold     float64 `envconfig:"RISK_HIGH_THRESHOLD" default:"0.65"`
	ModerateThreshold float64 `envconfig:"RISK_MODERATE_THRESHOLD" default:"0.45"`

	// RainCautionFactor is the rainfall factor value at or above which the
	// advisory generator appends a fungal-disease caution.
	RainCautionFactor float64 `envconfig:"RISK_RAIN_CAUTION_FACTOR" default:"0.15"`

	// TopFactors is how many contributing factors the alert message names.
	TopFactors int `envconfig:"RISK_TOP_FACTORS" default:"3"`
}

// SchedulerConfig holds the recurring job intervals and anti-spam settings.
type SchedulerConfig struct {
	// GeneralInterval is how often the general sweep evaluates every active
	// subscription.
	GeneralInterval time.Duration `envconfig:"SWEEP_GENERAL_INTERVAL" default:"6h"`

	// CriticalInterval is how often the critical-only sweep runs.
	CriticalInterval time.Duration `envconfig:"SWEEP_CRITICAL_INTERVAL" default:"2h"`

	// DigestInterval is how often the operational digest report is produced.
	DigestInterval time.Duration `envconfig:"SWEEP_DIGEST_INTERVAL" default:"24h"`

	// Cooldown is the minimum gap between two non-critical alerts to the same
	// subscriber. CRITICAL alerts bypass it.
	Cooldown time.Duration `envconfig:"ALERT_COOLDOWN" default:"6h"`

	// SubscriberDelay is the artificial pause between subscribers within one
	// sweep, respecting third-party API rate limits.
	SubscriberDelay time.Duration `envconfig:"SWEEP_SUBSCRIBER_DELAY" default:"500ms"`
}

// TransportConfig selects the outbound messaging transport. Delivery itself is
// an external collaborator; "sqs" enqueues alert messages for the delivery
// worker, "log" writes them to the process log (local development).
type TransportConfig struct {
	Kind     string `envconfig:"TRANSPORT" default:"log" validate:"oneof=log sqs"`
	QueueURL string `envconfig:"SQS_ALERT_QUEUE"`
	Region   string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// DefaultRiskModel returns the calibrated defaults of the risk model, matching
// the envconfig defaults above. Used by tests and the one-shot evaluate tool.
func DefaultRiskModel() RiskModelConfig {
	return RiskModelConfig{
		TempHighC: 28, TempWarmC: 25,
		TempHighWeight: 0.25, TempWarmWeight: 0.15, TempBaseWeight: 0.05,

		HumidityVeryHighPct: 85, HumidityHighPct: 75, HumidityModeratePct: 65,
		HumidityVeryHighWeight: 0.30, HumidityHighWeight: 0.20,
		HumidityModerateWeight: 0.10, HumidityBaseWeight: 0.05,

		RainHeavyMm: 100, RainHighMm: 50, RainModerateMm: 20,
		RainHeavyWeight: 0.20, RainHighWeight: 0.15,
		RainModerateWeight: 0.10, RainBaseWeight: 0.05,

		SeasonRainyWeight: 0.20, SeasonTransitionWeight: 0.10, SeasonBaseWeight: 0.05,

		HistoryRecentDays: 15, HistoryMidDays: 30, HistoryOldDays: 60,
		HistoryRecentWeight: 0.25, HistoryMidWeight: 0.15,
		HistoryOldWeight: 0.10, HistoryBaseWeight: 0.05,
		HistoryUnknownDays: 120,

		WindCalmMps: 3, WindLightMps: 5,
		WindCalmWeight: 0.15, WindLightWeight: 0.10, WindBaseWeight: 0.05,

		PressureLowHPa: 995, PressureMidHPa: 1005,
		PressureLowWeight: 0.10, PressureMidWeight: 0.05, PressureBaseWeight: 0.02,

		CriticalThreshold: 0.85, HighThreshold: 0.65, ModerateThreshold: 0.45,

		RainCautionFactor: 0.15,
		TopFactors:        3,
	}
}
