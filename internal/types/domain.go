// Package types defines the shared domain model for the PestWatch risk engine:
// weather samples, consensus results, risk assessments, and alert subscriptions.
// Everything here is a value object; samples, consensus results, and assessments
// are constructed once per evaluation and never mutated afterwards.
package types

import (
	"time"
)

// Location identifies the point a subscriber wants monitored.
type Location struct {
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon" validate:"gte=-180,lte=180"`
	Country string  `json:"country,omitempty"`
	Region  string  `json:"region,omitempty"`
}

// WeatherSample is a point-in-time weather observation normalized into a single
// schema regardless of which provider produced it. Units are fixed: Celsius,
// percent, millimetres, metres per second, hectopascals.
type WeatherSample struct {
	TemperatureC float64  `json:"temperature_c"`
	HumidityPct  float64  `json:"humidity_pct"`
	RainfallMm   float64  `json:"rainfall_mm"`
	WindSpeedMps float64  `json:"wind_speed_mps"`
	PressureHPa  float64  `json:"pressure_hpa"`
	Location     Location `json:"location"`
	ProviderName string   `json:"provider_name"`
}

// SourceLabel describes how a consensus sample was obtained.
type SourceLabel string

const (
	// SourcePrimaryOnly means the primary provider's sample was used verbatim.
	SourcePrimaryOnly SourceLabel = "primary_only"
	// SourceValidated means the sample is a weighted average across providers.
	SourceValidated SourceLabel = "validated"
	// SourceFallback means no provider data was available and the fixed
	// fallback sample was substituted.
	SourceFallback SourceLabel = "fallback"
)

// ConsensusResult is the reconciled weather reading produced by the consensus
// engine. It is a transient computation result and is never persisted.
type ConsensusResult struct {
	Sample      WeatherSample `json:"sample"`
	Confidence  float64       `json:"confidence"` // in [0,1]
	SourceLabel SourceLabel   `json:"source_label"`
	// SampleCount is the number of provider samples that contributed to the
	// reconciled reading (0 for fallback).
	SampleCount int `json:"sample_count"`
}

// RiskLevel is the discrete severity of a risk assessment.
type RiskLevel string

const (
	LevelLow      RiskLevel = "LOW"
	LevelModerate RiskLevel = "MODERATE"
	LevelHigh     RiskLevel = "HIGH"
	LevelCritical RiskLevel = "CRITICAL"
)

// riskLevelRank orders levels LOW < MODERATE < HIGH < CRITICAL.
var riskLevelRank = map[RiskLevel]int{
	LevelLow:      0,
	LevelModerate: 1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// Rank returns the ordinal position of the level. Unknown levels rank lowest.
func (l RiskLevel) Rank() int { return riskLevelRank[l] }

// AtLeast reports whether l is equal to or more severe than other.
func (l RiskLevel) AtLeast(other RiskLevel) bool { return l.Rank() >= other.Rank() }

// Valid reports whether l is one of the four defined levels.
func (l RiskLevel) Valid() bool {
	_, ok := riskLevelRank[l]
	return ok
}

// Season is the agronomic season derived from calendar month and hemisphere.
type Season string

const (
	SeasonRainy      Season = "rainy"
	SeasonDry        Season = "dry"
	SeasonTransition Season = "transition"
)

// Risk factor names. Each factor is computed independently from exactly one
// input dimension, and factors are summed (never multiplied) so the model
// stays auditable.
const (
	FactorTemperature = "temperature"
	FactorHumidity    = "humidity"
	FactorRainfall    = "rainfall"
	FactorSeason      = "season"
	FactorHistory     = "history"
	FactorWindSpeed   = "windSpeed"
	FactorPressure    = "pressure"
)

// RiskFactors maps a named contributor to its non-negative contribution.
// Individual contributions are capped at MaxFactorContribution.
type RiskFactors map[string]float64

// MaxFactorContribution is the ceiling applied to any single factor.
const MaxFactorContribution = 0.3

// Total returns the sum of all factor contributions.
func (f RiskFactors) Total() float64 {
	var sum float64
	for _, v := range f {
		sum += v
	}
	return sum
}

// RiskAssessment is the full outcome of one pipeline evaluation. It is derived
// deterministically from a ConsensusResult plus season and pest history, and is
// recomputed on every evaluation rather than cached.
type RiskAssessment struct {
	Score           float64     `json:"score"`
	Level           RiskLevel   `json:"level"`
	Confidence      float64     `json:"confidence"`
	Source          SourceLabel `json:"source"`
	Season          Season      `json:"season"`
	Factors         RiskFactors `json:"factors"`
	Recommendations []string    `json:"recommendations"`
	Message         string      `json:"message"`
}

// AlertSubscription is the durable record of who wants alerts, where, at what
// minimum severity, and when they were last notified. Unsubscribing flips
// Active to false; records are never hard-deleted so audit history survives.
type AlertSubscription struct {
	SubscriberID string     `json:"subscriber_id"`
	Contact      string     `json:"contact"`
	Location     Location   `json:"location"`
	MinSeverity  RiskLevel  `json:"min_severity"`
	LastAlertAt  *time.Time `json:"last_alert_at,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
