// Package risk implements the additive pest-risk scoring model and the
// advisory generator that turns an assessment into recommended actions and an
// alert message. Both are pure: fixed inputs always yield identical output.
package risk

import (
	"math"
	"time"

	"pestwatch/internal/config"
	"pestwatch/internal/types"
)

// Model scores weather conditions against the calibrated step functions. All
// boundaries and weights come from configuration so agronomists can retune in
// the field without a release.
type Model struct {
	cfg config.RiskModelConfig
}

// NewModel creates a scoring model with the given calibration.
func NewModel(cfg config.RiskModelConfig) *Model {
	return &Model{cfg: cfg}
}

// Factors computes the per-dimension contributions for one reconciled sample.
// Each factor is a step function of exactly one input and is capped at
// types.MaxFactorContribution; factors are summed, never multiplied.
func (m *Model) Factors(sample types.WeatherSample, season types.Season, historyDays int) types.RiskFactors {
	c := m.cfg
	f := types.RiskFactors{}

	switch {
	case sample.TemperatureC > c.TempHighC:
		f[types.FactorTemperature] = c.TempHighWeight
	case sample.TemperatureC > c.TempWarmC:
		f[types.FactorTemperature] = c.TempWarmWeight
	default:
		f[types.FactorTemperature] = c.TempBaseWeight
	}

	switch {
	case sample.HumidityPct > c.HumidityVeryHighPct:
		f[types.FactorHumidity] = c.HumidityVeryHighWeight
	case sample.HumidityPct > c.HumidityHighPct:
		f[types.FactorHumidity] = c.HumidityHighWeight
	case sample.HumidityPct > c.HumidityModeratePct:
		f[types.FactorHumidity] = c.HumidityModerateWeight
	default:
		f[types.FactorHumidity] = c.HumidityBaseWeight
	}

	switch {
	case sample.RainfallMm > c.RainHeavyMm:
		f[types.FactorRainfall] = c.RainHeavyWeight
	case sample.RainfallMm > c.RainHighMm:
		f[types.FactorRainfall] = c.RainHighWeight
	case sample.RainfallMm > c.RainModerateMm:
		f[types.FactorRainfall] = c.RainModerateWeight
	default:
		f[types.FactorRainfall] = c.RainBaseWeight
	}

	switch season {
	case types.SeasonRainy:
		f[types.FactorSeason] = c.SeasonRainyWeight
	case types.SeasonTransition:
		f[types.FactorSeason] = c.SeasonTransitionWeight
	default:
		f[types.FactorSeason] = c.SeasonBaseWeight
	}

	switch {
	case historyDays < c.HistoryRecentDays:
		f[types.FactorHistory] = c.HistoryRecentWeight
	case historyDays < c.HistoryMidDays:
		f[types.FactorHistory] = c.HistoryMidWeight
	case historyDays < c.HistoryOldDays:
		f[types.FactorHistory] = c.HistoryOldWeight
	default:
		f[types.FactorHistory] = c.HistoryBaseWeight
	}

	// Low wind favors pest settling.
	switch {
	case sample.WindSpeedMps < c.WindCalmMps:
		f[types.FactorWindSpeed] = c.WindCalmWeight
	case sample.WindSpeedMps < c.WindLightMps:
		f[types.FactorWindSpeed] = c.WindLightWeight
	default:
		f[types.FactorWindSpeed] = c.WindBaseWeight
	}

	switch {
	case sample.PressureHPa < c.PressureLowHPa:
		f[types.FactorPressure] = c.PressureLowWeight
	case sample.PressureHPa < c.PressureMidHPa:
		f[types.FactorPressure] = c.PressureMidWeight
	default:
		f[types.FactorPressure] = c.PressureBaseWeight
	}

	for name, v := range f {
		f[name] = math.Min(v, types.MaxFactorContribution)
	}
	return f
}

// Level maps a summed score onto the four discrete levels.
func (m *Model) Level(score float64) types.RiskLevel {
	switch {
	case score >= m.cfg.CriticalThreshold:
		return types.LevelCritical
	case score >= m.cfg.HighThreshold:
		return types.LevelHigh
	case score >= m.cfg.ModerateThreshold:
		return types.LevelModerate
	default:
		return types.LevelLow
	}
}

// Assess runs the full scoring step: factors, score, level, advisories, and
// the rendered alert message.
func (m *Model) Assess(consensus types.ConsensusResult, season types.Season, historyDays int) types.RiskAssessment {
	factors := m.Factors(consensus.Sample, season, historyDays)
	score := factors.Total()
	level := m.Level(score)

	return types.RiskAssessment{
		Score:           score,
		Level:           level,
		Confidence:      consensus.Confidence,
		Source:          consensus.SourceLabel,
		Season:          season,
		Factors:         factors,
		Recommendations: Recommendations(level, factors, m.cfg.RainCautionFactor),
		Message:         RenderMessage(level, score, consensus, factors, m.cfg.TopFactors),
	}
}

// SeasonFor derives the agronomic season from calendar month and hemisphere.
// West African convention: months June through September are the rainy season
// north of the equator; southern latitudes shift the window by six months.
func SeasonFor(at time.Time, lat float64) types.Season {
	month := int(at.Month())
	if lat < 0 {
		month = (month+5)%12 + 1
	}
	switch {
	case month >= 6 && month <= 9:
		return types.SeasonRainy
	case month >= 3 && month <= 5:
		return types.SeasonTransition
	default:
		return types.SeasonDry
	}
}
