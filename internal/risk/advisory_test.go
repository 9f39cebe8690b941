package risk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pestwatch/internal/types"
)

func TestRecommendations_PerLevel(t *testing.T) {
	factors := types.RiskFactors{types.FactorRainfall: 0.05, types.FactorHumidity: 0.05}

	critical := Recommendations(types.LevelCritical, factors, 0.15)
	require.NotEmpty(t, critical)
	assert.Contains(t, critical[0], "immediately")
	assert.Contains(t, strings.Join(critical, " "), "extension officer")

	high := Recommendations(types.LevelHigh, factors, 0.15)
	assert.Contains(t, strings.Join(high, " "), "daily")

	moderate := Recommendations(types.LevelModerate, factors, 0.15)
	assert.Contains(t, strings.Join(moderate, " "), "two to three days")

	low := Recommendations(types.LevelLow, factors, 0.15)
	assert.Len(t, low, 1)
	assert.Contains(t, low[0], "routine surveillance")
}

func TestRecommendations_RainfallAddendum(t *testing.T) {
	without := Recommendations(types.LevelHigh, types.RiskFactors{types.FactorRainfall: 0.10}, 0.15)
	with := Recommendations(types.LevelHigh, types.RiskFactors{types.FactorRainfall: 0.15}, 0.15)

	assert.NotContains(t, strings.Join(without, " "), "fungal")
	assert.Contains(t, strings.Join(with, " "), "fungal")
}

func TestRecommendations_HumidityAddendum(t *testing.T) {
	with := Recommendations(types.LevelModerate, types.RiskFactors{types.FactorHumidity: 0.30}, 0.15)
	assert.Contains(t, strings.Join(with, " "), "humidity")
}

func TestRecommendations_DoesNotMutateLevelActions(t *testing.T) {
	factors := types.RiskFactors{types.FactorRainfall: 0.20, types.FactorHumidity: 0.30}
	before := len(levelActions[types.LevelLow])

	_ = Recommendations(types.LevelLow, factors, 0.15)
	_ = Recommendations(types.LevelLow, factors, 0.15)

	assert.Len(t, levelActions[types.LevelLow], before)
}

func TestRenderMessage_Snapshot(t *testing.T) {
	factors := types.RiskFactors{
		types.FactorTemperature: 0.25,
		types.FactorHumidity:    0.30,
		types.FactorRainfall:    0.20,
		types.FactorSeason:      0.20,
		types.FactorHistory:     0.05,
		types.FactorWindSpeed:   0.05,
		types.FactorPressure:    0.02,
	}
	consensusResult := types.ConsensusResult{
		Confidence:  0.9,
		SourceLabel: types.SourceValidated,
		SampleCount: 2,
	}

	msg := RenderMessage(types.LevelCritical, 1.07, consensusResult, factors, 3)

	assert.Equal(t,
		"Pest risk CRITICAL (107%). Main drivers: humidity (0.30), temperature (0.25), rainfall (0.20). Data: validated, confidence 90% (2 sources).",
		msg)
}

func TestRenderMessage_FallbackShowsDegradedConfidence(t *testing.T) {
	factors := types.RiskFactors{types.FactorSeason: 0.20}
	consensusResult := types.ConsensusResult{
		Confidence:  0.2,
		SourceLabel: types.SourceFallback,
	}

	msg := RenderMessage(types.LevelModerate, 0.5, consensusResult, factors, 3)

	assert.Contains(t, msg, "fallback")
	assert.Contains(t, msg, "confidence 20%")
	assert.NotContains(t, msg, "sources")
}

func TestRenderMessage_TieBreaksAlphabetically(t *testing.T) {
	factors := types.RiskFactors{
		types.FactorWindSpeed: 0.10,
		types.FactorPressure:  0.10,
		types.FactorSeason:    0.10,
	}
	consensusResult := types.ConsensusResult{Confidence: 0.8, SourceLabel: types.SourcePrimaryOnly, SampleCount: 1}

	msg := RenderMessage(types.LevelLow, 0.3, consensusResult, factors, 2)
	assert.Contains(t, msg, "Main drivers: pressure (0.10), season (0.10).")
}
