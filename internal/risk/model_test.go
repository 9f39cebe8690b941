package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pestwatch/internal/config"
	"pestwatch/internal/types"
)

func defaultModel() *Model {
	return NewModel(config.DefaultRiskModel())
}

func weatherSample(temp, hum, rain, wind, pressure float64) types.WeatherSample {
	return types.WeatherSample{
		TemperatureC: temp,
		HumidityPct:  hum,
		RainfallMm:   rain,
		WindSpeedMps: wind,
		PressureHPa:  pressure,
	}
}

func TestFactors_TemperatureSteps(t *testing.T) {
	m := defaultModel()

	cases := []struct {
		temp float64
		want float64
	}{
		{30, 0.25},
		{28.1, 0.25},
		{28, 0.15}, // boundary: strictly greater-than
		{26, 0.15},
		{25, 0.05},
		{10, 0.05},
	}
	for _, tc := range cases {
		f := m.Factors(weatherSample(tc.temp, 50, 0, 10, 1015), types.SeasonDry, 120)
		assert.Equal(t, tc.want, f[types.FactorTemperature], "temp=%v", tc.temp)
	}
}

func TestFactors_HistorySteps(t *testing.T) {
	m := defaultModel()

	cases := []struct {
		days int
		want float64
	}{
		{0, 0.25},
		{14, 0.25},
		{15, 0.15},
		{29, 0.15},
		{30, 0.10},
		{59, 0.10},
		{60, 0.05},
		{365, 0.05},
	}
	for _, tc := range cases {
		f := m.Factors(weatherSample(20, 50, 0, 10, 1015), types.SeasonDry, tc.days)
		assert.Equal(t, tc.want, f[types.FactorHistory], "days=%v", tc.days)
	}
}

func TestFactors_EveryContributionCapped(t *testing.T) {
	m := defaultModel()
	f := m.Factors(weatherSample(45, 99, 300, 0, 950), types.SeasonRainy, 0)

	for name, v := range f {
		assert.LessOrEqual(t, v, types.MaxFactorContribution, "factor %s", name)
		assert.GreaterOrEqual(t, v, 0.0, "factor %s", name)
	}
}

func TestAssess_DrySeasonLowRisk(t *testing.T) {
	m := defaultModel()
	consensusResult := types.ConsensusResult{
		Sample:      weatherSample(22, 50, 0, 6, 1015),
		Confidence:  0.8,
		SourceLabel: types.SourcePrimaryOnly,
		SampleCount: 1,
	}

	a := m.Assess(consensusResult, types.SeasonDry, 120)

	// 0.05+0.05+0.05+0.05+0.05+0.05+0.02
	assert.InDelta(t, 0.32, a.Score, 1e-9)
	assert.Equal(t, types.LevelLow, a.Level)
	assert.Equal(t, 0.8, a.Confidence)
	assert.NotEmpty(t, a.Recommendations)
	assert.NotEmpty(t, a.Message)
}

func TestAssess_RainySeasonCriticalRisk(t *testing.T) {
	m := defaultModel()
	consensusResult := types.ConsensusResult{
		Sample:      weatherSample(30, 90, 120, 1, 990),
		Confidence:  0.95,
		SourceLabel: types.SourceValidated,
		SampleCount: 3,
	}

	a := m.Assess(consensusResult, types.SeasonRainy, 5)

	// 0.25+0.30+0.20+0.20+0.25+0.15+0.10
	assert.InDelta(t, 1.45, a.Score, 1e-9)
	assert.Equal(t, types.LevelCritical, a.Level)
}

func TestLevel_Thresholds(t *testing.T) {
	m := defaultModel()

	assert.Equal(t, types.LevelLow, m.Level(0.44))
	assert.Equal(t, types.LevelModerate, m.Level(0.45))
	assert.Equal(t, types.LevelModerate, m.Level(0.64))
	assert.Equal(t, types.LevelHigh, m.Level(0.65))
	assert.Equal(t, types.LevelHigh, m.Level(0.84))
	assert.Equal(t, types.LevelCritical, m.Level(0.85))
	assert.Equal(t, types.LevelCritical, m.Level(1.5))
}

func TestFactors_Monotonicity(t *testing.T) {
	m := defaultModel()

	score := func(temp, hum, rain float64) float64 {
		return m.Factors(weatherSample(temp, hum, rain, 4, 1000), types.SeasonTransition, 45).Total()
	}

	base := score(20, 60, 10)
	for _, temp := range []float64{24, 26, 29, 35} {
		next := score(temp, 60, 10)
		assert.GreaterOrEqual(t, next, base, "temp=%v", temp)
		base = next
	}

	base = score(20, 60, 10)
	for _, hum := range []float64{66, 76, 86, 95} {
		next := score(20, hum, 10)
		assert.GreaterOrEqual(t, next, base, "humidity=%v", hum)
		base = next
	}

	base = score(20, 60, 10)
	for _, rain := range []float64{21, 51, 101, 200} {
		next := score(20, 60, rain)
		assert.GreaterOrEqual(t, next, base, "rain=%v", rain)
		base = next
	}
}

func TestSeasonFor(t *testing.T) {
	date := func(month time.Month) time.Time {
		return time.Date(2026, month, 15, 12, 0, 0, 0, time.UTC)
	}

	// Northern hemisphere (West Africa convention).
	assert.Equal(t, types.SeasonRainy, SeasonFor(date(time.June), 6.45))
	assert.Equal(t, types.SeasonRainy, SeasonFor(date(time.September), 6.45))
	assert.Equal(t, types.SeasonTransition, SeasonFor(date(time.March), 6.45))
	assert.Equal(t, types.SeasonTransition, SeasonFor(date(time.May), 6.45))
	assert.Equal(t, types.SeasonDry, SeasonFor(date(time.December), 6.45))
	assert.Equal(t, types.SeasonDry, SeasonFor(date(time.February), 6.45))
	assert.Equal(t, types.SeasonDry, SeasonFor(date(time.October), 6.45))

	// Southern hemisphere: rainy window shifts by six months.
	assert.Equal(t, types.SeasonRainy, SeasonFor(date(time.December), -15.8))
	assert.Equal(t, types.SeasonRainy, SeasonFor(date(time.March), -15.8))
	assert.Equal(t, types.SeasonDry, SeasonFor(date(time.June), -15.8))
}

func TestAssess_Deterministic(t *testing.T) {
	m := defaultModel()
	consensusResult := types.ConsensusResult{
		Sample:      weatherSample(27.5, 82.1, 33.7, 2.4, 1001.2),
		Confidence:  0.9,
		SourceLabel: types.SourceValidated,
		SampleCount: 2,
	}

	first := m.Assess(consensusResult, types.SeasonRainy, 20)
	second := m.Assess(consensusResult, types.SeasonRainy, 20)
	assert.Equal(t, first, second)
}
