// Package consensus reconciles weather samples from multiple providers into a
// single reading with a confidence score and a label describing how the
// reading was obtained. Reconcile is a pure function: identical inputs always
// produce identical results.
package consensus

import (
	"math"

	"pestwatch/internal/types"
)

// Weight split between the primary provider and the secondary set when
// cross-validation produced usable samples.
const (
	primaryWeight     = 0.4
	secondariesWeight = 0.6
)

// Confidence assigned per source label. Validated confidence grows with the
// number of secondary samples that corroborated the reading and is capped
// below 1: the engine never claims certainty about a forecast input. The
// primary itself does not count; it is what is being validated.
const (
	confidencePerSample = 0.15
	confidenceBase      = 0.60
	confidenceCap       = 0.95

	ConfidencePrimaryOnly = 0.80
	ConfidenceFallback    = 0.20
)

// Conservative default conditions used when no provider returned a usable
// sample. Mild values that keep the risk model on the low side rather than
// paging everyone on an outage.
const (
	fallbackTempC    = 26.0
	fallbackHumidity = 70.0
	fallbackRainMm   = 5.0
	fallbackWindMps  = 3.0
	fallbackPressure = 1010.0
)

// FallbackProviderName marks a synthesized sample in the consensus result.
const FallbackProviderName = "fallback"

// consensusProviderName marks a sample averaged across providers.
const consensusProviderName = "consensus"

// Reconcile merges the primary sample (nil when the primary failed or was
// rejected as implausible) with whatever secondary samples cross-validation
// produced. The result is always usable; with zero inputs it degrades to the
// fallback sample with minimal confidence.
func Reconcile(primary *types.WeatherSample, secondaries []types.WeatherSample, loc types.Location) types.ConsensusResult {
	switch {
	case primary != nil && len(secondaries) > 0:
		avg := average(secondaries, loc)
		merged := types.WeatherSample{
			TemperatureC: primaryWeight*primary.TemperatureC + secondariesWeight*avg.TemperatureC,
			HumidityPct:  primaryWeight*primary.HumidityPct + secondariesWeight*avg.HumidityPct,
			RainfallMm:   primaryWeight*primary.RainfallMm + secondariesWeight*avg.RainfallMm,
			WindSpeedMps: primaryWeight*primary.WindSpeedMps + secondariesWeight*avg.WindSpeedMps,
			PressureHPa:  primaryWeight*primary.PressureHPa + secondariesWeight*avg.PressureHPa,
			Location:     loc,
			ProviderName: consensusProviderName,
		}
		return types.ConsensusResult{
			Sample:      merged,
			Confidence:  confidenceFor(len(secondaries)),
			SourceLabel: types.SourceValidated,
			SampleCount: len(secondaries) + 1,
		}

	case primary != nil:
		return types.ConsensusResult{
			Sample:      *primary,
			Confidence:  ConfidencePrimaryOnly,
			SourceLabel: types.SourcePrimaryOnly,
			SampleCount: 1,
		}

	case len(secondaries) > 0:
		// Primary was unusable; the secondaries' plain average stands in.
		return types.ConsensusResult{
			Sample:      average(secondaries, loc),
			Confidence:  confidenceFor(len(secondaries)),
			SourceLabel: types.SourceValidated,
			SampleCount: len(secondaries),
		}

	default:
		return types.ConsensusResult{
			Sample: types.WeatherSample{
				TemperatureC: fallbackTempC,
				HumidityPct:  fallbackHumidity,
				RainfallMm:   fallbackRainMm,
				WindSpeedMps: fallbackWindMps,
				PressureHPa:  fallbackPressure,
				Location:     loc,
				ProviderName: FallbackProviderName,
			},
			Confidence:  ConfidenceFallback,
			SourceLabel: types.SourceFallback,
			SampleCount: 0,
		}
	}
}

func confidenceFor(secondaries int) float64 {
	return math.Min(confidenceCap, confidenceBase+confidencePerSample*float64(secondaries))
}

// average computes the unweighted mean of samples. Callers guarantee the
// slice is non-empty.
func average(samples []types.WeatherSample, loc types.Location) types.WeatherSample {
	var out types.WeatherSample
	for _, s := range samples {
		out.TemperatureC += s.TemperatureC
		out.HumidityPct += s.HumidityPct
		out.RainfallMm += s.RainfallMm
		out.WindSpeedMps += s.WindSpeedMps
		out.PressureHPa += s.PressureHPa
	}
	n := float64(len(samples))
	out.TemperatureC /= n
	out.HumidityPct /= n
	out.RainfallMm /= n
	out.WindSpeedMps /= n
	out.PressureHPa /= n
	out.Location = loc
	out.ProviderName = consensusProviderName
	return out
}
