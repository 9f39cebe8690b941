package risk

import (
	"fmt"
	"sort"
	"strings"

	"pestwatch/internal/types"
)

// Ordered action lists per level. The first entry is always the headline
// action for that severity.
var levelActions = map[types.RiskLevel][]string{
	types.LevelCritical: {
		"Intervene immediately: inspect all plots today and apply targeted treatment",
		"Contact your agricultural extension officer or crop protection expert",
		"Isolate and destroy visibly infested plants to slow the spread",
	},
	types.LevelHigh: {
		"Monitor plots daily for early signs of infestation",
		"Apply preventive treatment on the most exposed plots",
		"Prepare intervention equipment in case conditions worsen",
	},
	types.LevelModerate: {
		"Inspect plots every two to three days",
		"Check traps and field borders for early pest activity",
	},
	types.LevelLow: {
		"Maintain routine surveillance of your plots",
	},
}

// Factor-specific addenda appended after the level actions when the factor's
// contribution crosses its display threshold.
const (
	rainCaution     = "Heavy rainfall also favors fungal disease: inspect leaves for spotting and improve drainage"
	humidityCaution = "Sustained high humidity: avoid overhead irrigation and ensure airflow between rows"
)

// humidityCautionFactor is the humidity contribution at or above which the
// humidity addendum is shown. Unlike the rainfall threshold it has not needed
// field calibration, so it stays a constant.
const humidityCautionFactor = 0.30

// Recommendations returns the ordered action list for a level, augmented with
// factor-specific addenda.
func Recommendations(level types.RiskLevel, factors types.RiskFactors, rainCautionFactor float64) []string {
	actions := levelActions[level]
	out := make([]string, len(actions), len(actions)+2)
	copy(out, actions)

	if factors[types.FactorRainfall] >= rainCautionFactor {
		out = append(out, rainCaution)
	}
	if factors[types.FactorHumidity] >= humidityCautionFactor {
		out = append(out, humidityCaution)
	}
	return out
}

// RenderMessage formats the human-readable alert text: level, score as a
// percentage, the top contributing factors, and the data-quality metadata.
// Confidence and source are always shown so a low-confidence CRITICAL is
// distinguishable from a well-corroborated one.
func RenderMessage(level types.RiskLevel, score float64, consensus types.ConsensusResult, factors types.RiskFactors, topN int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pest risk %s (%.0f%%).", level, score*100)

	if top := topFactors(factors, topN); len(top) > 0 {
		fmt.Fprintf(&b, " Main drivers: %s.", strings.Join(top, ", "))
	}

	fmt.Fprintf(&b, " Data: %s, confidence %.0f%%", consensus.SourceLabel, consensus.Confidence*100)
	if consensus.SourceLabel == types.SourceValidated {
		fmt.Fprintf(&b, " (%d sources)", consensus.SampleCount)
	}
	b.WriteString(".")
	return b.String()
}

// topFactors returns the n highest-contributing factor names, formatted with
// their contribution. Ties break alphabetically so output stays deterministic.
func topFactors(factors types.RiskFactors, n int) []string {
	type entry struct {
		name  string
		value float64
	}
	entries := make([]entry, 0, len(factors))
	for name, v := range factors {
		entries = append(entries, entry{name, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].name < entries[j].name
	})

	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, 0, n)
	for _, e := range entries[:n] {
		out = append(out, fmt.Sprintf("%s (%.2f)", e.name, e.value))
	}
	return out
}
