package pipeline

import (
	"encoding/json"
	"strconv"

	"github.com/audiarr/audiarr/internal/logger"
)

// parsePriorities decodes the per-indexer priority bonus setting, a JSON
// object of indexer id to additive score bonus.
func parsePriorities(raw string) map[int64]float64 {
	var byName map[string]float64
	if err := json.Unmarshal([]byte(raw), &byName); err != nil {
		logger.Warn().Err(err).Msg("ignoring malformed indexer_priorities setting")
		return nil
	}
	out := make(map[int64]float64, len(byName))
	for key, bonus := range byName {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warn().Str("key", key).Msg("ignoring non-numeric indexer id in priorities")
			continue
		}
		out[id] = bonus
	}
	return out
}

// parseFlagWeights decodes the release-flag bonus setting, a JSON object
// of flag name to additive score bonus.
func parseFlagWeights(raw string) map[string]float64 {
	var weights map[string]float64
	if err := json.Unmarshal([]byte(raw), &weights); err != nil {
		logger.Warn().Err(err).Msg("ignoring malformed flag_weights setting")
		return nil
	}
	return weights
}
