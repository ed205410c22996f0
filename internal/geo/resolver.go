package geo

import (
	"strings"

	"github.com/xrash/smetrics"

	"github.com/bvilove/datebot/internal/preference"
)

const (
	// MinSimilarity is the lowest Jaro-Winkler score accepted as a match.
	MinSimilarity = 0.8

	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

var _ preference.CityResolver = (*Directory)(nil)

// Resolve returns the city whose name is most similar to text. Ties are
// broken by the lower location code so results are stable.
func (d *Directory) Resolve(text string) (preference.LocationCode, bool) {
	query := fold(strings.TrimSpace(text))
	if query == "" || len(d.index) == 0 {
		return 0, false
	}

	var (
		best      preference.LocationCode
		bestScore = -1.0
	)
	for _, e := range d.index {
		score := smetrics.JaroWinkler(query, e.folded, jwBoostThreshold, jwPrefixSize)
		if score > bestScore || (score == bestScore && e.code < best) {
			best, bestScore = e.code, score
		}
	}
	if bestScore < MinSimilarity {
		return 0, false
	}
	return best, true
}
