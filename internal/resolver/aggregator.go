package resolver

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// SearchResult is a ranked, deduplicated candidate list. AutoSelected is a
// UX hint set when a single survivor clears the confidence threshold; the
// caller still makes the final selection before admission.
type SearchResult struct {
	Candidates   []TokenCandidate `json:"candidates"`
	AutoSelected bool             `json:"autoSelected"`
}

// Aggregator fans a query out to both resolvers, then scores, deduplicates
// and ranks the combined results.
type Aggregator struct {
	registry Resolver
	dex      Resolver
	scoring  Scoring
	logger   zerolog.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(registry, dex Resolver, scoring Scoring, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		dex:      dex,
		scoring:  scoring,
		logger:   logger.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate resolves a free-text query into the top-ranked candidates. Both
// sources are queried concurrently; a failed source contributes nothing and
// never aborts the other. The join waits for both to settle.
func (a *Aggregator) Aggregate(ctx context.Context, query string) (SearchResult, error) {
	sources := []struct {
		name     string
		resolver Resolver
	}{
		{"registry", a.registry},
		{"dexpair", a.dex},
	}

	results := make([][]TokenCandidate, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		if src.resolver == nil {
			continue
		}
		wg.Add(1)
		go func(i int, name string, r Resolver) {
			defer wg.Done()
			candidates, err := r.Search(ctx, query)
			if err != nil {
				// Partial failure tolerance: log and move on.
				a.logger.Warn().Err(err).Str("source", name).Str("query", query).Msg("source resolver failed")
				return
			}
			if len(candidates) == 0 {
				a.logger.Debug().Str("source", name).Str("query", query).Msg("source found nothing")
			}
			results[i] = candidates
		}(i, src.name, src.resolver)
	}
	wg.Wait()

	merged := make([]TokenCandidate, 0, 8)
	for _, candidates := range results {
		merged = append(merged, candidates...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	deduped := dedupe(merged)
	if len(deduped) > a.scoring.MaxCandidates {
		deduped = deduped[:a.scoring.MaxCandidates]
	}

	result := SearchResult{Candidates: deduped}
	if len(deduped) == 1 && deduped[0].Confidence > a.scoring.AutoSelectThreshold {
		result.AutoSelected = true
	}
	return result, nil
}

// dedupe collapses candidates sharing a case-insensitive symbol+name
// identity, keeping the higher-confidence instance. The input is sorted by
// confidence already, so first occurrence wins. Quadratic over a handful of
// candidates.
func dedupe(candidates []TokenCandidate) []TokenCandidate {
	kept := make([]TokenCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		duplicate := false
		for _, existing := range kept {
			if sameIdentity(existing, candidate) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func sameIdentity(a, b TokenCandidate) bool {
	return strings.EqualFold(a.Symbol, b.Symbol) && strings.EqualFold(a.Name, b.Name)
}
