package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubResolver struct {
	candidates []TokenCandidate
	err        error
}

func (s *stubResolver) Search(ctx context.Context, query string) ([]TokenCandidate, error) {
	return s.candidates, s.err
}

func namedCandidate(symbol, name string, confidence int) TokenCandidate {
	return TokenCandidate{Source: SourceRegistry, Symbol: symbol, Name: name, Confidence: confidence}
}

func TestAggregateRanksByConfidence(t *testing.T) {
	registry := &stubResolver{candidates: []TokenCandidate{
		namedCandidate("AAA", "Alpha", 60),
		namedCandidate("BBB", "Beta", 90),
	}}
	dex := &stubResolver{candidates: []TokenCandidate{
		namedCandidate("CCC", "Gamma", 70),
	}}

	agg := NewAggregator(registry, dex, DefaultScoring(), noopLogger())
	result, err := agg.Aggregate(context.Background(), "test")
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	want := []string{"BBB", "CCC", "AAA"}
	if len(result.Candidates) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(result.Candidates), len(want))
	}
	for i, symbol := range want {
		if result.Candidates[i].Symbol != symbol {
			t.Fatalf("position %d = %q, want %q", i, result.Candidates[i].Symbol, symbol)
		}
	}
	if result.AutoSelected {
		t.Fatal("multiple candidates must not auto-select")
	}
}

func TestAggregateDedupeKeepsHigherConfidence(t *testing.T) {
	higher := namedCandidate("UNI", "Uniswap", 90)
	higher.Source = SourceDexPair
	lower := namedCandidate("uni", "uniswap", 60)

	// Order of sources must not matter: the sort puts the higher-confidence
	// instance first either way.
	for i, pair := range [][2]*stubResolver{
		{{candidates: []TokenCandidate{lower}}, {candidates: []TokenCandidate{higher}}},
		{{candidates: []TokenCandidate{higher}}, {candidates: []TokenCandidate{lower}}},
	} {
		agg := NewAggregator(pair[0], pair[1], DefaultScoring(), noopLogger())
		result, err := agg.Aggregate(context.Background(), "uni")
		if err != nil {
			t.Fatalf("case %d: aggregate failed: %v", i, err)
		}
		if len(result.Candidates) != 1 {
			t.Fatalf("case %d: got %d candidates, want 1", i, len(result.Candidates))
		}
		if result.Candidates[0].Confidence != 90 {
			t.Fatalf("case %d: kept confidence %d, want 90", i, result.Candidates[0].Confidence)
		}
	}
}

func TestAggregateToleratesSourceFailure(t *testing.T) {
	registry := &stubResolver{err: errors.New("registry down")}
	dex := &stubResolver{candidates: []TokenCandidate{namedCandidate("UNI", "Uniswap", 70)}}

	agg := NewAggregator(registry, dex, DefaultScoring(), noopLogger())
	result, err := agg.Aggregate(context.Background(), "uni")
	if err != nil {
		t.Fatalf("one failed source must not fail the aggregate: %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("got %d candidates, want the surviving source's 1", len(result.Candidates))
	}
}

func TestAggregateTruncatesToMaxCandidates(t *testing.T) {
	many := make([]TokenCandidate, 0, 8)
	for i := 0; i < 8; i++ {
		many = append(many, namedCandidate(fmt.Sprintf("T%d", i), fmt.Sprintf("Token %d", i), 50+i))
	}
	registry := &stubResolver{candidates: many}

	agg := NewAggregator(registry, &stubResolver{}, DefaultScoring(), noopLogger())
	result, err := agg.Aggregate(context.Background(), "token")
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(result.Candidates) != DefaultScoring().MaxCandidates {
		t.Fatalf("got %d candidates, want %d", len(result.Candidates), DefaultScoring().MaxCandidates)
	}
	if result.Candidates[0].Symbol != "T7" {
		t.Fatalf("truncation must keep the top-ranked candidates, got %q first", result.Candidates[0].Symbol)
	}
}

func TestAggregateAutoSelect(t *testing.T) {
	cases := []struct {
		name       string
		confidence int
		want       bool
	}{
		{"above threshold", 90, true},
		{"at threshold", 80, false},
		{"below threshold", 60, false},
	}
	for _, tc := range cases {
		registry := &stubResolver{candidates: []TokenCandidate{namedCandidate("UNI", "Uniswap", tc.confidence)}}
		agg := NewAggregator(registry, &stubResolver{}, DefaultScoring(), noopLogger())
		result, err := agg.Aggregate(context.Background(), "uni")
		if err != nil {
			t.Fatalf("%s: aggregate failed: %v", tc.name, err)
		}
		if result.AutoSelected != tc.want {
			t.Fatalf("%s: autoSelected = %v, want %v", tc.name, result.AutoSelected, tc.want)
		}
	}
}
