// ABOUTME: Tests for multi-query topic aggregation
// ABOUTME: Verifies hit counting, sample capping, ranking and vocabularies
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/harper/repoagent/internal/models"
)

// scriptedSearcher answers each query with the matches registered for the
// term it contains
type scriptedSearcher struct {
	byTerm  map[string][]models.RetrievedMatch
	queries []string
	ks      []int
	err     error
}

func (s *scriptedSearcher) Retrieve(ctx context.Context, collection, model, query string, k int) ([]models.RetrievedMatch, error) {
	s.queries = append(s.queries, query)
	s.ks = append(s.ks, k)
	if s.err != nil {
		return nil, s.err
	}
	for term, matches := range s.byTerm {
		if strings.HasSuffix(query, ": "+term) {
			return matches, nil
		}
	}
	return nil, nil
}

func hit(path string, start int) models.RetrievedMatch {
	return models.RetrievedMatch{Path: path, Start: start, End: start + 9, Preview: path}
}

func TestAggregate_Ranking(t *testing.T) {
	s := &scriptedSearcher{byTerm: map[string][]models.RetrievedMatch{
		"t1": {hit("b.ts", 1), hit("a.ts", 1)},
		"t2": {hit("a.ts", 11)},
		"t3": {hit("a.ts", 21)},
	}}
	v := Vocabulary{Name: "test", Template: "q: %s", Terms: []string{"t1", "t2", "t3", "t4", "t5"}, K: 5}

	hits, err := NewAggregator(s, "code", "m", quietLogger()).Aggregate(context.Background(), v, 0)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d files, want 2", len(hits))
	}
	if hits[0].Path != "a.ts" || hits[0].Count != 3 {
		t.Errorf("first = %s (%d), want a.ts (3)", hits[0].Path, hits[0].Count)
	}
	if hits[1].Path != "b.ts" || hits[1].Count != 1 {
		t.Errorf("second = %s (%d), want b.ts (1)", hits[1].Path, hits[1].Count)
	}
	if len(s.queries) != 5 || s.queries[0] != "q: t1" {
		t.Errorf("queries = %v", s.queries)
	}
	if s.ks[0] != 5 {
		t.Errorf("k = %d, want vocabulary K 5", s.ks[0])
	}
}

func TestAggregate_TiesKeepFirstSeen(t *testing.T) {
	s := &scriptedSearcher{byTerm: map[string][]models.RetrievedMatch{
		"x": {hit("z.ts", 1), hit("m.ts", 1), hit("a.ts", 1)},
	}}
	v := Vocabulary{Template: "q: %s", Terms: []string{"x"}}

	hits, err := NewAggregator(s, "code", "m", quietLogger()).Aggregate(context.Background(), v, 7)
	if err != nil {
		t.Fatal(err)
	}
	order := []string{hits[0].Path, hits[1].Path, hits[2].Path}
	if strings.Join(order, ",") != "z.ts,m.ts,a.ts" {
		t.Errorf("order = %v", order)
	}
	if s.ks[0] != 7 {
		t.Errorf("k = %d, want explicit 7", s.ks[0])
	}
}

func TestAggregate_SamplesCapped(t *testing.T) {
	var many []models.RetrievedMatch
	for i := range 5 {
		many = append(many, hit("a.ts", i*10+1))
	}
	s := &scriptedSearcher{byTerm: map[string][]models.RetrievedMatch{"x": many}}

	hits, err := NewAggregator(s, "code", "m", quietLogger()).
		Aggregate(context.Background(), Vocabulary{Template: "q: %s", Terms: []string{"x"}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Count != 5 {
		t.Errorf("Count = %d, want 5", hits[0].Count)
	}
	if len(hits[0].Samples) != MaxTopicSample {
		t.Errorf("samples = %d, want %d", len(hits[0].Samples), MaxTopicSample)
	}
	if hits[0].Samples[0].Start != 1 {
		t.Errorf("first sample starts at %d, want 1", hits[0].Samples[0].Start)
	}
}

func TestAggregate_FileCap(t *testing.T) {
	var wide []models.RetrievedMatch
	for i := range MaxTopicFiles + 15 {
		wide = append(wide, hit(fmt.Sprintf("f%02d.ts", i), 1))
	}
	s := &scriptedSearcher{byTerm: map[string][]models.RetrievedMatch{"x": wide}}

	hits, err := NewAggregator(s, "code", "m", quietLogger()).
		Aggregate(context.Background(), Vocabulary{Template: "q: %s", Terms: []string{"x"}}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != MaxTopicFiles {
		t.Errorf("got %d files, want %d", len(hits), MaxTopicFiles)
	}
}

func TestAggregate_QueryFailure(t *testing.T) {
	s := &scriptedSearcher{err: errors.New("down")}
	_, err := NewAggregator(s, "code", "m", quietLogger()).Aggregate(context.Background(), CustomVocabulary([]string{"a"}), 0)
	if err == nil {
		t.Error("Aggregate() should fail when a query fails")
	}
}

func TestVocabularies(t *testing.T) {
	caching, ok := LookupVocabulary("Caching")
	if !ok {
		t.Fatal("caching vocabulary missing")
	}
	if len(caching.Terms) != 19 {
		t.Errorf("caching has %d terms, want 19", len(caching.Terms))
	}
	if got := fmt.Sprintf(caching.Template, "ttl"); got != "Find caching usage related to: ttl" {
		t.Errorf("template = %q", got)
	}
	if caching.K != 20 {
		t.Errorf("K = %d, want 20", caching.K)
	}

	names := VocabularyNames()
	if strings.Join(names, ",") != "auth,caching,database,logging" {
		t.Errorf("VocabularyNames() = %v", names)
	}

	if _, ok := LookupVocabulary("nope"); ok {
		t.Error("LookupVocabulary(nope) should fail")
	}

	custom := CustomVocabulary([]string{" webhook ", "", "webhook", "queue"})
	if strings.Join(custom.Terms, ",") != "webhook,queue" {
		t.Errorf("custom terms = %v", custom.Terms)
	}
}
