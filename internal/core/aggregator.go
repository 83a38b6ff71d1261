// ABOUTME: Aggregator runs a battery of topic queries and ranks files by hit count
// ABOUTME: Ships named vocabularies (caching, auth, logging, database) plus ad-hoc terms
package core

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/models"
)

// Aggregation bounds
const (
	MaxTopicFiles  = 40
	MaxTopicSample = 3
	DefaultTopicK  = 20
)

// Vocabulary is a set of topic phrases, each queried through Template
type Vocabulary struct {
	Name     string
	Template string
	Terms    []string
	K        int
}

var vocabularies = map[string]Vocabulary{
	"caching": {
		Name:     "caching",
		Template: "Find caching usage related to: %s",
		Terms: []string{
			"cache", "caching", "ttl", "expiration", "expires", "max-age",
			"redis", "ioredis", "memcached", "lru", "memoize", "memoization",
			"etag", "cache-control", "revalidate", "swr", "staleWhileRevalidate",
			"store", "in-memory cache",
		},
		K: DefaultTopicK,
	},
	"auth": {
		Name:     "auth",
		Template: "Find authentication or authorization code related to: %s",
		Terms: []string{
			"login", "logout", "session", "jwt", "token", "oauth", "password",
			"bcrypt", "api key", "permission", "role", "middleware auth", "cookie",
		},
		K: DefaultTopicK,
	},
	"logging": {
		Name:     "logging",
		Template: "Find logging or observability code related to: %s",
		Terms: []string{
			"logger", "log level", "debug log", "console.log", "structured logging",
			"trace", "span", "metrics", "error reporting", "audit log",
		},
		K: DefaultTopicK,
	},
	"database": {
		Name:     "database",
		Template: "Find database access code related to: %s",
		Terms: []string{
			"sql query", "transaction", "migration", "schema", "orm", "connection pool",
			"insert", "update", "select", "index", "prisma", "postgres", "sqlite", "mongodb",
		},
		K: DefaultTopicK,
	},
}

// LookupVocabulary returns a built-in vocabulary by name
func LookupVocabulary(name string) (Vocabulary, bool) {
	v, ok := vocabularies[strings.ToLower(name)]
	return v, ok
}

// VocabularyNames lists the built-in vocabularies in sorted order
func VocabularyNames() []string {
	names := make([]string, 0, len(vocabularies))
	for name := range vocabularies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CustomVocabulary builds an ad-hoc vocabulary from terms
func CustomVocabulary(terms []string) Vocabulary {
	var clean []string
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" && !slices.Contains(clean, t) {
			clean = append(clean, t)
		}
	}
	return Vocabulary{
		Name:     "custom",
		Template: "Find code related to: %s",
		Terms:    clean,
		K:        DefaultTopicK,
	}
}

// Aggregator ranks files by how many topic queries surface them
type Aggregator struct {
	searcher   Searcher
	collection string
	model      string
	logger     *log.Logger
}

// NewAggregator creates an Aggregator querying collection with model
func NewAggregator(searcher Searcher, collection, model string, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{searcher: searcher, collection: collection, model: model, logger: logger}
}

// Aggregate queries every term of v and returns files ordered by descending
// hit count, ties kept in first-seen order. k <= 0 uses the vocabulary's K.
func (a *Aggregator) Aggregate(ctx context.Context, v Vocabulary, k int) ([]models.TopicHit, error) {
	if k <= 0 {
		k = v.K
	}
	if k <= 0 {
		k = DefaultTopicK
	}

	index := map[string]int{}
	var hits []models.TopicHit

	for _, term := range v.Terms {
		query := fmt.Sprintf(v.Template, term)
		matches, err := a.searcher.Retrieve(ctx, a.collection, a.model, query, k)
		if err != nil {
			return nil, fmt.Errorf("topic query %q failed: %w", term, err)
		}
		a.logger.Debug("topic query", "term", term, "matches", len(matches))

		for _, m := range matches {
			i, ok := index[m.Path]
			if !ok {
				i = len(hits)
				index[m.Path] = i
				hits = append(hits, models.TopicHit{Path: m.Path})
			}
			hits[i].Count++
			if len(hits[i].Samples) < MaxTopicSample {
				hits[i].Samples = append(hits[i].Samples, m)
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Count > hits[j].Count
	})
	if len(hits) > MaxTopicFiles {
		hits = hits[:MaxTopicFiles]
	}
	return hits, nil
}
