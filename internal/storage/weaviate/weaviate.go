// ABOUTME: Weaviate backend for the vector store gateway
// ABOUTME: One class per collection with client-supplied vectors (vectorizer "none")
package weaviate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-openapi/strfmt"
	goweaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/harper/repoagent/internal/models"
	"github.com/harper/repoagent/internal/storage"
)

// Property names stored on every object
const (
	propPath    = "path"
	propStart   = "startLine"
	propEnd     = "endLine"
	propPreview = "preview"
)

var classProperties = []*wmodels.Property{
	{Name: propPath, DataType: []string{"text"}},
	{Name: propStart, DataType: []string{"int"}},
	{Name: propEnd, DataType: []string{"int"}},
	{Name: propPreview, DataType: []string{"text"}},
}

// Config holds connection settings
type Config struct {
	Host    string
	Scheme  string
	APIKey  string
	Timeout time.Duration
}

// Backend is a storage.Backend over a Weaviate server
type Backend struct {
	client *goweaviate.Client
}

// New creates a Weaviate backend
func New(cfg Config) (*Backend, error) {
	var authConf auth.Config
	if cfg.APIKey != "" {
		authConf = auth.ApiKey{Value: cfg.APIKey}
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}
	client, err := goweaviate.NewClient(goweaviate.Config{
		Host:       cfg.Host,
		Scheme:     scheme,
		AuthConfig: authConf,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}
	return &Backend{client: client}, nil
}

// Name implements storage.Backend
func (b *Backend) Name() string { return "weaviate" }

// ClassName maps a collection name onto a valid Weaviate class name. Names
// that need rewriting get a short hash of the original appended, so distinct
// collections never share a class.
func ClassName(collection string) string {
	var sb strings.Builder
	for i, r := range collection {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r) && r < unicode.MaxASCII:
			if i == 0 {
				r = unicode.ToUpper(r)
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	name := sb.String()
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		name = "C" + name
	}
	if name != collection {
		sum := sha256.Sum256([]byte(collection))
		name += "_" + hex.EncodeToString(sum[:4])
	}
	return name
}

// CollectionExists implements storage.Backend
func (b *Backend) CollectionExists(ctx context.Context, name string) (bool, error) {
	return b.client.Schema().ClassExistenceChecker().WithClassName(ClassName(name)).Do(ctx)
}

// CreateCollection implements storage.Backend
func (b *Backend) CreateCollection(ctx context.Context, c models.Collection) error {
	class := &wmodels.Class{
		Class:           ClassName(c.Name),
		Description:     fmt.Sprintf("repoagent chunks of %s (dim %d)", c.Name, c.Dimension),
		Properties:      classProperties,
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance": strings.ToLower(c.Distance),
		},
	}
	err := b.client.Schema().ClassCreator().WithClass(class).Do(ctx)
	if err != nil && storage.LooksLikeExists(err.Error()) {
		return fmt.Errorf("%w: %w", storage.ErrCollectionExists, err)
	}
	return err
}

// DeleteCollection implements storage.Backend
func (b *Backend) DeleteCollection(ctx context.Context, name string) error {
	exists, err := b.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return b.client.Schema().ClassDeleter().WithClassName(ClassName(name)).Do(ctx)
}

// Upsert implements storage.Backend. Objects carry stable ids, so a batch
// import overwrites previously stored chunks.
func (b *Backend) Upsert(ctx context.Context, name string, points []models.IndexedPoint) error {
	className := ClassName(name)
	objs := make([]*wmodels.Object, len(points))
	for i, p := range points {
		objs[i] = &wmodels.Object{
			ID:     strfmt.UUID(p.ID),
			Class:  className,
			Vector: toFloat32(p.Vector),
			Properties: map[string]interface{}{
				propPath:    p.Payload.Path,
				propStart:   p.Payload.Start,
				propEnd:     p.Payload.End,
				propPreview: p.Payload.Preview,
			},
		}
	}

	resp, err := b.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to send batch to Weaviate: %w", err)
	}
	return checkBatchErrors(resp)
}

// Search implements storage.Backend
func (b *Backend) Search(ctx context.Context, name string, vector []float64, k int) ([]models.RetrievedMatch, error) {
	className := ClassName(name)
	fields := []graphql.Field{
		{Name: propPath},
		{Name: propStart},
		{Name: propEnd},
		{Name: propPreview},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "distance"},
		}},
	}
	nearVector := b.client.GraphQL().NearVectorArgBuilder().WithVector(toFloat32(vector))

	res, err := b.client.GraphQL().Get().
		WithClassName(className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	if err := checkGraphQLErrors(res); err != nil {
		return nil, err
	}
	return parseSearch(res.Data, className)
}

// Count implements storage.Backend
func (b *Backend) Count(ctx context.Context, name string) (int, error) {
	className := ClassName(name)
	res, err := b.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate: %w", err)
	}
	if err := checkGraphQLErrors(res); err != nil {
		return 0, err
	}
	return parseCount(res.Data, className)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func checkGraphQLErrors(res *wmodels.GraphQLResponse) error {
	if res == nil {
		return fmt.Errorf("received empty response from Weaviate")
	}
	if len(res.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		if e != nil {
			msgs = append(msgs, e.Message)
		}
	}
	return fmt.Errorf("weaviate graphql: %s", strings.Join(msgs, "; "))
}

func checkBatchErrors(resp []wmodels.ObjectsGetResponse) error {
	var msgs []string
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				msgs = append(msgs, fmt.Sprintf("%s: %s", r.ID, e.Message))
			}
		}
	}
	if len(msgs) > 0 {
		return fmt.Errorf("weaviate batch: %d object errors: %s", len(msgs), strings.Join(msgs, "; "))
	}
	return nil
}

// parseSearch projects a GraphQL Get response onto matches. Scores are
// cosine similarities, i.e. 1 - distance.
func parseSearch(data map[string]wmodels.JSONObject, className string) ([]models.RetrievedMatch, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid response format: 'Get' field not found or has wrong type")
	}
	items, ok := get[className].([]interface{})
	if !ok {
		if get[className] == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid response format: class %s has wrong type", className)
	}

	matches := make([]models.RetrievedMatch, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		m := models.RetrievedMatch{
			Path:    stringValue(obj, propPath),
			Start:   int(floatValue(obj, propStart)),
			End:     int(floatValue(obj, propEnd)),
			Preview: stringValue(obj, propPreview),
		}
		if add, ok := obj["_additional"].(map[string]interface{}); ok {
			m.Score = 1 - floatValue(add, "distance")
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func parseCount(data map[string]wmodels.JSONObject, className string) (int, error) {
	agg, ok := data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("invalid response format: 'Aggregate' field not found or has wrong type")
	}
	groups, ok := agg[className].([]interface{})
	if !ok || len(groups) == 0 {
		return 0, nil
	}
	first, ok := groups[0].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("invalid response format: aggregate group has wrong type")
	}
	meta, ok := first["meta"].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("invalid response format: 'meta' field not found")
	}
	return int(floatValue(meta, "count")), nil
}

func stringValue(obj map[string]interface{}, key string) string {
	if val, ok := obj[key].(string); ok {
		return val
	}
	return ""
}

func floatValue(obj map[string]interface{}, key string) float64 {
	if val, ok := obj[key].(float64); ok {
		return val
	}
	return 0
}
