package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Embedder turns texts into embedding vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Document is one indexed passage.
type Document struct {
	ID   string
	Text string
}

// VectorStore is a scope-partitioned vector index on Redis. Each scope holds
// a set of document keys plus one hash per document (text and embedding).
// Scopes come in two flavors: transient per-lookup scopes that are deleted
// after a single augmentation, and durable per-user scopes that accumulate
// story history for recommendations.
type VectorStore struct {
	rdb           redis.UniversalClient
	embedder      Embedder
	retryAttempts uint64
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewVectorStore creates a VectorStore. retryAttempts bounds the
// exponential-backoff retry applied to index setup and document insertion on
// transient connection errors.
func NewVectorStore(rdb redis.UniversalClient, embedder Embedder, retryAttempts uint64, retryInterval time.Duration, logger *zap.Logger) *VectorStore {
	if retryAttempts == 0 {
		retryAttempts = 3
	}
	if retryInterval <= 0 {
		retryInterval = time.Second
	}
	return &VectorStore{
		rdb:           rdb,
		embedder:      embedder,
		retryAttempts: retryAttempts,
		retryInterval: retryInterval,
		logger:        logger.Named("vector_store"),
	}
}

func scopeSetKey(scope string) string { return "vec:" + scope + ":ids" }
func docKey(scope, id string) string  { return "vec:" + scope + ":doc:" + id }

// EnsureIndex prepares a scope for writes. Transient connection errors are
// retried with bounded exponential backoff; anything else fails immediately.
func (s *VectorStore) EnsureIndex(ctx context.Context, scope string) error {
	return s.withRetry(ctx, "ensure index", func() error {
		// Touching the scope set is enough; it doubles as a connectivity probe.
		return s.rdb.SAdd(ctx, scopeSetKey(scope), "__init__").Err()
	})
}

// AddDocuments embeds and stores docs under scope. The embedding call is not
// retried (a model rejection is not an infrastructure blip); the Redis writes
// are, with the same bounded backoff as EnsureIndex.
func (s *VectorStore) AddDocuments(ctx context.Context, scope string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}

	return s.withRetry(ctx, "add documents", func() error {
		pipe := s.rdb.TxPipeline()
		for i, d := range docs {
			encoded, err := json.Marshal(vectors[i])
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to encode vector: %w", err))
			}
			pipe.HSet(ctx, docKey(scope, d.ID), "text", d.Text, "vector", string(encoded))
			pipe.SAdd(ctx, scopeSetKey(scope), d.ID)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// Query embeds the query text and returns the topK most similar passages in
// descending similarity order. An empty result means the scope holds no
// documents.
func (s *VectorStore) Query(ctx context.Context, scope, query string, topK int) ([]string, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVec := vectors[0]

	ids, err := s.rdb.SMembers(ctx, scopeSetKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scope %q: %w", scope, err)
	}

	type scored struct {
		text  string
		score float64
	}
	candidates := make([]scored, 0, len(ids))
	for _, id := range ids {
		if id == "__init__" {
			continue
		}
		fields, err := s.rdb.HGetAll(ctx, docKey(scope, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read document %q: %w", id, err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(fields["vector"]), &vec); err != nil {
			s.logger.Warn("Skipping document with undecodable vector",
				zap.String("scope", scope), zap.String("id", id))
			continue
		}
		candidates = append(candidates, scored{text: fields["text"], score: cosineSimilarity(queryVec, vec)})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.text
	}
	return passages, nil
}

// DeleteAll removes every document in scope along with the scope set.
func (s *VectorStore) DeleteAll(ctx context.Context, scope string) error {
	ids, err := s.rdb.SMembers(ctx, scopeSetKey(scope)).Result()
	if err != nil {
		return fmt.Errorf("failed to list scope %q for deletion: %w", scope, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id == "__init__" {
			continue
		}
		keys = append(keys, docKey(scope, id))
	}
	keys = append(keys, scopeSetKey(scope))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete scope %q: %w", scope, err)
	}
	return nil
}

// withRetry runs op with bounded exponential backoff, retrying only
// transient connection errors.
func (s *VectorStore) withRetry(ctx context.Context, name string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, s.retryAttempts-1), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !isTransientConnErr(err) {
			return backoff.Permanent(err)
		}
		s.logger.Warn("Transient index error, will retry",
			zap.String("op", name), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, policy)
	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// isTransientConnErr distinguishes infrastructure blips (worth a retry) from
// permanent failures.
func isTransientConnErr(err error) bool {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, redis.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
