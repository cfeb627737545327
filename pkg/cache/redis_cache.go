package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"ai-examgen-be/pkg/store"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// TTLs mirror the expected churn of each key family.
const (
	embeddingTTL = 7 * 24 * time.Hour
	ceScoreTTL   = 24 * time.Hour
	retrievalTTL = time.Hour
	historyTTL   = 30 * 24 * time.Hour
)

// TwoTierCache is an in-process LRU-ish tier (fast path) backed by Redis
// (slow path). Redis may be entirely absent: every operation fails open to a
// miss, never to an error surfaced to the caller.
type TwoTierCache struct {
	client *redis.Client // nil when the backend is unavailable
	l1     *gocache.Cache

	l1Hits   atomic.Int64
	l1Misses atomic.Int64
}

// New builds the cache around an already-pinged client; pass nil to run in
// memory-only mode.
func New(client *redis.Client) *TwoTierCache {
	return &TwoTierCache{
		client: client,
		l1:     gocache.New(1*time.Hour, 10*time.Minute),
	}
}

func (c *TwoTierCache) Available() bool {
	return c.client != nil
}

func md5Key(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embedding cache

func (c *TwoTierCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	key := "emb:" + md5Key(text)

	if x, found := c.l1.Get(key); found {
		c.l1Hits.Add(1)
		return x.([]float32), true
	}
	c.l1Misses.Add(1)

	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var emb []float32
	if err := json.Unmarshal([]byte(raw), &emb); err != nil {
		return nil, false
	}
	c.l1.Set(key, emb, gocache.DefaultExpiration)
	return emb, true
}

func (c *TwoTierCache) SetEmbedding(ctx context.Context, text string, emb []float32) {
	key := "emb:" + md5Key(text)
	c.l1.Set(key, emb, gocache.DefaultExpiration)

	if c.client == nil {
		return
	}
	if data, err := json.Marshal(emb); err == nil {
		c.client.Set(ctx, key, data, embeddingTTL)
	}
}

// GetEmbeddingsBatch returns a slice parallel to texts; nil entries are misses.
func (c *TwoTierCache) GetEmbeddingsBatch(ctx context.Context, texts []string) [][]float32 {
	results := make([][]float32, len(texts))

	var missKeys []string
	var missIdx []int
	for i, text := range texts {
		key := "emb:" + md5Key(text)
		if x, found := c.l1.Get(key); found {
			c.l1Hits.Add(1)
			results[i] = x.([]float32)
			continue
		}
		c.l1Misses.Add(1)
		missKeys = append(missKeys, key)
		missIdx = append(missIdx, i)
	}

	if c.client == nil || len(missKeys) == 0 {
		return results
	}

	vals, err := c.client.MGet(ctx, missKeys...).Result()
	if err != nil {
		return results
	}
	for j, val := range vals {
		s, ok := val.(string)
		if !ok {
			continue
		}
		var emb []float32
		if err := json.Unmarshal([]byte(s), &emb); err != nil {
			continue
		}
		c.l1.Set(missKeys[j], emb, gocache.DefaultExpiration)
		results[missIdx[j]] = emb
	}
	return results
}

func (c *TwoTierCache) SetEmbeddingsBatch(ctx context.Context, embs map[string][]float32) {
	if len(embs) == 0 {
		return
	}

	var pipe redis.Pipeliner
	if c.client != nil {
		pipe = c.client.Pipeline()
	}
	for text, emb := range embs {
		key := "emb:" + md5Key(text)
		c.l1.Set(key, emb, gocache.DefaultExpiration)
		if pipe != nil {
			if data, err := json.Marshal(emb); err == nil {
				pipe.Set(ctx, key, data, embeddingTTL)
			}
		}
	}
	if pipe != nil {
		pipe.Exec(ctx)
	}
}

// Cross-encoder score cache

func ceKey(query, doc string) string {
	return "ce:" + md5Key(query+"|||"+doc)
}

func (c *TwoTierCache) GetCEScore(ctx context.Context, query, doc string) (float64, bool) {
	key := ceKey(query, doc)
	if x, found := c.l1.Get(key); found {
		c.l1Hits.Add(1)
		return x.(float64), true
	}
	c.l1Misses.Add(1)

	if c.client == nil {
		return 0, false
	}
	score, err := c.client.Get(ctx, key).Float64()
	if err != nil {
		return 0, false
	}
	c.l1.Set(key, score, gocache.DefaultExpiration)
	return score, true
}

func (c *TwoTierCache) SetCEScoresBatch(ctx context.Context, query string, docs []string, scores []float64) {
	if len(docs) == 0 || len(docs) != len(scores) {
		return
	}

	var pipe redis.Pipeliner
	if c.client != nil {
		pipe = c.client.Pipeline()
	}
	for i, doc := range docs {
		key := ceKey(query, doc)
		c.l1.Set(key, scores[i], gocache.DefaultExpiration)
		if pipe != nil {
			pipe.Set(ctx, key, scores[i], ceScoreTTL)
		}
	}
	if pipe != nil {
		pipe.Exec(ctx)
	}
}

// Retrieval result cache

type CachedRetrieval struct {
	Chunks   []string        `json:"chunks"`
	ChunkIDs []store.ChunkID `json:"chunk_ids"`
}

func retrievalKey(scope store.Scope, queryText string) string {
	topic := "0"
	if scope.TopicID != nil {
		topic = scope.TopicID.String()
	}
	return "rag:" + scope.SubjectID.String() + ":" + topic + ":" + md5Key(queryText)[:12]
}

func (c *TwoTierCache) GetCachedRetrieval(ctx context.Context, scope store.Scope, queryText string) (*CachedRetrieval, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, retrievalKey(scope, queryText)).Result()
	if err != nil {
		return nil, false
	}
	var cached CachedRetrieval
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

func (c *TwoTierCache) CacheRetrieval(ctx context.Context, scope store.Scope, queryText string, result *CachedRetrieval) {
	if c.client == nil {
		return
	}
	if data, err := json.Marshal(result); err == nil {
		c.client.Set(ctx, retrievalKey(scope, queryText), data, retrievalTTL)
	}
}

// InvalidateRetrieval drops all cached retrievals for a subject, e.g. after
// the underlying material changes.
func (c *TwoTierCache) InvalidateRetrieval(ctx context.Context, subjectID string) {
	if c.client == nil {
		return
	}
	pattern := "rag:" + subjectID + ":*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			c.client.Del(ctx, keys...)
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// Question embedding history (novelty guard backing)

func (c *TwoTierCache) AddQuestionEmbedding(ctx context.Context, scopeKey, questionID string, emb []float32) {
	if c.client == nil {
		return
	}
	if data, err := json.Marshal(emb); err == nil {
		c.client.Set(ctx, "qemb:"+scopeKey+":"+questionID, data, historyTTL)
	}
}

func (c *TwoTierCache) GetQuestionEmbeddings(ctx context.Context, scopeKey string) [][]float32 {
	if c.client == nil {
		return nil
	}
	var embs [][]float32
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, "qemb:"+scopeKey+":*", 100).Result()
		if err != nil {
			return embs
		}
		if len(keys) > 0 {
			vals, err := c.client.MGet(ctx, keys...).Result()
			if err == nil {
				for _, val := range vals {
					if s, ok := val.(string); ok {
						var emb []float32
						if json.Unmarshal([]byte(s), &emb) == nil {
							embs = append(embs, emb)
						}
					}
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return embs
		}
	}
}

// Stats

type Stats struct {
	RedisAvailable bool    `json:"redis_available"`
	L1Size         int     `json:"l1_size"`
	L1HitRate      float64 `json:"l1_hit_rate"`
}

func (c *TwoTierCache) GetStats() Stats {
	hits := c.l1Hits.Load()
	misses := c.l1Misses.Load()
	total := hits + misses

	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		RedisAvailable: c.client != nil,
		L1Size:         c.l1.ItemCount(),
		L1HitRate:      rate,
	}
}

// Generation lock

// ErrLockHeld is returned when another run holds the per-scope lock.
var ErrLockHeld = errors.New("generation lock already held")

// GenerationLock serializes generation runs per subject. When Redis is
// available the lock is shared across processes via SET NX EX; otherwise an
// in-process table with the same TTL lease keeps the single-process
// guarantee. A held lock is a hard failure for the caller, never a silent
// pass-through.
type GenerationLock struct {
	client *redis.Client
	local  *gocache.Cache
	ttl    time.Duration
}

func NewGenerationLock(client *redis.Client, ttl time.Duration) *GenerationLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &GenerationLock{
		client: client,
		local:  gocache.New(ttl, time.Minute),
		ttl:    ttl,
	}
}

func (l *GenerationLock) Acquire(ctx context.Context, subjectID, runID string) error {
	key := "lock:gen:" + subjectID

	// Local table first: it also covers the redis-absent case and self-heals
	// through its expiration.
	if err := l.local.Add(key, runID, l.ttl); err != nil {
		return ErrLockHeld
	}

	if l.client == nil {
		return nil
	}
	acquired, err := l.client.SetNX(ctx, key, runID, l.ttl).Result()
	if err != nil {
		// Backend down: the local lease still protects this process.
		return nil
	}
	if !acquired {
		l.local.Delete(key)
		return ErrLockHeld
	}
	return nil
}

func (l *GenerationLock) Release(ctx context.Context, subjectID string) {
	key := "lock:gen:" + subjectID
	l.local.Delete(key)
	if l.client != nil {
		l.client.Del(ctx, key)
	}
}
