package embed

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"
)

// DefaultEmbeddingCacheSize is the default number of embeddings kept in the
// in-process LRU layer.
const DefaultEmbeddingCacheSize = 1000

var embeddingBucket = []byte("embeddings")

// CachedEmbedder wraps an Embedder with a two-layer cache: an in-process LRU
// for hot keys and an optional persistent bbolt-backed layer that survives
// process restarts. Cache entries are content-addressed by
// emb:{model_id}:{max_seq_length}:{sha256(text)} and carry a TTL; expired or
// missing entries fall through to recomputation rather than failing the
// request.
type CachedEmbedder struct {
	inner      Embedder
	lru        *lru.Cache[string, []byte]
	persistent *bolt.DB
	ttl        time.Duration
}

// NewCachedEmbedder creates a cached embedder wrapping inner. persistent may
// be nil, in which case only the in-process LRU layer is used.
func NewCachedEmbedder(inner Embedder, lruSize int, persistent *bolt.DB, ttl time.Duration) (*CachedEmbedder, error) {
	if lruSize <= 0 {
		lruSize = DefaultEmbeddingCacheSize
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	cache, err := lru.New[string, []byte](lruSize)
	if err != nil {
		return nil, fmt.Errorf("create embedding lru: %w", err)
	}

	if persistent != nil {
		err := persistent.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(embeddingBucket)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("create embedding cache bucket: %w", err)
		}
	}

	return &CachedEmbedder{inner: inner, lru: cache, persistent: persistent, ttl: ttl}, nil
}

// cacheKey builds the content-addressed cache key for a text.
func (c *CachedEmbedder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%d:%s", c.inner.ModelID(), c.inner.MaxSeqLength(), hex.EncodeToString(hash[:]))
}

type cacheEntry struct {
	ExpiresAt int64
	Vector    []float32
}

func encodeCacheEntry(e cacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, e.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, int32(len(e.Vector))); err != nil {
		return nil, err
	}
	for _, f := range e.Vector {
		if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
			return nil, err
		}
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}

func decodeCacheEntry(data []byte) (cacheEntry, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return cacheEntry{}, err
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return cacheEntry{}, err
	}

	r := bytes.NewReader(raw)
	var e cacheEntry
	if err := binary.Read(r, binary.BigEndian, &e.ExpiresAt); err != nil {
		return cacheEntry{}, err
	}
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return cacheEntry{}, err
	}
	e.Vector = make([]float32, n)
	for i := range e.Vector {
		if err := binary.Read(r, binary.BigEndian, &e.Vector[i]); err != nil {
			return cacheEntry{}, err
		}
	}
	return e, nil
}

// get checks the LRU layer, then falls back to the persistent layer, and
// silently treats any cache error or expiry as a miss.
func (c *CachedEmbedder) get(key string) ([]float32, bool) {
	if raw, ok := c.lru.Get(key); ok {
		entry, err := decodeCacheEntry(raw)
		if err == nil && !expired(entry) {
			return entry.Vector, true
		}
	}

	if c.persistent == nil {
		return nil, false
	}

	var raw []byte
	_ = c.persistent.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(embeddingBucket).Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if raw == nil {
		return nil, false
	}

	entry, err := decodeCacheEntry(raw)
	if err != nil || expired(entry) {
		return nil, false
	}

	c.lru.Add(key, raw)
	return entry.Vector, true
}

func expired(e cacheEntry) bool {
	return time.Now().UnixNano() > e.ExpiresAt
}

// put writes an embedding to both cache layers. Persistent write failures
// are swallowed: the cache is always a performance optimization, never a
// correctness dependency.
func (c *CachedEmbedder) put(key string, vec []float32) {
	entry := cacheEntry{ExpiresAt: time.Now().Add(c.ttl).UnixNano(), Vector: vec}
	raw, err := encodeCacheEntry(entry)
	if err != nil {
		return
	}

	c.lru.Add(key, raw)

	if c.persistent == nil {
		return
	}
	_ = c.persistent.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(embeddingBucket).Put([]byte(key), raw)
	})
}

// Embed returns a cached embedding if present, otherwise computes and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.put(key, vec)
	return vec, nil
}

// EmbedBatch embeds multiple texts, probing the cache for each before
// submitting the remainder as a single batch, and preserves input order in
// the result.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	missIndices := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.get(key); ok {
			results[i] = vec
		} else {
			missIndices = append(missIndices, i)
			missTexts = append(missTexts, text)
		}
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	computed, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIndices {
		results[idx] = computed[j]
		c.put(c.cacheKey(texts[idx]), computed[j])
	}

	return results, nil
}

// Dimensions passes through to the inner embedder.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelID passes through to the inner embedder.
func (c *CachedEmbedder) ModelID() string { return c.inner.ModelID() }

// MaxSeqLength passes through to the inner embedder.
func (c *CachedEmbedder) MaxSeqLength() int { return c.inner.MaxSeqLength() }

// Available passes through to the inner embedder.
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close closes the inner embedder. The persistent cache handle is owned by
// the caller and is not closed here.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }

// Inner returns the wrapped embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }
