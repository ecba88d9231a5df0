package telemetry

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketQueryTypes   = []byte("query_type_stats")
	bucketQueryTerms   = []byte("query_terms")
	bucketZeroResults  = []byte("zero_result_queries")
	bucketLatencyStats = []byte("query_latency_stats")
)

// BoltMetricsStore implements QueryMetricsStore using an embedded bbolt
// database, so telemetry survives process restarts without a separate
// server dependency.
type BoltMetricsStore struct {
	db *bolt.DB
}

// NewBoltMetricsStore opens (creating if necessary) a bbolt-backed metrics
// store at path and ensures its buckets exist.
func NewBoltMetricsStore(path string) (*BoltMetricsStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open telemetry store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketQueryTypes, bucketQueryTerms, bucketZeroResults, bucketLatencyStats} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltMetricsStore{db: db}, nil
}

// SaveQueryTypeCounts upserts daily query type counts by incrementing
// existing values keyed by "date|query_type".
func (s *BoltMetricsStore) SaveQueryTypeCounts(date string, counts map[QueryType]int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketQueryTypes)
		for qt, delta := range counts {
			key := []byte(date + "|" + string(qt))
			current := decodeInt64(b.Get(key))
			if err := b.Put(key, encodeInt64(current+delta)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetQueryTypeCounts retrieves summed counts for dates in [from, to].
func (s *BoltMetricsStore) GetQueryTypeCounts(from, to string) (map[QueryType]int64, error) {
	counts := make(map[QueryType]int64)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketQueryTypes).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			date, qt, ok := splitKey(string(k))
			if !ok || date < from || date > to {
				continue
			}
			counts[QueryType(qt)] += decodeInt64(v)
		}
		return nil
	})
	return counts, err
}

// UpsertTermCounts adds delta counts to term frequencies.
func (s *BoltMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketQueryTerms)
		for term, delta := range terms {
			key := []byte(term)
			current := decodeInt64(b.Get(key))
			if err := b.Put(key, encodeInt64(current+delta)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTopTerms returns the limit most frequent terms.
func (s *BoltMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	var terms []TermCount
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketQueryTerms).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			terms = append(terms, TermCount{Term: string(k), Count: decodeInt64(v)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(terms, func(i, j int) bool { return terms[i].Count > terms[j].Count })
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	return terms, nil
}

// AddZeroResultQuery appends a query to the zero-result log, trimming to
// the most recent 100 entries.
func (s *BoltMetricsStore) AddZeroResultQuery(query string, timestamp time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketZeroResults)

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry := zeroResultEntry{Query: query, Timestamp: timestamp}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := b.Put(encodeInt64(int64(seq)), data); err != nil {
			return err
		}

		return trimOldest(b, 100)
	})
}

// GetZeroResultQueries returns the limit most recent zero-result queries,
// newest first.
func (s *BoltMetricsStore) GetZeroResultQueries(limit int) ([]string, error) {
	var queries []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketZeroResults).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry zeroResultEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			queries = append(queries, entry.Query)
			if limit > 0 && len(queries) >= limit {
				break
			}
		}
		return nil
	})
	return queries, err
}

// SaveLatencyCounts upserts daily latency histogram counts.
func (s *BoltMetricsStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLatencyStats)
		for bucket, delta := range counts {
			key := []byte(date + "|" + string(bucket))
			current := decodeInt64(b.Get(key))
			if err := b.Put(key, encodeInt64(current+delta)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetLatencyCounts retrieves summed latency counts for dates in [from, to].
func (s *BoltMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	counts := make(map[LatencyBucket]int64)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLatencyStats).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			date, bucket, ok := splitKey(string(k))
			if !ok || date < from || date > to {
				continue
			}
			counts[LatencyBucket(bucket)] += decodeInt64(v)
		}
		return nil
	})
	return counts, err
}

// Close closes the underlying bbolt database.
func (s *BoltMetricsStore) Close() error {
	return s.db.Close()
}

type zeroResultEntry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

func encodeInt64(n int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func splitKey(key string) (prefix, suffix string, ok bool) {
	idx := bytes.IndexByte([]byte(key), '|')
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}

// trimOldest deletes entries beyond the most recent max, assuming keys are
// monotonically increasing sequence numbers.
func trimOldest(b *bolt.Bucket, max int) error {
	total := b.Stats().KeyN
	if total <= max {
		return nil
	}

	toDelete := total - max
	c := b.Cursor()
	deleted := 0
	for k, _ := c.First(); k != nil && deleted < toDelete; k, _ = c.Next() {
		if err := b.Delete(k); err != nil {
			return err
		}
		deleted++
	}
	return nil
}
