package graphstore

import (
	"fmt"
	"time"

	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/knowledgeengine/core/internal/config"
	"github.com/knowledgeengine/core/internal/errors"
)

// maxWalkDepth bounds the variable-length Cypher pattern Walk builds. Depth
// cannot be passed as a query parameter in a `*1..N` pattern, so it is
// substituted as a literal after being clamped to this bound — the only
// place in the store where query text is assembled per call.
const maxWalkDepth = 5

// Neo4jStore implements Store against a Neo4j property graph with an
// online vector index over ContextChunk.embedding. Nodes are labeled
// ContextChunk, Document, and Intent; ContextChunk carries PART_OF edges
// to its Document and DETAILS edges to any Intent it mentions.
type Neo4jStore struct {
	driver          neo4j.DriverWithContext
	database        string
	vectorIndexName string
	maxWalkDepth    int
	breaker         *errors.CircuitBreaker
}

// NewNeo4jStore opens a driver against cfg.URI and verifies connectivity.
// The connection pool is bounded by cfg.ConnectionPoolSize and acquired
// with cfg.AcquireTimeoutSeconds, matching the shared-resource bounds the
// engine requires of its store.
func NewNeo4jStore(ctx context.Context, cfg config.StoreConfig) (*Neo4jStore, error) {
	poolSize := cfg.ConnectionPoolSize
	if poolSize <= 0 {
		poolSize = 50
	}
	acquireTimeout := time.Duration(cfg.AcquireTimeoutSeconds) * time.Second
	if acquireTimeout <= 0 {
		acquireTimeout = 60 * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = poolSize
			c.ConnectionAcquisitionTimeout = acquireTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	indexName := cfg.VectorIndexName
	if indexName == "" {
		indexName = "chunk_embedding_idx"
	}

	depth := cfg.MaxWalkDepth
	if depth <= 0 || depth > maxWalkDepth {
		depth = maxWalkDepth
	}

	breaker := errors.NewCircuitBreaker("neo4j",
		errors.WithMaxFailures(5),
		errors.WithResetTimeout(30*time.Second),
	)

	return &Neo4jStore{driver: driver, database: cfg.Database, vectorIndexName: indexName, maxWalkDepth: depth, breaker: breaker}, nil
}

// run executes cypher through the store's circuit breaker, so a run of
// failures against a struggling Neo4j instance fails fast instead of
// piling up slow timeouts on every caller.
func (s *Neo4jStore) run(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	if !s.breaker.Allow() {
		return nil, fmt.Errorf("neo4j circuit open: %w", errors.ErrCircuitOpen)
	}
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
	)
	if err != nil {
		s.breaker.RecordFailure()
		return nil, err
	}
	s.breaker.RecordSuccess()
	return result, nil
}

const storeChunksCypher = `
UNWIND $chunks AS chunk
MERGE (c:ContextChunk {chunk_hash: chunk.chunk_hash})
SET c.content = chunk.content,
    c.language = chunk.language,
    c.language_confidence = chunk.language_confidence,
    c.source_doc = chunk.source_doc,
    c.position = chunk.position,
    c.confidence = chunk.confidence,
    c.embedding = chunk.embedding,
    c.metadata = chunk.metadata,
    c.created_at = coalesce(c.created_at, datetime()),
    c.updated_at = datetime()
WITH c, chunk
FOREACH (name IN CASE WHEN chunk.intent_name IS NOT NULL AND chunk.intent_name <> '' THEN [chunk.intent_name] ELSE [] END |
    MERGE (i:Intent {name: name})
    ON CREATE SET i.created_at = datetime()
    MERGE (c)-[:DETAILS]->(i)
)
WITH c, chunk
MERGE (doc:Document {name: chunk.source_doc})
ON CREATE SET doc.created_at = datetime()
MERGE (c)-[:PART_OF]->(doc)
RETURN c.chunk_hash AS chunk_hash
`

// StoreChunks MERGEs every record by Hash in a single UNWIND transaction,
// so the batch becomes visible atomically.
func (s *Neo4jStore) StoreChunks(ctx context.Context, batch []Record) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	chunks := make([]map[string]any, len(batch))
	for i, r := range batch {
		chunks[i] = map[string]any{
			"chunk_hash":           r.Hash,
			"content":              r.Content,
			"language":             r.Language,
			"language_confidence":  r.LanguageConfidence,
			"source_doc":           r.SourceDoc,
			"position":             int64(r.Position),
			"confidence":           r.Confidence,
			"embedding":            toFloat64Slice(r.Embedding),
			"metadata":             toAnyMap(r.Metadata),
			"intent_name":          r.IntentName,
		}
	}

	result, err := s.run(ctx, storeChunksCypher, map[string]any{"chunks": chunks})
	if err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(result.Records), nil
}

const getByHashCypher = `
MATCH (c:ContextChunk {chunk_hash: $hash})
OPTIONAL MATCH (c)-[:DETAILS]->(i:Intent)
RETURN c.chunk_hash AS chunk_hash, c.content AS content, c.language AS language,
       c.language_confidence AS language_confidence, c.source_doc AS source_doc,
       c.position AS position, c.confidence AS confidence, c.embedding AS embedding,
       c.metadata AS metadata, c.created_at AS created_at, c.updated_at AS updated_at,
       i.name AS intent_name
LIMIT 1
`

// GetByHash returns the record with the given chunk hash.
func (s *Neo4jStore) GetByHash(ctx context.Context, hash string) (Record, bool, error) {
	result, err := s.run(ctx, getByHashCypher, map[string]any{"hash": hash})
	if err != nil {
		return Record{}, false, fmt.Errorf("get chunk by hash: %w", err)
	}
	if len(result.Records) == 0 {
		return Record{}, false, nil
	}
	return recordFromRow(result.Records[0]), true, nil
}

const vectorKNNCypher = `
CALL db.index.vector.queryNodes($index_name, $fetch_k, $query_embedding)
YIELD node, score
WHERE score >= $min_score
  AND ($language = '' OR node.language = $language)
OPTIONAL MATCH (node)-[:DETAILS]->(i:Intent)
RETURN node.chunk_hash AS chunk_hash, node.content AS content, node.language AS language,
       node.language_confidence AS language_confidence, node.source_doc AS source_doc,
       node.position AS position, node.confidence AS confidence, node.embedding AS embedding,
       node.metadata AS metadata, node.created_at AS created_at, node.updated_at AS updated_at,
       i.name AS intent_name, score
ORDER BY score DESC
LIMIT $k
`

// VectorKNN returns the k nearest records by cosine similarity against the
// online vector index.
func (s *Neo4jStore) VectorKNN(ctx context.Context, queryVector []float32, k int, language string, minScore float64) ([]ScoredRecord, error) {
	if k <= 0 {
		k = 10
	}
	params := map[string]any{
		"index_name":      s.vectorIndexName,
		"fetch_k":         int64(k),
		"query_embedding":  toFloat64Slice(queryVector),
		"min_score":       minScore,
		"language":        language,
		"k":               int64(k),
	}

	result, err := s.run(ctx, vectorKNNCypher, params)
	if err != nil {
		return nil, fmt.Errorf("vector knn: %w", err)
	}

	out := make([]ScoredRecord, 0, len(result.Records))
	for _, row := range result.Records {
		score, _ := row.Get("score")
		out = append(out, ScoredRecord{Record: recordFromRow(row), Score: toFloat64(score)})
	}
	return out, nil
}

const keywordGraphQueryCypher = `
MATCH (c:ContextChunk)
WHERE ($keywords = '' OR toLower(c.content) CONTAINS toLower($keywords))
  AND ($language = '' OR c.language = $language)
OPTIONAL MATCH (c)-[:DETAILS]->(i:Intent)
WHERE $intent = '' OR i.name = $intent
WITH c, i WHERE $intent = '' OR i IS NOT NULL
WITH c, i,
     CASE WHEN i IS NOT NULL AND $intent <> '' AND i.name = $intent THEN 1 ELSE 2 END AS distance
RETURN c.chunk_hash AS chunk_hash, c.content AS content, c.language AS language,
       c.language_confidence AS language_confidence, c.source_doc AS source_doc,
       c.position AS position, c.confidence AS confidence, c.embedding AS embedding,
       c.metadata AS metadata, c.created_at AS created_at, c.updated_at AS updated_at,
       i.name AS intent_name, distance
LIMIT $k
`

// KeywordGraphQuery matches chunk content against keywords, optionally
// narrowed to intent and language, scoring each hit by its graph distance
// to the matched intent.
func (s *Neo4jStore) KeywordGraphQuery(ctx context.Context, keywords, intent, language string, k int) ([]KeywordMatch, error) {
	if k <= 0 {
		k = 10
	}
	params := map[string]any{
		"keywords": keywords,
		"intent":   intent,
		"language": language,
		"k":        int64(k),
	}

	result, err := s.run(ctx, keywordGraphQueryCypher, params)
	if err != nil {
		return nil, fmt.Errorf("keyword graph query: %w", err)
	}

	out := make([]KeywordMatch, 0, len(result.Records))
	for _, row := range result.Records {
		distance, _ := row.Get("distance")
		d := int(toFloat64(distance))
		if d == 0 {
			d = 1
		}
		rec := recordFromRow(row)
		out = append(out, KeywordMatch{
			Record:        rec,
			GraphScore:    1.0 / float64(d),
			IntentName:    rec.IntentName,
			GraphDistance: d,
		})
	}
	return out, nil
}

// Walk performs a bounded traversal from startHash over DETAILS, LEADS_TO,
// and SIMILAR_TO edges. maxDepth is clamped to maxWalkDepth and substituted
// as a literal into the `*1..N` pattern, since Cypher does not allow
// parameterizing variable-length pattern bounds; every other value in the
// query remains a bound parameter. A path's confidence is the product of
// its edges' confidence properties, 0.8 for an edge without one; paths are
// ordered by confidence, then by length.
func (s *Neo4jStore) Walk(ctx context.Context, startHash string, maxDepth int, intentFilter string) ([]Path, error) {
	bound := s.maxWalkDepth
	if bound <= 0 || bound > maxWalkDepth {
		bound = maxWalkDepth
	}
	if maxDepth <= 0 || maxDepth > bound {
		maxDepth = bound
	}

	cypher := fmt.Sprintf(`
MATCH path = (start:ContextChunk {chunk_hash: $start})-[*1..%d]-(end:ContextChunk)
WHERE end.chunk_hash <> $start
  AND ($intent = '' OR any(n IN nodes(path) WHERE n:Intent AND n.name = $intent))
RETURN [n IN nodes(path) WHERE n:ContextChunk | n.chunk_hash] AS hashes,
       [r IN relationships(path) | type(r)] AS edge_types,
       length(path) AS hops,
       reduce(conf = 1.0, r IN relationships(path) | conf * coalesce(r.confidence, 0.8)) AS confidence
ORDER BY confidence DESC, hops ASC
LIMIT 50
`, maxDepth)

	result, err := s.run(ctx, cypher, map[string]any{"start": startHash, "intent": intentFilter})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}

	paths := make([]Path, 0, len(result.Records))
	for _, row := range result.Records {
		hashesRaw, _ := row.Get("hashes")
		edgesRaw, _ := row.Get("edge_types")
		conf, _ := row.Get("confidence")

		paths = append(paths, Path{
			NodeHashes: toStringSlice(hashesRaw),
			EdgeTypes:  toStringSlice(edgesRaw),
			Confidence: toFloat64(conf),
		})
	}
	return paths, nil
}

// Facets returns distinct-value counts for chunks matching queryKeyword
// and language. Each dimension is counted from its own deduplicated query
// rather than a single multi-OPTIONAL-MATCH fan-out, so a chunk linked to
// several intents does not inflate the language or source counts.
func (s *Neo4jStore) Facets(ctx context.Context, queryKeyword, language string) (Facets, error) {
	filter := `($keyword = '' OR toLower(c.content) CONTAINS toLower($keyword)) AND ($language = '' OR c.language = $language)`
	params := map[string]any{"keyword": queryKeyword, "language": language}

	languages, err := s.countDistinct(ctx, fmt.Sprintf(`
MATCH (c:ContextChunk) WHERE %s
RETURN c.language AS key, count(DISTINCT c) AS cnt`, filter), params)
	if err != nil {
		return Facets{}, fmt.Errorf("facets languages: %w", err)
	}

	intents, err := s.countDistinct(ctx, fmt.Sprintf(`
MATCH (c:ContextChunk)-[:DETAILS]->(i:Intent) WHERE %s
RETURN i.name AS key, count(DISTINCT c) AS cnt`, filter), params)
	if err != nil {
		return Facets{}, fmt.Errorf("facets intents: %w", err)
	}

	phases, err := s.countDistinct(ctx, fmt.Sprintf(`
MATCH (c:ContextChunk) WHERE %s AND c.metadata.phase IS NOT NULL
RETURN c.metadata.phase AS key, count(DISTINCT c) AS cnt`, filter), params)
	if err != nil {
		return Facets{}, fmt.Errorf("facets phases: %w", err)
	}

	sources, err := s.countDistinct(ctx, fmt.Sprintf(`
MATCH (c:ContextChunk)-[:PART_OF]->(doc:Document) WHERE %s
RETURN doc.name AS key, count(DISTINCT c) AS cnt`, filter), params)
	if err != nil {
		return Facets{}, fmt.Errorf("facets sources: %w", err)
	}

	return Facets{Languages: languages, Intents: intents, Phases: phases, Sources: sources}, nil
}

func (s *Neo4jStore) countDistinct(ctx context.Context, cypher string, params map[string]any) (map[string]int, error) {
	result, err := s.run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(result.Records))
	for _, row := range result.Records {
		key, _ := row.Get("key")
		cnt, _ := row.Get("cnt")
		k, ok := key.(string)
		if !ok || k == "" {
			continue
		}
		counts[k] = int(toFloat64(cnt))
	}
	return counts, nil
}

const healthCypher = `
SHOW INDEXES YIELD name, type, state
WHERE name = $index_name AND type = 'VECTOR' AND state = 'ONLINE'
RETURN count(*) AS online
`

// Health reports store connectivity, vector-index readiness, and node
// counts.
func (s *Neo4jStore) Health(ctx context.Context) (Health, error) {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return Health{Online: false}, nil
	}

	indexResult, err := s.run(ctx, healthCypher, map[string]any{"index_name": s.vectorIndexName})
	vectorOnline := false
	if err == nil && len(indexResult.Records) > 0 {
		online, _ := indexResult.Records[0].Get("online")
		vectorOnline = toFloat64(online) > 0
	}

	countResult, err := s.run(ctx, `MATCH (c:ContextChunk) RETURN count(c) AS chunks`, nil)
	var chunkCount int64
	if err == nil && len(countResult.Records) > 0 {
		v, _ := countResult.Records[0].Get("chunks")
		chunkCount = int64(toFloat64(v))
	}

	docResult, err := s.run(ctx, `MATCH (d:Document) RETURN count(d) AS docs`, nil)
	var docCount int64
	if err == nil && len(docResult.Records) > 0 {
		v, _ := docResult.Records[0].Get("docs")
		docCount = int64(toFloat64(v))
	}

	return Health{
		Online:            true,
		VectorIndexOnline: vectorOnline,
		ChunkCount:        chunkCount,
		DocumentCount:     docCount,
	}, nil
}

// Close shuts down the underlying driver connection pool.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func recordFromRow(row *neo4j.Record) Record {
	get := func(key string) any {
		v, _ := row.Get(key)
		return v
	}

	var created, updated time.Time
	if t, ok := get("created_at").(time.Time); ok {
		created = t
	}
	if t, ok := get("updated_at").(time.Time); ok {
		updated = t
	}

	intentName, _ := get("intent_name").(string)

	return Record{
		Hash:               asString(get("chunk_hash")),
		Content:            asString(get("content")),
		Language:           asString(get("language")),
		LanguageConfidence: toFloat64(get("language_confidence")),
		SourceDoc:          asString(get("source_doc")),
		Position:           int(toFloat64(get("position"))),
		Confidence:         toFloat64(get("confidence")),
		Embedding:          toFloat32Slice(get("embedding")),
		Metadata:           toStringMap(get("metadata")),
		IntentName:         intentName,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
}

func toFloat64Slice(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func toFloat32Slice(v any) []float32 {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, len(items))
	for i, item := range items {
		out[i] = float32(toFloat64(item))
	}
	return out
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toStringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
