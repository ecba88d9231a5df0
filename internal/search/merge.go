package search

import "github.com/knowledgeengine/core/internal/graphstore"

// merge deduplicates the two arms' results by chunk hash. A chunk present
// in both arms keeps both sub-scores and is marked hybrid; an arm-unique
// chunk keeps that arm's sub-score and leaves the other at zero.
func merge(vec []graphstore.ScoredRecord, kw []graphstore.KeywordMatch, opts Options) []Result {
	byHash := make(map[string]*Result, len(vec)+len(kw))
	order := make([]string, 0, len(vec)+len(kw))

	for _, v := range vec {
		r := fromVector(v)
		byHash[r.ChunkHash] = &r
		order = append(order, r.ChunkHash)
	}

	for _, k := range kw {
		hash := k.Record.Hash
		if existing, ok := byHash[hash]; ok {
			existing.GraphScore = k.GraphScore
			existing.IntentName = k.IntentName
			existing.GraphDistance = k.GraphDistance
			existing.ResultType = ResultTypeHybrid
			continue
		}
		r := fromKeyword(k)
		byHash[hash] = &r
		order = append(order, hash)
	}

	results := make([]Result, 0, len(order))
	for _, hash := range order {
		r := *byHash[hash]
		r.IntentScore = intentScore(r.IntentName, opts.Intent)
		results = append(results, r)
	}
	return results
}

func fromVector(v graphstore.ScoredRecord) Result {
	return Result{
		ChunkHash:   v.Record.Hash,
		Content:     v.Record.Content,
		SourceDoc:   v.Record.SourceDoc,
		Language:    v.Record.Language,
		Metadata:    v.Record.Metadata,
		VectorScore: v.Score,
		IntentName:  v.Record.IntentName,
		ResultType:  ResultTypeVector,
	}
}

func fromKeyword(k graphstore.KeywordMatch) Result {
	r := Result{
		ChunkHash:     k.Record.Hash,
		Content:       k.Record.Content,
		SourceDoc:     k.Record.SourceDoc,
		Language:      k.Record.Language,
		Metadata:      k.Record.Metadata,
		GraphScore:    k.GraphScore,
		IntentName:    k.IntentName,
		GraphDistance: k.GraphDistance,
		ResultType:    ResultTypeGraph,
	}
	return r
}
