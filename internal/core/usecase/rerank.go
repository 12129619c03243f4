package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
)

const defaultRerankBatchSize = 16

// Rerank re-scores fused results with the cross-encoder scorer in fixed-size
// batches, attaches the rerank score without discarding the fusion score,
// then re-sorts by rerank score descending and truncates to topK. Equal
// rerank scores fall back to ID order so repeated calls over the same hits
// produce the same ranking. Any scorer
// failure fails the whole call; the pipeline is expected to catch it and
// keep the pre-rerank order. Batch boundaries never affect the final ranking
// since pairs are scored independently.
func Rerank(
	ctx context.Context,
	scorer ports.RerankScorer,
	query string,
	results []domain.FusedResult,
	topK int,
	batchSize int,
) ([]domain.FusedResult, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = defaultRerankBatchSize
	}

	out := make([]domain.FusedResult, len(results))
	copy(out, results)

	for start := 0; start < len(out); start += batchSize {
		end := start + batchSize
		if end > len(out) {
			end = len(out)
		}

		docs := make([]string, 0, end-start)
		for _, r := range out[start:end] {
			docs = append(docs, r.Text)
		}

		scores, err := scorer.Score(ctx, query, docs)
		if err != nil {
			return nil, fmt.Errorf("score rerank batch at offset %d: %w", start, err)
		}
		if len(scores) != len(docs) {
			return nil, fmt.Errorf("scorer returned %d scores for %d documents", len(scores), len(docs))
		}

		for i, score := range scores {
			s := score
			out[start+i].RerankScore = &s
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].RerankScore != *out[j].RerankScore {
			return *out[i].RerankScore > *out[j].RerankScore
		}
		return out[i].ID < out[j].ID
	})

	return trimFused(out, topK), nil
}
