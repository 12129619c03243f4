package usecase

import (
	"sort"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

const defaultRRFK = 60

type fusedEntry struct {
	hit   domain.Hit
	score float64
}

// FuseRRF merges the dense and sparse hit lists with weighted reciprocal
// rank fusion: each hit contributes weight/(k+rank+1) to its accumulated
// score, keyed by hit ID with 0-based ranks. A hit present in both lists
// keeps the payload of the list processed first (dense) and gets the other
// list's raw score attached. Ordering is accumulated score descending, then
// highest raw sub-score descending, then ID ascending.
func FuseRRF(denseHits, sparseHits []domain.Hit, denseWeight, sparseWeight float64, k int) []domain.FusedResult {
	if k <= 0 {
		k = defaultRRFK
	}

	acc := make(map[string]*fusedEntry, len(denseHits)+len(sparseHits))

	for rank, hit := range denseHits {
		entry, ok := acc[hit.ID]
		if !ok {
			entry = &fusedEntry{hit: hit}
			acc[hit.ID] = entry
		} else if entry.hit.DenseScore == nil {
			entry.hit.DenseScore = hit.DenseScore
		}
		entry.score += denseWeight / float64(k+rank+1)
	}

	for rank, hit := range sparseHits {
		entry, ok := acc[hit.ID]
		if !ok {
			entry = &fusedEntry{hit: hit}
			acc[hit.ID] = entry
		} else if entry.hit.SparseScore == nil {
			entry.hit.SparseScore = hit.SparseScore
		}
		entry.score += sparseWeight / float64(k+rank+1)
	}

	out := make([]domain.FusedResult, 0, len(acc))
	for _, entry := range acc {
		out = append(out, domain.FusedResult{Hit: entry.hit, FusionScore: entry.score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FusionScore != out[j].FusionScore {
			return out[i].FusionScore > out[j].FusionScore
		}
		if ri, rj := out[i].MaxRawScore(), out[j].MaxRawScore(); ri != rj {
			return ri > rj
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func trimFused(results []domain.FusedResult, limit int) []domain.FusedResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
