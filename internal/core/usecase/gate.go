package usecase

import (
	"github.com/advogai/juris-rag/internal/core/domain"
)

const (
	gateReasonLowBest = "best_score_below_threshold"
	gateReasonLowAvg  = "avg_top3_below_threshold"
)

// evaluateGate scores a fused result set against the profile thresholds.
// An empty set passes trivially so the caller can surface "no evidence"
// instead of burning retries on an empty corpus.
func evaluateGate(set domain.FusedResultSet, thresholds domain.GateThresholds) domain.GateDecision {
	if len(set.Chunks) == 0 {
		return domain.GateDecision{Pass: true}
	}
	if set.Metrics.BestScore < thresholds.MinBestScore {
		return domain.GateDecision{Pass: false, Reason: gateReasonLowBest}
	}
	if set.Metrics.AvgTop3 < thresholds.MinAvgScore {
		return domain.GateDecision{Pass: false, Reason: gateReasonLowAvg}
	}
	return domain.GateDecision{Pass: true}
}
