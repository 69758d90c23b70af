package usecase

import (
	"testing"

	"github.com/advogai/juris-rag/internal/core/domain"
)

func TestEvaluateGate(t *testing.T) {
	thresholds := domain.GateThresholds{MinBestScore: 0.02, MinAvgScore: 0.015}

	tests := []struct {
		name       string
		set        domain.FusedResultSet
		wantPass   bool
		wantReason string
	}{
		{
			name:     "empty set passes trivially",
			set:      domain.FusedResultSet{},
			wantPass: true,
		},
		{
			name: "best score below threshold",
			set: domain.FusedResultSet{
				Chunks:  []domain.RetrievedChunk{{}},
				Metrics: domain.GateMetrics{BestScore: 0.01, AvgTop3: 0.02},
			},
			wantPass:   false,
			wantReason: gateReasonLowBest,
		},
		{
			name: "avg below threshold",
			set: domain.FusedResultSet{
				Chunks:  []domain.RetrievedChunk{{}},
				Metrics: domain.GateMetrics{BestScore: 0.03, AvgTop3: 0.01},
			},
			wantPass:   false,
			wantReason: gateReasonLowAvg,
		},
		{
			name: "both above thresholds",
			set: domain.FusedResultSet{
				Chunks:  []domain.RetrievedChunk{{}},
				Metrics: domain.GateMetrics{BestScore: 0.03, AvgTop3: 0.02},
			},
			wantPass: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := evaluateGate(tt.set, thresholds)
			if decision.Pass != tt.wantPass {
				t.Fatalf("pass = %v, want %v", decision.Pass, tt.wantPass)
			}
			if decision.Reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", decision.Reason, tt.wantReason)
			}
		})
	}
}
