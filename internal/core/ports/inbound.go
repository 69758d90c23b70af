package ports

import (
	"context"

	"github.com/advogai/juris-rag/internal/core/domain"
)

// RetrievalService is the inbound contract consumed by the drafting
// orchestration layer.
type RetrievalService interface {
	Search(ctx context.Context, query domain.Query) (*domain.RetrievalResult, error)
}

// CacheInvalidator is the inbound contract driven by tenant/case write
// events. Implementations fan the event out to every retrieval process.
type CacheInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
	InvalidateCase(ctx context.Context, tenantID, caseID string) error
}
