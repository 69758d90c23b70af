package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/advogai/juris-rag/internal/core/domain"
)

func TestParseInvalidation(t *testing.T) {
	tests := []struct {
		payload    string
		wantTenant string
		wantCase   string
	}{
		{"tenant-a", "tenant-a", ""},
		{"tenant-a:case-1", "tenant-a", "case-1"},
		{"tenant-a:case:with:colons", "tenant-a", "case:with:colons"},
		{"  tenant-a  ", "tenant-a", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		tenant, caseID := parseInvalidation(tt.payload)
		if tenant != tt.wantTenant || caseID != tt.wantCase {
			t.Fatalf("parseInvalidation(%q) = %q, %q; want %q, %q", tt.payload, tenant, caseID, tt.wantTenant, tt.wantCase)
		}
	}
}

func TestClassifyNATSError(t *testing.T) {
	if class := classifyNATSError(nats.ErrNoServers); !class.Retryable || !class.RecordFailure {
		t.Fatalf("no-servers should be retryable failure, got %+v", class)
	}
	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation should not be recorded, got %+v", class)
	}
	if class := classifyNATSError(errors.New("bad subject")); class.Retryable {
		t.Fatalf("unknown errors should not retry, got %+v", class)
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	wrapped := wrapTemporaryIfNeeded(nats.ErrTimeout)
	if !domain.IsKind(wrapped, domain.ErrTemporary) {
		t.Fatalf("retryable nats error should wrap as temporary, got %v", wrapped)
	}

	plain := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(plain); !errors.Is(got, plain) || domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("permanent error should pass through, got %v", got)
	}

	if got := wrapTemporaryIfNeeded(nil); got != nil {
		t.Fatalf("nil should stay nil, got %v", got)
	}
}
