package nats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/advogai/juris-rag/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

// Bus carries cache-invalidation events. The ingestion and case-management
// services publish "tenant_id" or "tenant_id:case_id" payloads whenever a
// write could make cached retrieval results stale; every retrieval process
// subscribes and drops its local cache.
type Bus struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

func New(url, subject string) (*Bus, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, subject string, options Options) (*Bus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("juris-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// PublishInvalidation notifies every retrieval process that cached results
// for the tenant (optionally narrowed to a case) are stale.
func (b *Bus) PublishInvalidation(ctx context.Context, tenantID, caseID string) error {
	payload := tenantID
	if caseID != "" {
		payload = tenantID + ":" + caseID
	}

	call := func(_ context.Context) error {
		if err := b.conn.Publish(b.subject, []byte(payload)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if b.executor != nil {
		err = b.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeInvalidation blocks until ctx is done, delivering parsed
// invalidation events to handler. The subscription is deliberately NOT a
// queue group: the cache is process-local, so every instance must see
// every event.
func (b *Bus) SubscribeInvalidation(ctx context.Context, handler func(ctx context.Context, tenantID, caseID string)) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		tenantID, caseID := parseInvalidation(string(msg.Data))
		if tenantID == "" {
			log.Printf("invalidation event without tenant: %q", string(msg.Data))
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		handler(handlerCtx, tenantID, caseID)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// Invalidator adapts the bus to the inbound invalidation contract. The
// publishing process relies on its own subscription to clear its local
// cache, same as every other instance.
type Invalidator struct {
	bus *Bus
}

func NewInvalidator(bus *Bus) *Invalidator {
	return &Invalidator{bus: bus}
}

func (i *Invalidator) InvalidateTenant(ctx context.Context, tenantID string) error {
	return i.bus.PublishInvalidation(ctx, tenantID, "")
}

func (i *Invalidator) InvalidateCase(ctx context.Context, tenantID, caseID string) error {
	return i.bus.PublishInvalidation(ctx, tenantID, caseID)
}

func parseInvalidation(payload string) (tenantID, caseID string) {
	parts := strings.SplitN(strings.TrimSpace(payload), ":", 2)
	tenantID = parts[0]
	if len(parts) == 2 {
		caseID = parts[1]
	}
	return tenantID, caseID
}
