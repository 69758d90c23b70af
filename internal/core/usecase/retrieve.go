package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/advogai/juris-rag/internal/core/domain"
	"github.com/advogai/juris-rag/internal/core/ports"
)

// RetrievalObserver receives retrieval telemetry. Implementations must be
// safe for concurrent use.
type RetrievalObserver interface {
	SearchCompleted(outcome string, attempts int, duration time.Duration)
	BackendDegraded(backend string)
	GateFailed(reason string)
	CacheLookup(hit bool)
	GraphShortCircuit()
}

type nopObserver struct{}

func (nopObserver) SearchCompleted(string, int, time.Duration) {}
func (nopObserver) BackendDegraded(string)                     {}
func (nopObserver) GateFailed(string)                          {}
func (nopObserver) CacheLookup(bool)                           {}
func (nopObserver) GraphShortCircuit()                         {}

type RetrieveConfig struct {
	TopK               int
	CandidateK         int
	RRFK               int
	LexicalWeight      float64
	VectorWeight       float64
	BackendTimeout     time.Duration
	MultiQueryMax      int
	ParentChildWindow  int
	ParentChildMax     int
	GraphHops          int
	VectorCollection   string
	LexicalIndexPrefix string
}

func (c RetrieveConfig) normalize() RetrieveConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 5
	}
	if out.CandidateK <= 0 {
		out.CandidateK = 30
	}
	if out.RRFK <= 0 {
		out.RRFK = 60
	}
	if out.LexicalWeight <= 0 {
		out.LexicalWeight = 0.5
	}
	if out.VectorWeight <= 0 {
		out.VectorWeight = 0.5
	}
	if out.BackendTimeout <= 0 {
		out.BackendTimeout = 4 * time.Second
	}
	if out.ParentChildWindow <= 0 {
		out.ParentChildWindow = 1
	}
	if out.ParentChildMax <= 0 {
		out.ParentChildMax = 2
	}
	if out.GraphHops <= 0 {
		out.GraphHops = 2
	}
	return out
}

// RetrieveUseCase is the adaptive hybrid retrieval core: fan-out to the
// lexical/vector backends, rank fusion, graph-primary routing, quality
// gating with corrective retries, parent-child expansion, and result
// caching.
type RetrieveUseCase struct {
	lexical   ports.SearchBackend
	vector    ports.SearchBackend
	router    *graphRouter
	expander  *QueryExpander
	neighbors ports.ChunkNeighborStore
	cache     ports.ResultCache
	profiles  map[domain.Profile]domain.ProfileSettings
	cfg       RetrieveConfig
	observer  RetrievalObserver
	logger    *slog.Logger
}

func NewRetrieveUseCase(
	lexical ports.SearchBackend,
	vector ports.SearchBackend,
	graph ports.GraphStore,
	classifier ports.IntentClassifier,
	expander *QueryExpander,
	neighbors ports.ChunkNeighborStore,
	cache ports.ResultCache,
	profiles map[domain.Profile]domain.ProfileSettings,
	cfg RetrieveConfig,
	observer RetrievalObserver,
	logger *slog.Logger,
) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if profiles == nil {
		profiles = domain.DefaultProfiles()
	}
	cfg = cfg.normalize()
	return &RetrieveUseCase{
		lexical:   lexical,
		vector:    vector,
		router:    newGraphRouter(graph, classifier, cfg.GraphHops, logger),
		expander:  expander,
		neighbors: neighbors,
		cache:     cache,
		profiles:  profiles,
		cfg:       cfg,
		observer:  observer,
		logger:    logger,
	}
}

func (uc *RetrieveUseCase) Search(ctx context.Context, query domain.Query) (*domain.RetrievalResult, error) {
	start := time.Now()

	if strings.TrimSpace(query.Text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errEmpty("query text"))
	}
	if strings.TrimSpace(query.TenantID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errEmpty("tenant id"))
	}
	if query.TopK <= 0 {
		query.TopK = uc.cfg.TopK
	}

	profile, err := domain.ParseProfile(string(query.Profile))
	if err != nil {
		return nil, err
	}
	settings, ok := uc.profiles[profile]
	if !ok {
		settings = domain.DefaultProfiles()[domain.ProfileBalanced]
	}
	thresholds := settings.Thresholds
	if query.Thresholds != nil {
		thresholds = *query.Thresholds
	}

	key := cacheKey(query, uc.cfg.LexicalIndexPrefix, uc.cfg.VectorCollection)
	if uc.cache != nil {
		if cached, hit := uc.cache.Get(key); hit {
			uc.observer.CacheLookup(true)
			uc.observer.SearchCompleted("cache_hit", 0, time.Since(start))
			return cached, nil
		}
		uc.observer.CacheLookup(false)
	}

	filter := domain.SearchFilter{
		TenantID:      query.TenantID,
		CaseID:        query.CaseID,
		Sources:       query.Sources,
		IncludeGlobal: true,
	}

	// Graph-primary path: a strong direct hit skips lexical/vector entirely.
	if gctx, hit := uc.router.Lookup(ctx, query, filter); hit {
		uc.observer.GraphShortCircuit()
		rendered := renderGraphContext(gctx)
		result := &domain.RetrievalResult{
			RenderedContext: rendered,
			GraphContext:    rendered,
			Chunks:          []domain.RetrievedChunk{},
		}
		uc.store(key, result)
		uc.observer.SearchCompleted("graph_short_circuit", 0, time.Since(start))
		return result, nil
	}

	best, bestGate, attempts := uc.retrieveWithCorrection(ctx, query, filter, settings, thresholds)

	chunks := trimChunks(best.Chunks, query.TopK)
	chunks = uc.expandParentChild(ctx, query, chunks)
	graph := uc.router.Enrich(ctx, query, chunks, filter)

	result := &domain.RetrievalResult{
		RenderedContext: renderContext(chunks, graph),
		GraphContext:    renderGraphContext(graph),
		Chunks:          chunks,
		SafeMode:        !bestGate.Pass,
		NoEvidence:      len(chunks) == 0,
		Attempts:        attempts,
	}

	uc.store(key, result)

	outcome := "pass"
	if result.SafeMode {
		outcome = "safe_mode"
	}
	if result.NoEvidence {
		outcome = "no_evidence"
	}
	uc.observer.SearchCompleted(outcome, attempts, time.Since(start))
	return result, nil
}

// retrieveWithCorrection runs the attempt loop: each failed gate escalates
// exactly one strategy knob until the gate passes, the retry budget is
// spent, or the caller's deadline expires. The best attempt seen is always
// returned.
func (uc *RetrieveUseCase) retrieveWithCorrection(
	ctx context.Context,
	query domain.Query,
	filter domain.SearchFilter,
	settings domain.ProfileSettings,
	thresholds domain.GateThresholds,
) (domain.FusedResultSet, domain.GateDecision, int) {
	ctrl := newCorrectiveController(query.Flags, settings)

	var best domain.FusedResultSet
	bestGate := domain.GateDecision{Pass: false, Reason: "not_attempted"}
	attempts := 0

	for {
		strategy := ctrl.Strategy()
		set := uc.runAttempt(ctx, query, strategy, filter)
		attempts++

		if attempts == 1 || set.Metrics.BestScore > best.Metrics.BestScore {
			best = set
		}

		decision := evaluateGate(set, thresholds)
		if decision.Pass {
			return set, decision, attempts
		}
		uc.observer.GateFailed(decision.Reason)
		bestGate = decision

		if !query.Flags.Corrective {
			break
		}
		if ctx.Err() != nil {
			uc.logger.Warn("retrieval_deadline_reached", "attempts", attempts)
			break
		}
		if !ctrl.Escalate() {
			break
		}
		uc.logger.Info("corrective_retry",
			"attempt", attempts+1,
			"reason", decision.Reason,
			"strategy", ctrl.Strategy(),
		)
	}

	return best, bestGate, attempts
}

type fanOutTask struct {
	backend ports.SearchBackend
	text    string
	weight  float64
}

// runAttempt executes one retrieval attempt under the given strategy:
// expansion, concurrent fan-out with per-backend timeouts, then fusion.
// Backend failures degrade to empty lists.
func (uc *RetrieveUseCase) runAttempt(
	ctx context.Context,
	query domain.Query,
	strategy domain.RetrievalStrategy,
	filter domain.SearchFilter,
) domain.FusedResultSet {
	if strategy.WideScope {
		filter.Sources = nil
		filter.IncludeGlobal = true
	}

	texts := []string{query.Text}
	if strategy.MultiQuery && uc.expander != nil {
		texts = append(texts, uc.expander.Expand(ctx, query.Text)...)
	}

	var tasks []fanOutTask
	for _, text := range texts {
		if uc.lexical != nil {
			tasks = append(tasks, fanOutTask{uc.lexical, text, uc.cfg.LexicalWeight})
		}
		if uc.vector != nil {
			tasks = append(tasks, fanOutTask{uc.vector, text, uc.cfg.VectorWeight})
		}
	}
	if strategy.Hypothetical && uc.vector != nil && uc.expander != nil {
		if doc := uc.expander.Hypothetical(ctx, query.Text); doc != "" {
			tasks = append(tasks, fanOutTask{uc.vector, doc, uc.cfg.VectorWeight})
		}
	}

	// Results land at fixed task indices so fusion input order, and with it
	// the fused ordering, is deterministic for identical backend outputs.
	results := make([]rankedList, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task fanOutTask) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, uc.cfg.BackendTimeout)
			defer cancel()

			chunks, err := task.backend.Search(callCtx, task.text, uc.cfg.CandidateK, filter)
			if err != nil {
				uc.observer.BackendDegraded(string(task.backend.Name()))
				uc.logger.Warn("backend_degraded",
					"backend", task.backend.Name(),
					"tenant_id", filter.TenantID,
					"error", err,
				)
				return
			}
			results[i] = rankedList{
				source: task.backend.Name(),
				weight: task.weight,
				chunks: uc.enforceTenant(chunks, filter),
			}
		}(i, task)
	}
	wg.Wait()

	lists := make([]rankedList, 0, len(results))
	for _, list := range results {
		if len(list.chunks) > 0 {
			lists = append(lists, list)
		}
	}
	return fuseRRF(lists, uc.cfg.RRFK)
}

// enforceTenant is the client-side guard on top of the server-side filters:
// a chunk from another tenant is dropped, never surfaced.
func (uc *RetrieveUseCase) enforceTenant(chunks []domain.RetrievedChunk, filter domain.SearchFilter) []domain.RetrievedChunk {
	out := chunks[:0]
	for _, chunk := range chunks {
		tenant := chunk.Metadata.TenantID
		switch {
		case tenant == filter.TenantID:
			out = append(out, chunk)
		case tenant == "" && filter.IncludeGlobal && chunk.Metadata.Scope == domain.ScopeGlobal:
			out = append(out, chunk)
		default:
			uc.logger.Warn("tenant_scope_violation_dropped",
				"expected_tenant", filter.TenantID,
				"chunk_tenant", tenant,
				"document_id", chunk.Metadata.DocumentID,
			)
		}
	}
	return out
}

// expandParentChild appends sibling chunks around each match. Siblings keep
// their own provenance; the renderer orders them contiguously.
func (uc *RetrieveUseCase) expandParentChild(ctx context.Context, query domain.Query, chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	if !query.Flags.ParentChild || uc.neighbors == nil || len(chunks) == 0 {
		return chunks
	}

	present := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		present[chunk.Key()] = struct{}{}
	}

	out := chunks
	for _, chunk := range chunks {
		siblings, err := uc.neighbors.Siblings(
			ctx,
			query.TenantID,
			chunk.Metadata.DocumentID,
			chunk.Metadata.ChunkIndex,
			uc.cfg.ParentChildWindow,
			uc.cfg.ParentChildMax,
		)
		if err != nil {
			uc.logger.Warn("parent_child_degraded",
				"document_id", chunk.Metadata.DocumentID,
				"error", err,
			)
			continue
		}
		for _, sibling := range siblings {
			if _, dup := present[sibling.Key()]; dup {
				continue
			}
			present[sibling.Key()] = struct{}{}
			sibling.FusedScore = 0
			out = append(out, sibling)
		}
	}
	return out
}

func (uc *RetrieveUseCase) store(key string, result *domain.RetrievalResult) {
	if uc.cache == nil {
		return
	}
	uc.cache.Set(key, *result)
}

// cacheKey hashes everything that changes the result: the normalized query
// text, tenant, case, the sorted source and collection sets, and the scope
// string.
func cacheKey(query domain.Query, indexPrefix, collection string) string {
	sources := make([]string, len(query.Sources))
	copy(sources, query.Sources)
	sort.Strings(sources)

	scope := domain.ScopeGlobal
	if query.CaseID != "" {
		scope = "case:" + query.CaseID
	}

	h := sha256.New()
	for _, part := range []string{
		normalizeQueryText(query.Text),
		query.TenantID,
		query.CaseID,
		strings.Join(sources, ","),
		indexPrefix,
		collection,
		scope,
		string(query.Profile),
		strconv.Itoa(query.TopK),
		strconv.FormatBool(query.Flags.MultiQuery),
		strconv.FormatBool(query.Flags.ParentChild),
		strconv.FormatBool(query.Flags.GraphEnabled),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeQueryText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

type errEmpty string

func (e errEmpty) Error() string { return string(e) + " is required" }
