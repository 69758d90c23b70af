package usecase

import (
	"github.com/advogai/juris-rag/internal/core/domain"
)

type correctiveState int

const (
	stateInitial correctiveState = iota
	stateRetrying
	stateGiveUp
)

// correctiveController is the bounded escalation state machine driven by
// quality-gate failures. Each escalation enables exactly one knob that was
// not active before, so no strategy is ever attempted twice.
type correctiveController struct {
	state      correctiveState
	strategy   domain.RetrievalStrategy
	retries    int
	maxRetries int
	allowScope bool
}

func newCorrectiveController(flags domain.RetrievalFlags, settings domain.ProfileSettings) *correctiveController {
	return &correctiveController{
		state: stateInitial,
		strategy: domain.RetrievalStrategy{
			MultiQuery: flags.MultiQuery,
		},
		maxRetries: settings.MaxRetries,
		allowScope: settings.RetryExpandScope,
	}
}

func (c *correctiveController) Strategy() domain.RetrievalStrategy {
	return c.strategy
}

func (c *correctiveController) GaveUp() bool {
	return c.state == stateGiveUp
}

// Escalate advances the state machine after a failed gate. It returns false
// once the retry budget is spent or every knob is already on.
func (c *correctiveController) Escalate() bool {
	if c.state == stateGiveUp {
		return false
	}
	if c.retries >= c.maxRetries {
		c.state = stateGiveUp
		return false
	}
	next, ok := nextStrategy(c.strategy, c.allowScope)
	if !ok {
		c.state = stateGiveUp
		return false
	}
	c.strategy = next
	c.retries++
	c.state = stateRetrying
	return true
}

// nextStrategy is the pure transition function: it turns on the first knob
// not yet enabled, in fixed priority order.
func nextStrategy(current domain.RetrievalStrategy, allowWideScope bool) (domain.RetrievalStrategy, bool) {
	switch {
	case !current.MultiQuery:
		current.MultiQuery = true
		return current, true
	case !current.Hypothetical:
		current.Hypothetical = true
		return current, true
	case allowWideScope && !current.WideScope:
		current.WideScope = true
		return current, true
	}
	return current, false
}
