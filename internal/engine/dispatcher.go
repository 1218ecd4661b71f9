package engine

import (
	"context"
	"fmt"

	"brandpulse/internal/metrics"
	"brandpulse/internal/model"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// InteractionStore is the slice of persistence the engine needs. The
// database-backed implementation lives in internal/db.
type InteractionStore interface {
	GetInteraction(ctx context.Context, id string) (*model.Interaction, error)
	// UpdateInteractionStatus moves the interaction to status and
	// remembers prev so a later reject can revert.
	UpdateInteractionStatus(ctx context.Context, id string, status, prev model.InteractionStatus) error
	// SetPendingResponse stores the draft with provenance and moves the
	// interaction to awaiting_approval in one write.
	SetPendingResponse(ctx context.Context, id, text string, workflowID *string) error
	AddInteractionTags(ctx context.Context, id string, tags []string) error
	SetReviewPriority(ctx context.Context, id, priority string) error
	RecordDispatch(ctx context.Context, d *model.Dispatch) error
}

// EventBus publishes interaction lifecycle events
type EventBus interface {
	PublishInteraction(interactionID string, event map[string]interface{}) error
}

// Locker serializes dispatch per interaction id. The Redis-backed
// implementation is in lock.go; a nil Locker disables locking (tests).
type Locker interface {
	Acquire(ctx context.Context, interactionID string) (release func(), ok bool, err error)
}

// Engine walks the priority-ordered rule set for one interaction and
// executes the single action of the first fully-matching workflow.
type Engine struct {
	rules      RuleSource
	store      InteractionStore
	exec       *ActionExecutor
	classifier Classifier
	locker     Locker
	bus        EventBus
	log        *zap.Logger
}

// New creates an engine
func New(rules RuleSource, store InteractionStore, exec *ActionExecutor, classifier Classifier, log *zap.Logger) *Engine {
	return &Engine{
		rules:      rules,
		store:      store,
		exec:       exec,
		classifier: classifier,
		log:        log,
	}
}

// SetLocker enables per-interaction dispatch locking
func (e *Engine) SetLocker(l Locker) { e.locker = l }

// SetBus enables event publication after dispatch
func (e *Engine) SetBus(b EventBus) { e.bus = b }

// Dispatch runs one matching pass for the interaction: trigger filter,
// then conditions, in rule-set order; the first full match executes and
// the walk stops. At most one workflow fires per interaction.
func (e *Engine) Dispatch(ctx context.Context, interactionID string) (*model.Dispatch, error) {
	if e.locker != nil {
		release, ok, err := e.locker.Acquire(ctx, interactionID)
		if err != nil {
			return nil, fmt.Errorf("dispatch lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("dispatch already in progress for interaction %s", interactionID)
		}
		defer release()
	}

	in, err := e.store.GetInteraction(ctx, interactionID)
	if err != nil {
		return nil, fmt.Errorf("interaction not found: %w", err)
	}

	// Re-delivered events for an interaction automation already handled
	// are a no-op.
	switch in.Status {
	case model.StatusAwaitingApproval, model.StatusReplied, model.StatusArchived:
		e.log.Debug("Skipping dispatch, interaction already handled",
			zap.String("interaction_id", interactionID),
			zap.String("status", string(in.Status)))
		return nil, nil
	}

	rules, err := e.rules.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("rule snapshot: %w", err)
	}

	rec := &model.Dispatch{
		ID:            ulid.Make().String(),
		InteractionID: interactionID,
		Outcome:       model.OutcomeExhausted,
	}

	for i := range rules.Workflows {
		w := &rules.Workflows[i]
		if !matchesTrigger(w, in) {
			continue
		}
		rec.Evaluated++

		matched, aiCalls, err := e.evalConditions(ctx, w, in)
		rec.AICalls += aiCalls
		if err != nil {
			// Classifier failure counts as non-match for this workflow;
			// keep the error on the record for visibility.
			rec.Error = err.Error()
			e.log.Warn("Condition evaluation error",
				zap.String("workflow_id", w.ID),
				zap.String("interaction_id", interactionID),
				zap.Error(err))
		}
		if !matched {
			continue
		}

		rec.WorkflowID = &w.ID
		at := w.ActionType
		rec.ActionType = &at

		if err := e.exec.Execute(ctx, w, in); err != nil {
			rec.Outcome = model.OutcomeFailed
			rec.Error = err.Error()
			e.record(ctx, rec)
			metrics.DispatchesTotal.WithLabelValues(string(model.OutcomeFailed)).Inc()
			// The interaction is still in its pre-dispatch state; the
			// caller (asynq task) retries.
			return rec, fmt.Errorf("action %s failed for workflow %s: %w", w.ActionType, w.ID, err)
		}

		rec.Outcome = model.OutcomeDispatched
		e.record(ctx, rec)
		metrics.DispatchesTotal.WithLabelValues(string(model.OutcomeDispatched)).Inc()
		e.publish(interactionID, map[string]interface{}{
			"type":          "interaction.dispatched",
			"interactionId": interactionID,
			"workflowId":    w.ID,
			"action":        string(w.ActionType),
		})
		e.log.Info("Dispatched interaction",
			zap.String("interaction_id", interactionID),
			zap.String("workflow_id", w.ID),
			zap.String("action", string(w.ActionType)),
			zap.Int("evaluated", rec.Evaluated),
			zap.Int("ai_calls", rec.AICalls))
		return rec, nil
	}

	// No workflow matched; the interaction stays unautomated.
	e.record(ctx, rec)
	metrics.DispatchesTotal.WithLabelValues(string(model.OutcomeExhausted)).Inc()
	return rec, nil
}

func (e *Engine) record(ctx context.Context, rec *model.Dispatch) {
	if err := e.store.RecordDispatch(ctx, rec); err != nil {
		e.log.Error("Failed to record dispatch",
			zap.String("interaction_id", rec.InteractionID),
			zap.Error(err))
	}
}

func (e *Engine) publish(interactionID string, event map[string]interface{}) {
	if e.bus == nil {
		return
	}
	if err := e.bus.PublishInteraction(interactionID, event); err != nil {
		e.log.Warn("Failed to publish dispatch event", zap.Error(err))
	}
}
