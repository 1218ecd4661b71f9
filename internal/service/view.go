package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brandpulse/internal/db"
	"brandpulse/internal/engine"
	"brandpulse/internal/model"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// reassignWindow bounds how far back a view edit re-evaluates membership
const reassignWindow = 30 * 24 * time.Hour

const reassignBatchSize = 1000

// ViewService owns saved views and interaction-to-view membership.
// Manual views carry an expr filter evaluated against interaction
// fields; ai_prompt views delegate membership to the classifier.
type ViewService struct {
	queries    *db.Queries
	classifier engine.Classifier
	bus        EventBus
	jobClient  JobClient
	log        *zap.Logger

	mu       sync.RWMutex
	programs map[string]*vm.Program // filter source -> compiled program
}

func NewViewService(queries *db.Queries, classifier engine.Classifier, bus EventBus, jobClient JobClient, log *zap.Logger) *ViewService {
	return &ViewService{
		queries:    queries,
		classifier: classifier,
		bus:        bus,
		jobClient:  jobClient,
		log:        log,
		programs:   make(map[string]*vm.Program),
	}
}

// ViewInput is the create/update payload
type ViewInput struct {
	Name   string         `json:"name"`
	Kind   model.ViewKind `json:"kind"`
	Filter string         `json:"filter,omitempty"`
	Prompt string         `json:"prompt,omitempty"`
}

func (s *ViewService) validateInput(in ViewInput) error {
	if in.Name == "" {
		return fmt.Errorf("view name is required")
	}
	switch in.Kind {
	case model.ViewManual:
		if in.Filter == "" {
			return fmt.Errorf("manual views require a filter expression")
		}
		if _, err := s.compileFilter(in.Filter); err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
	case model.ViewAIPrompt:
		if in.Prompt == "" {
			return fmt.Errorf("ai_prompt views require a prompt")
		}
	default:
		return fmt.Errorf("invalid view kind: %s", in.Kind)
	}
	return nil
}

func (s *ViewService) CreateView(ctx context.Context, in ViewInput) (*model.View, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	v, err := s.queries.CreateView(ctx, db.CreateViewParams{
		ID:     ulid.Make().String(),
		Name:   in.Name,
		Kind:   string(in.Kind),
		Filter: in.Filter,
		Prompt: in.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create view: %w", err)
	}
	_ = s.bus.PublishView(v.ID, map[string]interface{}{"type": "view.created", "viewId": v.ID})
	return v, nil
}

func (s *ViewService) GetView(ctx context.Context, id string) (*model.View, error) {
	v, err := s.queries.GetViewByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("view not found: %w", err)
	}
	return v, nil
}

func (s *ViewService) ListViews(ctx context.Context) ([]model.View, error) {
	return s.queries.ListViews(ctx)
}

// UpdateView edits a view's name and filter/prompt. Kind is fixed at
// creation. Changed membership rules are reapplied asynchronously.
func (s *ViewService) UpdateView(ctx context.Context, id string, in ViewInput) (*model.View, error) {
	existing, err := s.queries.GetViewByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("view not found: %w", err)
	}
	if in.Kind == "" {
		in.Kind = existing.Kind
	}
	if in.Kind != existing.Kind {
		return nil, fmt.Errorf("view kind cannot change after creation")
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	v, err := s.queries.UpdateView(ctx, db.UpdateViewParams{
		ID:     id,
		Name:   in.Name,
		Filter: in.Filter,
		Prompt: in.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update view: %w", err)
	}
	if s.jobClient != nil {
		if err := s.jobClient.EnqueueViewReassign(id); err != nil {
			s.log.Error("failed to enqueue view reassignment", zap.String("view_id", id), zap.Error(err))
		}
	}
	_ = s.bus.PublishView(id, map[string]interface{}{"type": "view.updated", "viewId": id})
	return v, nil
}

func (s *ViewService) SetViewPinned(ctx context.Context, id string, pinned bool) error {
	if err := s.queries.SetViewPinned(ctx, id, pinned); err != nil {
		return fmt.Errorf("failed to pin view: %w", err)
	}
	_ = s.bus.PublishView(id, map[string]interface{}{"type": "view.pinned", "viewId": id, "pinned": pinned})
	return nil
}

// DuplicateView clones a view under a derived name so the copy can be
// edited without touching the original.
func (s *ViewService) DuplicateView(ctx context.Context, id string) (*model.View, error) {
	src, err := s.queries.GetViewByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("view not found: %w", err)
	}
	return s.CreateView(ctx, ViewInput{
		Name:   src.Name + " (copy)",
		Kind:   src.Kind,
		Filter: src.Filter,
		Prompt: src.Prompt,
	})
}

func (s *ViewService) DeleteView(ctx context.Context, id string) error {
	if err := s.queries.DeleteView(ctx, id); err != nil {
		return err
	}
	_ = s.bus.PublishView(id, map[string]interface{}{"type": "view.deleted", "viewId": id})
	return nil
}

// MatchesView reports whether the interaction belongs to the view.
// Manual filters are evaluated locally; ai_prompt views ask the
// classifier.
func (s *ViewService) MatchesView(ctx context.Context, v *model.View, in *model.Interaction) (bool, error) {
	switch v.Kind {
	case model.ViewManual:
		program, err := s.compileFilter(v.Filter)
		if err != nil {
			return false, fmt.Errorf("view %s has invalid filter: %w", v.ID, err)
		}
		out, err := expr.Run(program, filterEnv(in))
		if err != nil {
			return false, fmt.Errorf("view %s filter failed: %w", v.ID, err)
		}
		matched, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("view %s filter did not return a boolean", v.ID)
		}
		return matched, nil
	case model.ViewAIPrompt:
		return s.classifier.Classify(ctx, v.Prompt, in)
	default:
		return false, fmt.Errorf("unknown view kind: %s", v.Kind)
	}
}

// AssignViews computes view membership for a freshly ingested
// interaction. A view whose filter or classifier fails is skipped, not
// fatal, so one broken view cannot block ingestion.
func (s *ViewService) AssignViews(ctx context.Context, in *model.Interaction) []string {
	views, err := s.queries.ListViews(ctx)
	if err != nil {
		s.log.Error("failed to list views for assignment", zap.Error(err))
		return nil
	}

	var ids []string
	for i := range views {
		matched, err := s.MatchesView(ctx, &views[i], in)
		if err != nil {
			s.log.Warn("view match failed, skipping",
				zap.String("view_id", views[i].ID),
				zap.Error(err))
			continue
		}
		if matched {
			ids = append(ids, views[i].ID)
		}
	}
	return ids
}

// ReassignView re-evaluates recent interactions against one view after
// its definition changed. Runs from the job queue.
func (s *ViewService) ReassignView(ctx context.Context, viewID string) error {
	v, err := s.queries.GetViewByID(ctx, viewID)
	if err != nil {
		return fmt.Errorf("view not found: %w", err)
	}

	items, err := s.queries.ListRecentInteractions(ctx, time.Now().Add(-reassignWindow), reassignBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list interactions for reassignment: %w", err)
	}

	for i := range items {
		in := &items[i]
		matched, err := s.MatchesView(ctx, v, in)
		if err != nil {
			s.log.Warn("reassign match failed",
				zap.String("view_id", viewID),
				zap.String("interaction_id", in.ID),
				zap.Error(err))
			continue
		}
		member := contains(in.ViewIDs, viewID)
		switch {
		case matched && !member:
			err = s.queries.AddInteractionToView(ctx, in.ID, viewID)
		case !matched && member:
			err = s.queries.RemoveInteractionFromView(ctx, in.ID, viewID)
		}
		if err != nil {
			return fmt.Errorf("failed to reassign interaction %s: %w", in.ID, err)
		}
	}

	_ = s.bus.PublishView(viewID, map[string]interface{}{"type": "view.reassigned", "viewId": viewID})
	return nil
}

// compileFilter compiles an expr filter once and caches it by source
func (s *ViewService) compileFilter(src string) (*vm.Program, error) {
	s.mu.RLock()
	program, ok := s.programs[src]
	s.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(src,
		expr.Env(filterEnv(&model.Interaction{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.programs[src] = program
	s.mu.Unlock()
	return program, nil
}

// filterEnv exposes the interaction fields filter expressions can see
func filterEnv(in *model.Interaction) map[string]interface{} {
	return map[string]interface{}{
		"platform":        string(in.Platform),
		"type":            string(in.Type),
		"content":         in.Content,
		"author_handle":   in.AuthorHandle,
		"follower_count":  in.FollowerCount,
		"like_count":      in.LikeCount,
		"author_verified": in.AuthorVerified,
		"status":          string(in.Status),
		"tags":            in.Tags,
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
