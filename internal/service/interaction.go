package service

import (
	"context"
	"errors"
	"fmt"

	"brandpulse/internal/db"
	"brandpulse/internal/engine"
	"brandpulse/internal/model"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ErrNoPendingResponse is returned when approve/reject targets an
// interaction without a draft awaiting approval.
var ErrNoPendingResponse = errors.New("interaction has no pending response")

// InteractionService owns the inbox: ingestion, listing, manual
// responses, and the pending-response approval flow.
type InteractionService struct {
	queries   *db.Queries
	views     *ViewService
	publisher engine.Publisher
	generator engine.Generator
	jobClient JobClient
	bus       EventBus
	log       *zap.Logger
}

func NewInteractionService(
	queries *db.Queries,
	views *ViewService,
	publisher engine.Publisher,
	generator engine.Generator,
	jobClient JobClient,
	bus EventBus,
	log *zap.Logger,
) *InteractionService {
	return &InteractionService{
		queries:   queries,
		views:     views,
		publisher: publisher,
		generator: generator,
		jobClient: jobClient,
		bus:       bus,
		log:       log,
	}
}

// IngestInput is one inbound interaction from a platform connector
type IngestInput struct {
	Platform       model.Platform        `json:"platform"`
	Type           model.InteractionType `json:"type"`
	ExternalID     string                `json:"externalId"`
	AuthorHandle   string                `json:"authorHandle"`
	AuthorID       string                `json:"authorId"`
	Content        string                `json:"content"`
	FollowerCount  int64                 `json:"followerCount"`
	LikeCount      int64                 `json:"likeCount"`
	AuthorVerified bool                  `json:"authorVerified"`
}

// Ingest stores an inbound interaction, computes its view membership,
// and queues a dispatch pass. View assignment happens here so both
// inbox listing and workflow trigger filters see stable membership.
func (s *InteractionService) Ingest(ctx context.Context, in IngestInput) (*model.Interaction, error) {
	if !model.ValidPlatform(in.Platform) {
		return nil, fmt.Errorf("invalid platform: %s", in.Platform)
	}
	if !model.ValidInteractionType(in.Type) {
		return nil, fmt.Errorf("invalid interaction type: %s", in.Type)
	}
	if in.Content == "" {
		return nil, fmt.Errorf("interaction content is required")
	}

	id := ulid.Make().String()
	viewIDs := s.views.AssignViews(ctx, &model.Interaction{
		ID:             id,
		Platform:       in.Platform,
		Type:           in.Type,
		AuthorHandle:   in.AuthorHandle,
		Content:        in.Content,
		FollowerCount:  in.FollowerCount,
		LikeCount:      in.LikeCount,
		AuthorVerified: in.AuthorVerified,
		Status:         model.StatusUnread,
	})

	created, err := s.queries.CreateInteraction(ctx, db.CreateInteractionParams{
		ID:             id,
		Platform:       string(in.Platform),
		Kind:           string(in.Type),
		ExternalID:     in.ExternalID,
		AuthorHandle:   in.AuthorHandle,
		AuthorID:       in.AuthorID,
		Content:        in.Content,
		FollowerCount:  in.FollowerCount,
		LikeCount:      in.LikeCount,
		AuthorVerified: in.AuthorVerified,
		ViewIDs:        viewIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store interaction: %w", err)
	}

	if err := s.jobClient.EnqueueDispatch(created.ID); err != nil {
		// The interaction is stored either way; dispatch can be replayed.
		s.log.Error("failed to enqueue dispatch",
			zap.String("interaction_id", created.ID),
			zap.Error(err))
	}

	s.publishInteraction(created.ID, "interaction.created")
	return created, nil
}

func (s *InteractionService) GetInteraction(ctx context.Context, id string) (*model.Interaction, error) {
	in, err := s.queries.GetInteraction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("interaction not found: %w", err)
	}
	return in, nil
}

// ListByView returns one inbox page for a view
func (s *InteractionService) ListByView(ctx context.Context, p db.ListInteractionsParams) ([]model.Interaction, int, error) {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return s.queries.ListInteractionsByView(ctx, p)
}

// MarkRead moves an interaction to read
func (s *InteractionService) MarkRead(ctx context.Context, id string) error {
	in, err := s.queries.GetInteraction(ctx, id)
	if err != nil {
		return fmt.Errorf("interaction not found: %w", err)
	}
	if in.Status != model.StatusUnread {
		return nil
	}
	if err := s.queries.UpdateInteractionStatus(ctx, id, model.StatusRead, in.Status); err != nil {
		return err
	}
	s.publishInteraction(id, "interaction.updated")
	return nil
}

// GenerateResponse drafts a reply on demand, outside any workflow. The
// draft lands in the approval queue with no workflow provenance.
func (s *InteractionService) GenerateResponse(ctx context.Context, id, tone, instructions string) (*model.Interaction, error) {
	in, err := s.queries.GetInteraction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("interaction not found: %w", err)
	}

	draft, err := s.generator.Draft(ctx, engine.DraftRequest{
		Tone:         tone,
		Instructions: instructions,
		Content:      in.Content,
		AuthorHandle: in.AuthorHandle,
		Platform:     in.Platform,
	})
	if err != nil {
		return nil, fmt.Errorf("draft generation failed: %w", err)
	}

	if err := s.queries.SetPendingResponse(ctx, id, draft, nil); err != nil {
		return nil, fmt.Errorf("failed to store draft: %w", err)
	}
	s.publishInteraction(id, "interaction.updated")
	return s.queries.GetInteraction(ctx, id)
}

// RespondInput is a manual reply from the inbox
type RespondInput struct {
	Text               string `json:"text"`
	SendImmediately    bool   `json:"sendImmediately"`
	AddToApprovalQueue bool   `json:"addToApprovalQueue"`
}

// Respond handles a manual reply: publish now, or park the text in the
// approval queue for a second pair of eyes.
func (s *InteractionService) Respond(ctx context.Context, id string, in RespondInput) error {
	if in.Text == "" {
		return fmt.Errorf("response text is required")
	}
	target, err := s.queries.GetInteraction(ctx, id)
	if err != nil {
		return fmt.Errorf("interaction not found: %w", err)
	}

	switch {
	case in.SendImmediately:
		if err := s.publisher.Reply(ctx, target, in.Text); err != nil {
			return fmt.Errorf("platform reply failed: %w", err)
		}
		if err := s.queries.MarkReplied(ctx, id); err != nil {
			return err
		}
	case in.AddToApprovalQueue:
		if err := s.queries.SetPendingResponse(ctx, id, in.Text, nil); err != nil {
			return err
		}
	default:
		return fmt.Errorf("either sendImmediately or addToApprovalQueue must be set")
	}

	s.publishInteraction(id, "interaction.updated")
	return nil
}

// ApproveResponse publishes the pending draft. The platform reply runs
// first; the interaction settles as replied only after it succeeds.
func (s *InteractionService) ApproveResponse(ctx context.Context, id string) error {
	in, err := s.queries.GetInteraction(ctx, id)
	if err != nil {
		return fmt.Errorf("interaction not found: %w", err)
	}
	if in.PendingResponse == nil || in.Status != model.StatusAwaitingApproval {
		return ErrNoPendingResponse
	}

	if err := s.publisher.Reply(ctx, in, in.PendingResponse.Text); err != nil {
		return fmt.Errorf("platform reply failed: %w", err)
	}
	if err := s.queries.MarkReplied(ctx, id); err != nil {
		return err
	}
	s.publishInteraction(id, "interaction.updated")
	return nil
}

// RejectPendingResponse discards the draft and reverts the interaction
// to the status it held before awaiting approval.
func (s *InteractionService) RejectPendingResponse(ctx context.Context, id string) error {
	if err := s.queries.ClearPendingResponse(ctx, id); err != nil {
		return ErrNoPendingResponse
	}
	s.publishInteraction(id, "interaction.updated")
	return nil
}

// BulkActionInput applies one operation to many interactions
type BulkActionInput struct {
	IDs    []string `json:"interactionIds"`
	Action string   `json:"action"` // mark_read, archive, flag_for_review
}

func (s *InteractionService) BulkAction(ctx context.Context, in BulkActionInput) (int64, error) {
	if len(in.IDs) == 0 {
		return 0, fmt.Errorf("at least one interaction id is required")
	}

	var affected int64
	var err error
	switch in.Action {
	case "mark_read":
		affected, err = s.queries.BulkUpdateStatus(ctx, in.IDs, model.StatusRead)
	case "archive":
		affected, err = s.queries.BulkUpdateStatus(ctx, in.IDs, model.StatusArchived)
	case "flag_for_review":
		for _, id := range in.IDs {
			if err := s.queries.SetReviewPriority(ctx, id, "high"); err != nil {
				return affected, err
			}
			affected++
		}
	default:
		return 0, fmt.Errorf("unknown bulk action: %s", in.Action)
	}
	if err != nil {
		return 0, err
	}

	for _, id := range in.IDs {
		s.publishInteraction(id, "interaction.updated")
	}
	return affected, nil
}

func (s *InteractionService) publishInteraction(id, eventType string) {
	if err := s.bus.PublishInteraction(id, map[string]interface{}{
		"type":          eventType,
		"interactionId": id,
	}); err != nil {
		s.log.Warn("failed to publish interaction event",
			zap.String("interaction_id", id),
			zap.Error(err))
	}
}
