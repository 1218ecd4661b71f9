package engine

import (
	"context"
	"fmt"

	"brandpulse/internal/metrics"
	"brandpulse/internal/model"

	"go.uber.org/zap"
)

// Publisher performs outbound platform side effects. Archive and
// flag_for_review never touch it.
type Publisher interface {
	Reply(ctx context.Context, in *model.Interaction, text string) error
	DeleteComment(ctx context.Context, in *model.Interaction) error
	BlockAuthor(ctx context.Context, in *model.Interaction) error
}

// DraftRequest asks the AI generator for a reply draft
type DraftRequest struct {
	Tone         string
	Instructions string
	Content      string
	AuthorHandle string
	Platform     model.Platform
}

// Generator drafts reply text for generate_response workflows
type Generator interface {
	Draft(ctx context.Context, req DraftRequest) (string, error)
}

// defaultModeration is the auto-moderator's verb per interaction type
// when the workflow config does not override it: delete comments, block
// DM/mention authors.
var defaultModeration = map[model.InteractionType]model.ModerationVerb{
	model.InteractionComment: model.VerbDeleteComment,
	model.InteractionDM:      model.VerbBlockAuthor,
	model.InteractionMention: model.VerbBlockAuthor,
}

// ActionExecutor performs the single action of a matched workflow. It
// is the only writer of automation-driven interaction state: the
// external side effect runs first, and interaction state mutates only
// after it succeeds, so a failed call leaves the interaction in its
// pre-dispatch state for retry.
type ActionExecutor struct {
	store     InteractionStore
	publisher Publisher
	generator Generator
	log       *zap.Logger
}

// NewActionExecutor creates an executor over the given collaborators
func NewActionExecutor(store InteractionStore, publisher Publisher, generator Generator, log *zap.Logger) *ActionExecutor {
	return &ActionExecutor{store: store, publisher: publisher, generator: generator, log: log}
}

// Execute runs the workflow's action against the interaction
func (x *ActionExecutor) Execute(ctx context.Context, w *model.Workflow, in *model.Interaction) error {
	var err error
	switch w.ActionType {
	case model.ActionAutoRespond:
		err = x.autoRespond(ctx, w, in)
	case model.ActionGenerateResponse:
		err = x.generateResponse(ctx, w, in)
	case model.ActionModerate:
		err = x.moderate(ctx, w, in)
	case model.ActionArchive:
		err = x.archive(ctx, in)
	case model.ActionFlagForReview:
		err = x.flagForReview(ctx, w, in)
	case model.ActionAddTag:
		err = x.addTags(ctx, w, in)
	default:
		err = fmt.Errorf("unknown action type: %s", w.ActionType)
	}
	if err == nil {
		metrics.ActionsTotal.WithLabelValues(string(w.ActionType)).Inc()
	}
	return err
}

func (x *ActionExecutor) autoRespond(ctx context.Context, w *model.Workflow, in *model.Interaction) error {
	if err := x.publisher.Reply(ctx, in, w.ActionConfig.ResponseText); err != nil {
		return fmt.Errorf("platform reply failed: %w", err)
	}
	if err := x.store.UpdateInteractionStatus(ctx, in.ID, model.StatusReplied, in.Status); err != nil {
		return fmt.Errorf("failed to mark replied: %w", err)
	}
	return nil
}

func (x *ActionExecutor) generateResponse(ctx context.Context, w *model.Workflow, in *model.Interaction) error {
	draft, err := x.generator.Draft(ctx, DraftRequest{
		Tone:         w.ActionConfig.Tone,
		Instructions: w.ActionConfig.AIInstructions,
		Content:      in.Content,
		AuthorHandle: in.AuthorHandle,
		Platform:     in.Platform,
	})
	if err != nil {
		return fmt.Errorf("response generation failed: %w", err)
	}
	// No platform write happens here; the draft waits for approval.
	if err := x.store.SetPendingResponse(ctx, in.ID, draft, &w.ID); err != nil {
		return fmt.Errorf("failed to store pending response: %w", err)
	}
	return nil
}

func (x *ActionExecutor) moderate(ctx context.Context, w *model.Workflow, in *model.Interaction) error {
	if w.SystemType == nil || *w.SystemType != model.SystemAutoModerator {
		return fmt.Errorf("moderate action is reserved for the auto-moderator workflow")
	}

	verb, ok := w.ActionConfig.Moderation[in.Type]
	if !ok {
		verb = defaultModeration[in.Type]
	}
	switch verb {
	case model.VerbDeleteComment:
		if err := x.publisher.DeleteComment(ctx, in); err != nil {
			return fmt.Errorf("platform delete failed: %w", err)
		}
	case model.VerbBlockAuthor:
		if err := x.publisher.BlockAuthor(ctx, in); err != nil {
			return fmt.Errorf("platform block failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown moderation verb: %s", verb)
	}

	if err := x.store.UpdateInteractionStatus(ctx, in.ID, model.StatusArchived, in.Status); err != nil {
		return fmt.Errorf("failed to archive moderated interaction: %w", err)
	}
	return nil
}

// archive only moves the interaction out of the inbox. It never issues
// a platform-level call.
func (x *ActionExecutor) archive(ctx context.Context, in *model.Interaction) error {
	if err := x.store.UpdateInteractionStatus(ctx, in.ID, model.StatusArchived, in.Status); err != nil {
		return fmt.Errorf("failed to archive: %w", err)
	}
	return nil
}

func (x *ActionExecutor) flagForReview(ctx context.Context, w *model.Workflow, in *model.Interaction) error {
	priority := w.ActionConfig.ReviewPriority
	if priority == "" {
		priority = "high"
	}
	if err := x.store.SetReviewPriority(ctx, in.ID, priority); err != nil {
		return fmt.Errorf("failed to flag for review: %w", err)
	}
	return nil
}

// addTags appends the configured tags, skipping any the interaction
// already carries. Re-dispatching the same tag is a no-op.
func (x *ActionExecutor) addTags(ctx context.Context, w *model.Workflow, in *model.Interaction) error {
	existing := make(map[string]bool, len(in.Tags))
	for _, t := range in.Tags {
		existing[t] = true
	}
	var missing []string
	for _, t := range w.ActionConfig.Tags {
		if !existing[t] {
			missing = append(missing, t)
			existing[t] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := x.store.AddInteractionTags(ctx, in.ID, missing); err != nil {
		return fmt.Errorf("failed to add tags: %w", err)
	}
	return nil
}
