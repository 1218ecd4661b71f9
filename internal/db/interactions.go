package db

import (
	"context"
	"fmt"
	"time"

	"brandpulse/internal/model"

	"github.com/jackc/pgx/v5"
)

const interactionColumns = `id, platform, kind, external_id, author_handle, author_id, content,
	follower_count, like_count, author_verified, view_ids, status, prev_status,
	pending_text, pending_workflow_id, tags, review_priority, created_at, updated_at`

type interactionRow struct {
	ID                string
	Platform          string
	Kind              string
	ExternalID        string
	AuthorHandle      string
	AuthorID          string
	Content           string
	FollowerCount     int64
	LikeCount         int64
	AuthorVerified    bool
	ViewIDs           []string
	Status            string
	PrevStatus        *string
	PendingText       *string
	PendingWorkflowID *string
	Tags              []string
	ReviewPriority    *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func scanInteraction(row pgx.Row) (*model.Interaction, error) {
	var r interactionRow
	if err := row.Scan(
		&r.ID, &r.Platform, &r.Kind, &r.ExternalID, &r.AuthorHandle, &r.AuthorID, &r.Content,
		&r.FollowerCount, &r.LikeCount, &r.AuthorVerified, &r.ViewIDs, &r.Status, &r.PrevStatus,
		&r.PendingText, &r.PendingWorkflowID, &r.Tags, &r.ReviewPriority, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return rowToInteraction(r), nil
}

func rowToInteraction(r interactionRow) *model.Interaction {
	in := &model.Interaction{
		ID:             r.ID,
		Platform:       model.Platform(r.Platform),
		Type:           model.InteractionType(r.Kind),
		ExternalID:     r.ExternalID,
		AuthorHandle:   r.AuthorHandle,
		AuthorID:       r.AuthorID,
		Content:        r.Content,
		FollowerCount:  r.FollowerCount,
		LikeCount:      r.LikeCount,
		AuthorVerified: r.AuthorVerified,
		ViewIDs:        r.ViewIDs,
		Status:         model.InteractionStatus(r.Status),
		Tags:           r.Tags,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),
	}
	if r.PrevStatus != nil {
		in.PrevStatus = model.InteractionStatus(*r.PrevStatus)
	}
	if r.PendingText != nil {
		in.PendingResponse = &model.PendingResponse{
			Text:       *r.PendingText,
			WorkflowID: r.PendingWorkflowID,
		}
	}
	if r.ReviewPriority != nil {
		in.ReviewPriority = *r.ReviewPriority
	}
	return in
}

type CreateInteractionParams struct {
	ID             string
	Platform       string
	Kind           string
	ExternalID     string
	AuthorHandle   string
	AuthorID       string
	Content        string
	FollowerCount  int64
	LikeCount      int64
	AuthorVerified bool
	ViewIDs        []string
}

func (q *Queries) CreateInteraction(ctx context.Context, p CreateInteractionParams) (*model.Interaction, error) {
	return scanInteraction(q.Pool.QueryRow(ctx,
		`INSERT INTO interactions (
			id, platform, kind, external_id, author_handle, author_id, content,
			follower_count, like_count, author_verified, view_ids, status, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'unread', '{}')
		RETURNING `+interactionColumns,
		p.ID, p.Platform, p.Kind, p.ExternalID, p.AuthorHandle, p.AuthorID, p.Content,
		p.FollowerCount, p.LikeCount, p.AuthorVerified, p.ViewIDs,
	))
}

func (q *Queries) GetInteraction(ctx context.Context, id string) (*model.Interaction, error) {
	return scanInteraction(q.Pool.QueryRow(ctx,
		`SELECT `+interactionColumns+` FROM interactions WHERE id = $1`, id))
}

// UpdateInteractionStatus moves the interaction to status, remembering
// prev so a later reject can revert.
func (q *Queries) UpdateInteractionStatus(ctx context.Context, id string, status, prev model.InteractionStatus) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET status = $2, prev_status = $3, updated_at = NOW() WHERE id = $1`,
		id, string(status), string(prev))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetPendingResponse stores an AI draft with provenance and moves the
// interaction to awaiting_approval in one write.
func (q *Queries) SetPendingResponse(ctx context.Context, id, text string, workflowID *string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET
			pending_text = $2, pending_workflow_id = $3,
			prev_status = status, status = 'awaiting_approval', updated_at = NOW()
		WHERE id = $1`,
		id, text, workflowID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ClearPendingResponse drops the draft and reverts the interaction to
// the status it had before entering awaiting_approval.
func (q *Queries) ClearPendingResponse(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET
			pending_text = NULL, pending_workflow_id = NULL,
			status = COALESCE(prev_status, 'unread'), prev_status = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'awaiting_approval'`,
		id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkReplied clears any pending draft and settles the interaction as
// replied. Used after a successful platform publish.
func (q *Queries) MarkReplied(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET
			pending_text = NULL, pending_workflow_id = NULL,
			prev_status = status, status = 'replied', updated_at = NOW()
		WHERE id = $1`,
		id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AddInteractionTags appends tags as a set union, so re-adding an
// existing tag is a no-op.
func (q *Queries) AddInteractionTags(ctx context.Context, id string, tags []string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET
			tags = ARRAY(SELECT DISTINCT t FROM unnest(tags || $2::text[]) AS t ORDER BY t),
			updated_at = NOW()
		WHERE id = $1`,
		id, tags)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) SetReviewPriority(ctx context.Context, id, priority string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET review_priority = $2, updated_at = NOW() WHERE id = $1`,
		id, priority)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListInteractionsParams filters the by-view inbox listing
type ListInteractionsParams struct {
	ViewID    string
	Tab       string   // "", all, unread, awaiting_approval, replied, archived
	Platforms []string // empty = all
	SortBy    string   // created, engagement
	Limit     int
	Offset    int
}

// ListInteractionsByView returns one inbox page plus the unpaged total
func (q *Queries) ListInteractionsByView(ctx context.Context, p ListInteractionsParams) ([]model.Interaction, int, error) {
	where := `WHERE $1 = ANY(view_ids)`
	args := []interface{}{p.ViewID}

	if p.Tab != "" && p.Tab != "all" {
		args = append(args, p.Tab)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if len(p.Platforms) > 0 {
		args = append(args, p.Platforms)
		where += fmt.Sprintf(" AND platform = ANY($%d)", len(args))
	}

	var total int
	if err := q.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM interactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := `ORDER BY created_at DESC`
	if p.SortBy == "engagement" {
		order = `ORDER BY like_count DESC, created_at DESC`
	}

	args = append(args, p.Limit, p.Offset)
	rows, err := q.Pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM interactions %s %s LIMIT $%d OFFSET $%d`,
			interactionColumns, where, order, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]model.Interaction, 0)
	for rows.Next() {
		var r interactionRow
		if err := rows.Scan(
			&r.ID, &r.Platform, &r.Kind, &r.ExternalID, &r.AuthorHandle, &r.AuthorID, &r.Content,
			&r.FollowerCount, &r.LikeCount, &r.AuthorVerified, &r.ViewIDs, &r.Status, &r.PrevStatus,
			&r.PendingText, &r.PendingWorkflowID, &r.Tags, &r.ReviewPriority, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, *rowToInteraction(r))
	}
	return items, total, rows.Err()
}

// BulkUpdateStatus applies one status transition to many interactions
func (q *Queries) BulkUpdateStatus(ctx context.Context, ids []string, status model.InteractionStatus) (int64, error) {
	result, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET prev_status = status, status = $2, updated_at = NOW()
		WHERE id = ANY($1)`,
		ids, string(status))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// AddInteractionToView adds a view id to an interaction's membership
// after the view's filter changes.
func (q *Queries) AddInteractionToView(ctx context.Context, interactionID, viewID string) error {
	_, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET
			view_ids = ARRAY(SELECT DISTINCT v FROM unnest(view_ids || $2::text[]) AS v),
			updated_at = NOW()
		WHERE id = $1`,
		interactionID, []string{viewID})
	return err
}

func (q *Queries) RemoveInteractionFromView(ctx context.Context, interactionID, viewID string) error {
	_, err := q.Pool.Exec(ctx,
		`UPDATE interactions SET view_ids = array_remove(view_ids, $2), updated_at = NOW()
		WHERE id = $1`,
		interactionID, viewID)
	return err
}

// ListRecentInteractions feeds view reassignment jobs
func (q *Queries) ListRecentInteractions(ctx context.Context, since time.Time, limit int) ([]model.Interaction, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+interactionColumns+` FROM interactions
		WHERE created_at >= $1 ORDER BY created_at DESC LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Interaction
	for rows.Next() {
		var r interactionRow
		if err := rows.Scan(
			&r.ID, &r.Platform, &r.Kind, &r.ExternalID, &r.AuthorHandle, &r.AuthorID, &r.Content,
			&r.FollowerCount, &r.LikeCount, &r.AuthorVerified, &r.ViewIDs, &r.Status, &r.PrevStatus,
			&r.PendingText, &r.PendingWorkflowID, &r.Tags, &r.ReviewPriority, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, *rowToInteraction(r))
	}
	return items, rows.Err()
}
