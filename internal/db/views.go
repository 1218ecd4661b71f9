package db

import (
	"context"
	"time"

	"brandpulse/internal/model"

	"github.com/jackc/pgx/v5"
)

const viewColumns = `id, name, kind, filter, prompt, pinned, created_at, updated_at`

func scanView(row pgx.Row) (*model.View, error) {
	var (
		v                model.View
		filter, prompt   *string
		created, updated time.Time
	)
	if err := row.Scan(&v.ID, &v.Name, &v.Kind, &filter, &prompt, &v.Pinned, &created, &updated); err != nil {
		return nil, err
	}
	if filter != nil {
		v.Filter = *filter
	}
	if prompt != nil {
		v.Prompt = *prompt
	}
	v.CreatedAt = created.Format(time.RFC3339)
	v.UpdatedAt = updated.Format(time.RFC3339)
	return &v, nil
}

type CreateViewParams struct {
	ID     string
	Name   string
	Kind   string
	Filter string
	Prompt string
}

func (q *Queries) CreateView(ctx context.Context, p CreateViewParams) (*model.View, error) {
	return scanView(q.Pool.QueryRow(ctx,
		`INSERT INTO views (id, name, kind, filter, prompt)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING `+viewColumns,
		p.ID, p.Name, p.Kind, p.Filter, p.Prompt,
	))
}

func (q *Queries) GetViewByID(ctx context.Context, id string) (*model.View, error) {
	return scanView(q.Pool.QueryRow(ctx,
		`SELECT `+viewColumns+` FROM views WHERE id = $1`, id))
}

// ListViews returns all views, pinned first
func (q *Queries) ListViews(ctx context.Context) ([]model.View, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+viewColumns+` FROM views ORDER BY pinned DESC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]model.View, 0)
	for rows.Next() {
		var (
			v                model.View
			filter, prompt   *string
			created, updated time.Time
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.Kind, &filter, &prompt, &v.Pinned, &created, &updated); err != nil {
			return nil, err
		}
		if filter != nil {
			v.Filter = *filter
		}
		if prompt != nil {
			v.Prompt = *prompt
		}
		v.CreatedAt = created.Format(time.RFC3339)
		v.UpdatedAt = updated.Format(time.RFC3339)
		views = append(views, v)
	}
	return views, rows.Err()
}

type UpdateViewParams struct {
	ID     string
	Name   string
	Filter string
	Prompt string
}

func (q *Queries) UpdateView(ctx context.Context, p UpdateViewParams) (*model.View, error) {
	return scanView(q.Pool.QueryRow(ctx,
		`UPDATE views SET
			name = $2, filter = NULLIF($3, ''), prompt = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING `+viewColumns,
		p.ID, p.Name, p.Filter, p.Prompt,
	))
}

func (q *Queries) SetViewPinned(ctx context.Context, id string, pinned bool) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE views SET pinned = $2, updated_at = NOW() WHERE id = $1`,
		id, pinned)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteView(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx, `DELETE FROM views WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
