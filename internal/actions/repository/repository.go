package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opUpsert          = "actions.repository.upsert"
	opResolveByID     = "actions.repository.resolve_by_id"
	opResolveByEntity = "actions.repository.resolve_by_entity"
	opResolveByType   = "actions.repository.resolve_by_type"
	opGetByID         = "actions.repository.get_by_id"
	opListPending     = "actions.repository.list_pending"
	opCountPending    = "actions.repository.count_pending"
	opListOpenByType  = "actions.repository.list_open_by_type"
)

const notificationColumns = `
	id, user_id, role, type, entity_type, entity_id, title, message, deep_link,
	payload, requires_action, resolved, resolved_at, emit_count, created_at, last_emitted_at`

// PgRepository stores notifications in PostgreSQL. Deduplication relies on
// the partial unique index uq_action_notifications_open.
type PgRepository struct {
	pool *pgxpool.Pool
}

// New creates a new actions repository
func New(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

func (r *PgRepository) Upsert(ctx context.Context, n domain.Notification) (UpsertResult, error) {
	query := `
		INSERT INTO action_notifications (
			id, user_id, role, type, entity_type, entity_id, title, message, deep_link,
			payload, requires_action, resolved, emit_count, created_at, last_emitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, FALSE, 1, $11, $11)
		ON CONFLICT (user_id, entity_type, entity_id, type) WHERE resolved = FALSE
		DO UPDATE SET
			title = EXCLUDED.title,
			message = EXCLUDED.message,
			deep_link = EXCLUDED.deep_link,
			payload = EXCLUDED.payload,
			last_emitted_at = EXCLUDED.last_emitted_at,
			emit_count = action_notifications.emit_count + 1
		RETURNING ` + notificationColumns + `, (xmax = 0) AS inserted`

	payload := n.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	row := r.pool.QueryRow(ctx, query,
		n.ID, n.UserID, string(n.Role), string(n.Type), string(n.EntityType), n.EntityID,
		n.Title, n.Message, n.DeepLink, payload, n.LastEmittedAt,
	)

	var out domain.Notification
	var inserted bool
	if err := scanInto(row, &out, &inserted); err != nil {
		return UpsertResult{}, fmt.Errorf("%s: %w", opUpsert, err)
	}
	return UpsertResult{Notification: out, Created: inserted}, nil
}

func (r *PgRepository) ResolveByID(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE action_notifications
		SET resolved = TRUE, resolved_at = $2
		WHERE id = $1 AND resolved = FALSE`, id, at)
	if err != nil {
		return false, fmt.Errorf("%s: %w", opResolveByID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) ResolveByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, types []domain.Type, at time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE action_notifications
		SET resolved = TRUE, resolved_at = $3
		WHERE entity_type = $1 AND entity_id = $2 AND resolved = FALSE
		  AND (cardinality($4::text[]) = 0 OR type = ANY($4::text[]))
		RETURNING id`

	rows, err := r.pool.Query(ctx, query, string(entityType), entityID, at, typeStrings(types))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opResolveByEntity, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opResolveByEntity, err)
	}
	return ids, nil
}

func (r *PgRepository) ResolveByTypeForUser(ctx context.Context, userID uuid.UUID, types []domain.Type, at time.Time) ([]uuid.UUID, error) {
	if len(types) == 0 {
		return nil, apperr.Validation("at least one action type is required").WithOp(opResolveByType)
	}
	query := `
		UPDATE action_notifications
		SET resolved = TRUE, resolved_at = $3
		WHERE user_id = $1 AND type = ANY($2::text[]) AND resolved = FALSE
		RETURNING id`

	rows, err := r.pool.Query(ctx, query, userID, typeStrings(types), at)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opResolveByType, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opResolveByType, err)
	}
	return ids, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+`
		FROM action_notifications
		WHERE id = $1`, id)

	var n domain.Notification
	if err := scanInto(row, &n, nil); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return domain.Notification{}, err
		}
		return domain.Notification{}, fmt.Errorf("%s: %w", opGetByID, err)
	}
	return n, nil
}

func (r *PgRepository) ListPending(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + notificationColumns + `
		FROM action_notifications
		WHERE user_id = $1 AND resolved = FALSE
		ORDER BY last_emitted_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListPending, err)
	}
	defer rows.Close()

	items := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := scanInto(rows, &n, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", opListPending, err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", opListPending, err)
	}
	return items, nil
}

func (r *PgRepository) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM action_notifications
		WHERE user_id = $1 AND resolved = FALSE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opCountPending, err)
	}
	return count, nil
}

func (r *PgRepository) ListOpenByType(ctx context.Context, t domain.Type) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM action_notifications
		WHERE type = $1 AND resolved = FALSE`

	rows, err := r.pool.Query(ctx, query, string(t))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListOpenByType, err)
	}
	defer rows.Close()

	items := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := scanInto(rows, &n, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", opListOpenByType, err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", opListOpenByType, err)
	}
	return items, nil
}

func scanInto(row pgx.Row, n *domain.Notification, inserted *bool) error {
	var role, typ, entityType string
	dest := []any{
		&n.ID, &n.UserID, &role, &typ, &entityType, &n.EntityID, &n.Title, &n.Message, &n.DeepLink,
		&n.Payload, &n.RequiresAction, &n.Resolved, &n.ResolvedAt, &n.EmitCount, &n.CreatedAt, &n.LastEmittedAt,
	}
	if inserted != nil {
		dest = append(dest, inserted)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("notification not found")
		}
		return err
	}
	n.Role = domain.Role(role)
	n.Type = domain.Type(typ)
	n.EntityType = domain.EntityType(entityType)
	return nil
}

func typeStrings(types []domain.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
