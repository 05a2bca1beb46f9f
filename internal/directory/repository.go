// Package directory resolves the admin population and user contact details
// for notification fan-out and email delivery.
package directory

import (
	"context"
	"errors"
	"fmt"

	"trade_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opListAdminIDs = "directory.repository.list_admin_ids"
	opGetContact   = "directory.repository.get_contact"
)

// Contact is what the email channel needs to address a user.
type Contact struct {
	UserID   uuid.UUID
	Email    string
	FullName string
	Role     string
}

// Repository reads users from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListAdminIDs returns every active admin, oldest account first.
func (r *Repository) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM users
		WHERE role = 'admin' AND is_active
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListAdminIDs, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListAdminIDs, err)
	}
	return ids, nil
}

// GetContact returns the user's email and display name.
func (r *Repository) GetContact(ctx context.Context, userID uuid.UUID) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, role
		FROM users
		WHERE id = $1 AND is_active
	`, userID).Scan(&c.UserID, &c.Email, &c.FullName, &c.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, apperr.NotFound("user not found").WithOp(opGetContact)
	}
	if err != nil {
		return Contact{}, fmt.Errorf("%s: %w", opGetContact, err)
	}
	return c, nil
}
