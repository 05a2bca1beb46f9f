package repository

import (
	"context"
	"fmt"

	"trade_portal_backend/internal/orders/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opListActive     = "orders.repository.list_active"
	opListByCustomer = "orders.repository.list_by_customer"
	opAssignMany     = "orders.repository.assign_many"
)

const orderColumns = `
	id, customer_id, order_number, status, assigned_to, delivery_address,
	payment_proof_uploaded, total_cents, created_at, payment_confirmed_at,
	processing_started_at, ready_to_ship_at, shipped_at, delivered_at,
	estimated_delivery_date`

// Repository reads orders and performs the bulk assignment write.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActive returns every non-archived order that is not delivered or cancelled.
func (r *Repository) ListActive(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE archived_at IS NULL AND status NOT IN ('delivered', 'cancelled')
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListActive, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListActive, err)
	}
	return orders, nil
}

// ListByCustomer returns all of a customer's non-archived orders, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1 AND archived_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListByCustomer, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListByCustomer, err)
	}
	return orders, nil
}

// AssignMany writes assignee onto every listed order in one statement and
// returns the ids that were actually updated. Archived or missing ids are
// simply absent from the result. There is no version check: the last write wins.
func (r *Repository) AssignMany(ctx context.Context, ids []uuid.UUID, assignee uuid.UUID) ([]uuid.UUID, error) {
	query := `
		UPDATE orders
		SET assigned_to = $2, updated_at = now()
		WHERE id = ANY($1::uuid[]) AND archived_at IS NULL
		RETURNING id`

	rows, err := r.pool.Query(ctx, query, ids, assignee)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opAssignMany, err)
	}
	updated, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opAssignMany, err)
	}
	return updated, nil
}

func scanOrder(row pgx.CollectableRow) (domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.OrderNumber, &status, &o.AssignedTo, &o.DeliveryAddress,
		&o.PaymentProofUploaded, &o.TotalCents, &o.CreatedAt, &o.PaymentConfirmedAt,
		&o.ProcessingStartedAt, &o.ReadyToShipAt, &o.ShippedAt, &o.DeliveredAt,
		&o.EstimatedDeliveryDate,
	)
	o.Status = domain.Status(status)
	return o, err
}
