package alerts

import (
	"context"
	"errors"
	"fmt"

	orderdomain "trade_portal_backend/internal/orders/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const (
	opLoadQuotes   = "alerts.repository.load_quotes"
	opLoadIssues   = "alerts.repository.load_issues"
	opLoadInvoices = "alerts.repository.load_invoices"
	opLoadProfile  = "alerts.repository.load_profile"
)

// SnapshotLoader reads a customer's snapshot.
type SnapshotLoader interface {
	Load(ctx context.Context, customerID uuid.UUID) (Snapshot, error)
}

// OrderLister reads a customer's orders, newest first.
type OrderLister interface {
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]orderdomain.Order, error)
}

// Repository loads snapshots from PostgreSQL. The entity slices are read
// concurrently; any failure fails the load.
type Repository struct {
	pool   *pgxpool.Pool
	orders OrderLister
}

func NewRepository(pool *pgxpool.Pool, orders OrderLister) *Repository {
	return &Repository{pool: pool, orders: orders}
}

func (r *Repository) Load(ctx context.Context, customerID uuid.UUID) (Snapshot, error) {
	snap := Snapshot{CustomerID: customerID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := r.orders.ListByCustomer(gctx, customerID)
		snap.Orders = orders
		return err
	})
	g.Go(func() error {
		quotes, err := r.quotes(gctx, customerID)
		snap.Quotes = quotes
		return err
	})
	g.Go(func() error {
		issues, err := r.issues(gctx, customerID)
		snap.Issues = issues
		return err
	})
	g.Go(func() error {
		invoices, err := r.invoices(gctx, customerID)
		snap.Invoices = invoices
		return err
	})
	g.Go(func() error {
		profile, err := r.profile(gctx, customerID)
		snap.Profile = profile
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (r *Repository) quotes(ctx context.Context, customerID uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quote_number, status, expires_at, created_at
		FROM quotes
		WHERE customer_id = $1 AND status NOT IN ('accepted', 'rejected', 'expired', 'cancelled')
		ORDER BY expires_at ASC NULLS LAST, created_at ASC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opLoadQuotes, err)
	}
	quotes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Quote, error) {
		var q Quote
		err := row.Scan(&q.ID, &q.QuoteNumber, &q.Status, &q.ExpiresAt, &q.CreatedAt)
		return q, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opLoadQuotes, err)
	}
	return quotes, nil
}

func (r *Repository) issues(ctx context.Context, customerID uuid.UUID) ([]Issue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, subject, status, customer_visible, created_at
		FROM issues
		WHERE customer_id = $1 AND status NOT IN ('resolved', 'closed')
		ORDER BY created_at ASC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opLoadIssues, err)
	}
	issues, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Issue, error) {
		var i Issue
		err := row.Scan(&i.ID, &i.OrderID, &i.Subject, &i.Status, &i.CustomerVisible, &i.CreatedAt)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opLoadIssues, err)
	}
	return issues, nil
}

func (r *Repository) invoices(ctx context.Context, customerID uuid.UUID) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, invoice_number, status, amount_cents, due_date
		FROM invoices
		WHERE customer_id = $1 AND status IN ('unpaid', 'overdue')
		ORDER BY due_date ASC NULLS LAST, created_at ASC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opLoadInvoices, err)
	}
	invoices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) {
		var i Invoice
		err := row.Scan(&i.ID, &i.OrderID, &i.InvoiceNumber, &i.Status, &i.AmountCents, &i.DueDate)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opLoadInvoices, err)
	}
	return invoices, nil
}

func (r *Repository) profile(ctx context.Context, customerID uuid.UUID) (*Profile, error) {
	var company, phoneNumber, address *string
	err := r.pool.QueryRow(ctx, `
		SELECT company_name, phone, default_address
		FROM customer_profiles
		WHERE user_id = $1`, customerID).Scan(&company, &phoneNumber, &address)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opLoadProfile, err)
	}
	return &Profile{
		CompanyName:    deref(company),
		Phone:          deref(phoneNumber),
		DefaultAddress: deref(address),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ SnapshotLoader = (*Repository)(nil)
