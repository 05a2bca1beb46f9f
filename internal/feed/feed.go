// Package feed is the change feed that drives queue recomputation.
// Subscribers register per table and receive every change published for it.
package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Table names a source of changes.
type Table string

const (
	TableOrders              Table = "orders"
	TableQuotes              Table = "quotes"
	TableIssues              Table = "issues"
	TableInvoices            Table = "invoices"
	TableActionNotifications Table = "action_notifications"
)

// Op is the kind of row mutation.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is the feed payload.
type Change struct {
	Table Table     `json:"table"`
	Op    Op        `json:"op"`
	RowID uuid.UUID `json:"rowId"`
	At    time.Time `json:"at"`
}

// Handler receives changes. It must not block for long.
type Handler func(Change)

// Subscription is returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}

// Publisher is the write side of the feed.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Feed is a publish/subscribe change feed.
type Feed interface {
	Publisher
	Subscribe(table Table, handler Handler) Subscription
}
