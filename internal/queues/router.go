// Package queues groups classified orders into the operator work queues.
// Routing is recomputed in full on every call.
package queues

import (
	"sort"
	"time"

	"trade_portal_backend/internal/orders/domain"
	"trade_portal_backend/internal/sla"

	"github.com/google/uuid"
)

// Name identifies a queue.
type Name string

const (
	AwaitingPayment    Name = "awaiting_payment"
	AwaitingProcessing Name = "awaiting_processing"
	AtRisk             Name = "at_risk"
	Unassigned         Name = "unassigned"
	MyQueue            Name = "my_queue"
)

// Names lists every queue in display order.
var Names = []Name{AwaitingPayment, AwaitingProcessing, AtRisk, Unassigned, MyQueue}

// Classifier is the subset of the SLA classifier the router needs.
type Classifier interface {
	Classify(o domain.Order, now time.Time) sla.Classification
}

// Entry is a queued order together with its classification.
type Entry struct {
	Order          domain.Order       `json:"order"`
	Classification sla.Classification `json:"classification"`
}

// Queues is the routed snapshot. An order may sit in several queues.
type Queues struct {
	Lists  map[Name][]Entry `json:"lists"`
	Counts map[Name]int     `json:"counts"`
}

// Get returns the entries of one queue.
func (q Queues) Get(name Name) []Entry {
	return q.Lists[name]
}

// Classifications returns one classification per routed order.
func (q Queues) Classifications() []sla.Classification {
	seen := make(map[uuid.UUID]bool)
	var out []sla.Classification
	for _, name := range Names {
		for _, e := range q.Lists[name] {
			if seen[e.Order.ID] {
				continue
			}
			seen[e.Order.ID] = true
			out = append(out, e.Classification)
		}
	}
	return out
}

// Route classifies every active order and places it in each queue whose rule it matches.
func Route(orders []domain.Order, actorID uuid.UUID, classifier Classifier, now time.Time) Queues {
	lists := make(map[Name][]Entry, len(Names))
	for _, name := range Names {
		lists[name] = []Entry{}
	}

	for _, o := range orders {
		if !o.IsActive() {
			continue
		}
		e := Entry{Order: o, Classification: classifier.Classify(o, now)}

		switch o.Status {
		case domain.StatusPendingPayment:
			lists[AwaitingPayment] = append(lists[AwaitingPayment], e)
		case domain.StatusOrderConfirmed, domain.StatusPaymentReceived:
			lists[AwaitingProcessing] = append(lists[AwaitingProcessing], e)
		}
		if e.Classification.RiskLevel.Severity() > 0 {
			lists[AtRisk] = append(lists[AtRisk], e)
		}
		if o.AssignedTo == nil {
			lists[Unassigned] = append(lists[Unassigned], e)
		} else if actorID != uuid.Nil && *o.AssignedTo == actorID {
			lists[MyQueue] = append(lists[MyQueue], e)
		}
	}

	sortOldestFirst(lists[AwaitingPayment])
	sortOldestFirst(lists[AwaitingProcessing])
	sortOldestFirst(lists[Unassigned])
	SortByUrgency(lists[AtRisk])
	SortByUrgency(lists[MyQueue])

	counts := make(map[Name]int, len(Names))
	for _, name := range Names {
		counts[name] = len(lists[name])
	}
	return Queues{Lists: lists, Counts: counts}
}

// SortByUrgency orders entries by severity desc, days in stage desc,
// created_at asc, then id.
func SortByUrgency(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if sa, sb := a.Classification.RiskLevel.Severity(), b.Classification.RiskLevel.Severity(); sa != sb {
			return sa > sb
		}
		if a.Classification.DaysInCurrentStage != b.Classification.DaysInCurrentStage {
			return a.Classification.DaysInCurrentStage > b.Classification.DaysInCurrentStage
		}
		if !a.Order.CreatedAt.Equal(b.Order.CreatedAt) {
			return a.Order.CreatedAt.Before(b.Order.CreatedAt)
		}
		return a.Order.ID.String() < b.Order.ID.String()
	})
}

func sortOldestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Order, entries[j].Order
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}
