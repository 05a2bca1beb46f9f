package alerts

import (
	"context"
	"slices"

	"trade_portal_backend/platform/apperr"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Service serves a customer's dashboard alerts. The dismissal session is
// keyed by customer id and lasts for the dismissal store's TTL.
type Service struct {
	loader SnapshotLoader
	store  DismissalStore
	clock  clock.Clock
	log    *logger.Logger
}

func NewService(loader SnapshotLoader, store DismissalStore, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{loader: loader, store: store, clock: clk, log: log}
}

// Fetch builds the customer's alerts and prunes dismissals whose alert is gone.
func (s *Service) Fetch(ctx context.Context, customerID uuid.UUID) ([]Alert, error) {
	snap, err := s.loader.Load(ctx, customerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load dashboard data", err)
	}

	session := customerID.String()
	dismissed, err := s.store.List(ctx, session)
	if err != nil {
		s.log.WithContext(ctx).Warn("alerts: dismissal lookup failed", "customerId", customerID, "error", err)
		dismissed = nil
	}

	candidates := Candidates(snap, s.clock.Now())
	kept := PruneDismissed(dismissed, candidates)
	if stale := staleDismissals(dismissed, kept); len(stale) > 0 {
		if err := s.store.Remove(ctx, session, stale...); err != nil {
			s.log.WithContext(ctx).Warn("alerts: dismissal prune failed", "customerId", customerID, "error", err)
		}
	}

	return rank(candidates, kept), nil
}

// staleDismissals returns the ids in dismissed that pruning dropped.
func staleDismissals(dismissed, kept []string) []string {
	var stale []string
	for _, id := range dismissed {
		if !slices.Contains(kept, id) {
			stale = append(stale, id)
		}
	}
	return stale
}

// Dismiss hides alert id for the rest of the session.
func (s *Service) Dismiss(ctx context.Context, customerID uuid.UUID, id string) error {
	if !IsKnownID(id) {
		return apperr.Validation("unknown alert id")
	}
	if err := s.store.Add(ctx, customerID.String(), id); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to dismiss alert", err)
	}
	return nil
}
