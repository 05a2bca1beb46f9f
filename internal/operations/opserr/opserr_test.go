package opserr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"trade_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var ae *apperr.Error
	if !errors.As(ToAppErr(err), &ae) {
		t.Fatalf("expected apperr.Error, got %T", ToAppErr(err))
	}
	return ae.HTTPStatus()
}

func TestToAppErr_StatusMapping(t *testing.T) {
	ids := []uuid.UUID{uuid.New()}
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty selection", EmptySelection(), http.StatusBadRequest},
		{"partial assignment", AssignmentFailed("not found", ids, true, nil), http.StatusConflict},
		{"total assignment", AssignmentFailed("db down", ids, false, errors.New("conn refused")), http.StatusInternalServerError},
		{"notification write", NotificationWriteFailed("insert", errors.New("boom")), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("handler: %w", EmptySelection()), http.StatusBadRequest},
	}
	for _, tc := range cases {
		if got := statusOf(t, tc.err); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestToAppErr_PassesThroughForeignErrors(t *testing.T) {
	plain := errors.New("plain")
	if got := ToAppErr(plain); got != plain {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestIsAndUnwrap(t *testing.T) {
	cause := errors.New("smtp timeout")
	err := fmt.Errorf("dispatch: %w", SideChannelFailed("email", "send", cause))

	if !Is(err, KindSideChannelFailed) {
		t.Fatalf("expected side channel kind")
	}
	if Is(err, KindAssignmentFailed) {
		t.Fatalf("unexpected assignment kind")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
}
