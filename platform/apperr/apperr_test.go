package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:    http.StatusNotFound,
		KindValidation:  http.StatusBadRequest,
		KindConflict:    http.StatusConflict,
		KindInternal:    http.StatusInternalServerError,
		KindUnavailable: http.StatusServiceUnavailable,
		KindUnknown:     http.StatusBadRequest,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Errorf("kind %d: expected %d, got %d", kind, want, got)
		}
	}
}

func TestIsFindsWrappedErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("load: %w", Wrap(KindUnavailable, "store unavailable", cause).WithOp("alerts.load"))

	if !Is(err, KindUnavailable) {
		t.Fatalf("expected KindUnavailable in chain")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to stay reachable")
	}
	if err.Error() != "load: alerts.load: store unavailable" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain errors have no kind")
	}
}
