// Package opserr defines the error taxonomy of the operations engine and its
// mapping onto platform/apperr for the HTTP boundary.
package opserr

import (
	"errors"
	"fmt"

	"trade_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// ErrorKind classifies engine errors.
type ErrorKind int

const (
	KindEmptySelection ErrorKind = iota + 1
	KindAssignmentFailed
	KindNotificationWriteFailed
	KindSideChannelFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindEmptySelection:
		return "empty_selection"
	case KindAssignmentFailed:
		return "assignment_failed"
	case KindNotificationWriteFailed:
		return "notification_write_failed"
	case KindSideChannelFailed:
		return "side_channel_failed"
	default:
		return "unknown"
	}
}

// Error is an engine error.
type Error struct {
	Kind    ErrorKind
	Reason  string
	Channel string      // side channel, for KindSideChannelFailed
	IDs     []uuid.UUID // failed ids, for KindAssignmentFailed
	Partial bool        // some ids succeeded
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Channel != "" {
		msg += " (" + e.Channel + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// EmptySelection is returned before any I/O when nothing is selected.
func EmptySelection() *Error {
	return &Error{Kind: KindEmptySelection, Reason: "no orders selected"}
}

// AssignmentFailed reports ids that were not assigned. partial is true when
// other ids in the same request succeeded.
func AssignmentFailed(reason string, failed []uuid.UUID, partial bool, cause error) *Error {
	return &Error{Kind: KindAssignmentFailed, Reason: reason, IDs: failed, Partial: partial, Err: cause}
}

// NotificationWriteFailed reports a failed notification store write.
func NotificationWriteFailed(reason string, cause error) *Error {
	return &Error{Kind: KindNotificationWriteFailed, Reason: reason, Err: cause}
}

// SideChannelFailed reports a failed push or email delivery. Callers log it; it is never returned to clients.
func SideChannelFailed(channel, reason string, cause error) *Error {
	return &Error{Kind: KindSideChannelFailed, Channel: channel, Reason: reason, Err: cause}
}

// Is reports whether err is an engine error of the given kind.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ToAppErr converts an engine error into the apperr used by httpkit.HandleError.
// Errors that are not engine errors are returned unchanged.
func ToAppErr(err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}

	switch e.Kind {
	case KindEmptySelection:
		return apperr.Wrap(apperr.KindBadRequest, e.Reason, e)
	case KindAssignmentFailed:
		details := map[string]any{"failedIds": e.IDs, "partial": e.Partial}
		if e.Partial {
			return apperr.Wrap(apperr.KindConflict, fmt.Sprintf("%d orders could not be assigned", len(e.IDs)), e).WithDetails(details)
		}
		return apperr.Wrap(apperr.KindInternal, "assignment failed", e).WithDetails(details)
	case KindNotificationWriteFailed:
		return apperr.Wrap(apperr.KindInternal, "failed to store notification", e)
	default:
		return apperr.Wrap(apperr.KindInternal, e.Kind.String(), e)
	}
}
