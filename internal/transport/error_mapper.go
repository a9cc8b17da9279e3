package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/domain"
	"github.com/gearboxe-market/messaging/internal/observability"
)

// DomainError maps a domain error onto an HTTP response. Validation failures
// are the caller's problem; anything unclassified is logged server-side, with
// the request's trace ids, and reported as a generic 500.
func DomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrSelfMessage),
		errors.Is(err, domain.ErrMessageTooLarge),
		errors.Is(err, domain.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())

	case errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrMessageNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusGatewayTimeout, "timeout", "request timed out")

	default:
		observability.GetLogger(ctx).Error("internal error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
