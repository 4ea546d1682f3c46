package services

import (
	"context"
	"errors"
	"time"

	"github.com/qaplus/widget-backend/internal/storage"
)

// Denial and fault errors produced by the access-control services. The
// handlers map these onto HTTP statuses; anything not in this set (and not
// a storage sentinel) is treated as a transient store failure.
var (
	// ErrMissingOrigin: no hostname could be extracted from Origin or Referer.
	ErrMissingOrigin = errors.New("missing origin")
	// ErrDomainForbidden: the embedding hostname is not on the chatbot's whitelist.
	ErrDomainForbidden = errors.New("domain not whitelisted")
	// ErrTenantSuspended: the owning tenant is suspended by billing.
	ErrTenantSuspended = errors.New("tenant suspended")
	// ErrQuotaExceeded: the tenant's monthly query cap is reached.
	ErrQuotaExceeded = errors.New("monthly quota exceeded")
	// ErrPlanConfiguration: a tenant references a plan code absent from the
	// catalog. Data-integrity fault, never exposed to callers.
	ErrPlanConfiguration = errors.New("tenant references unknown plan")
	// ErrAnswerUnavailable: the answering pipeline failed or is not configured.
	ErrAnswerUnavailable = errors.New("answering pipeline unavailable")
)

// IsDenial reports whether the error is a deliberate access decision
// rather than an infrastructure failure.
func IsDenial(err error) bool {
	switch {
	case errors.Is(err, ErrMissingOrigin),
		errors.Is(err, ErrDomainForbidden),
		errors.Is(err, ErrTenantSuspended),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, storage.ErrChatbotNotFound),
		errors.Is(err, storage.ErrTenantNotFound),
		errors.Is(err, storage.ErrSessionNotFound),
		errors.Is(err, storage.ErrSessionExpired),
		errors.Is(err, storage.ErrSessionExhausted):
		return true
	}
	return false
}

// retryBackoff is the pause before the single internal retry on a
// transient store failure.
const retryBackoff = 100 * time.Millisecond

// withRetry runs fn, retrying exactly once after a short backoff when the
// failure is transient (not a denial, not a configuration fault, not a
// cancelled context). Denials are terminal for the request.
func withRetry(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || IsDenial(err) || errors.Is(err, ErrPlanConfiguration) || errors.Is(err, storage.ErrPlanNotFound) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}

	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return err
	}
	return fn(ctx)
}
