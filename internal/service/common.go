package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// ReadRetry bounds retries of idempotent reads on transient store failures.
type ReadRetry struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultReadRetry is used when no policy is configured.
var DefaultReadRetry = ReadRetry{Attempts: 3, Backoff: 100 * time.Millisecond}

// TransitionRecorder receives applied lifecycle actions.
type TransitionRecorder interface {
	RecordTransition(action, toStatus string)
}

// linearBackOff waits step, 2*step, 3*step... between attempts.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.step * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// withReadRetry runs read until it succeeds, fails permanently, or attempts run out.
// Only errors classified as transient are retried.
func withReadRetry[T any](ctx context.Context, policy ReadRetry, read func(context.Context) (T, error)) (T, error) {
	attempts := max(policy.Attempts, 1)
	policyBackOff := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: policy.Backoff}, uint64(attempts-1)),
		ctx,
	)
	value, err := backoff.RetryWithData(func() (T, error) {
		value, err := read(ctx)
		if err != nil && !errorutil.IsTransient(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}, policyBackOff)
	if err == nil {
		return value, nil
	}
	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return zero, errorutil.NewTransientStoreError(ctxErr)
	}
	return zero, err
}

// mapStoreError converts repository errors into domain errors for resource.
func mapStoreError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errorutil.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return errorutil.NewConflict(resource+" already exists", nil)
	}
	var domainErr *errorutil.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return errorutil.NewInternalError(err)
}

// validationError flattens validator failures into field details.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errorutil.WrapValidationError("invalid input", err)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[strings.ToLower(fe.Field())] = rule
	}
	return errorutil.NewValidationError("invalid input", details)
}

// textSanitizer strips markup from user supplied text.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() textSanitizer {
	return textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean removes tags and trims. Entities escaped by the policy are decoded back to plain text.
func (s textSanitizer) Clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

func checkLength(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		return errorutil.NewValidationError(field+" has invalid length", map[string]any{
			"field": field,
			"min":   minLen,
			"max":   maxLen,
		})
	}
	return nil
}

// canView reports whether the session may read the request.
func canView(session domain.Session, req *domain.MaintenanceRequest) bool {
	if session.Role.CanManageRequests() {
		return true
	}
	switch session.Role {
	case domain.RoleTechnician:
		return req.IsAssignedTo(session.UserID)
	case domain.RoleRequester:
		return req.RequesterID == session.UserID
	default:
		return false
	}
}

// scopeFilter restricts a listing to what the session may see.
func scopeFilter(session domain.Session, filter domain.RequestFilter) (domain.RequestFilter, error) {
	switch session.Role {
	case domain.RoleSuperAdmin, domain.RoleManager:
	case domain.RoleTechnician:
		id := session.UserID
		filter.AssignedTechnicianID = &id
	case domain.RoleRequester:
		id := session.UserID
		filter.RequesterID = &id
	default:
		return filter, errorutil.NewForbidden("unknown role")
	}
	return filter, nil
}
