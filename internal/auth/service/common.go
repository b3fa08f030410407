package service

import (
	"context"
	"errors"
	"log/slog"

	userModels "orbit/internal/user/models"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/requestcontext"
)

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

func wrapUserErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if conflict := userModels.ConflictFromDuplicate(err); conflict != nil {
		return conflict
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

func (s *Service) authFailed(ctx context.Context, reason string, attrs ...any) {
	if s.metrics != nil {
		s.metrics.IncrementAuthFailures(reason)
	}
	if s.logger == nil {
		return
	}
	args := append([]any{"reason", reason, "request_id", requestcontext.RequestID(ctx)}, attrs...)
	s.logger.WarnContext(ctx, "authentication rejected", args...)
}

// auditEmitter writes audited state changes to the structured log.
type auditEmitter struct {
	logger *slog.Logger
}

func newAuditEmitter(logger *slog.Logger) *auditEmitter {
	return &auditEmitter{logger: logger}
}

func (e *auditEmitter) emit(ctx context.Context, event string, attributes ...any) {
	if e.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	e.logger.InfoContext(ctx, event, args...)
}
