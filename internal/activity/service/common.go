package service

import (
	"context"
	"errors"
	"log/slog"

	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/requestcontext"
)

func wrapActivityErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "activity not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
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
