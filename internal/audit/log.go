// Package audit records security relevant actions as structured log lines.
package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/obs"
)

type ctxKey struct{}

// Outcomes passed to Record.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// WithRequestID attaches the request identifier used to correlate audit lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestIDFromContext returns the id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// LogEvent writes a type=audit entry enriched with request and user context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	e := obs.Logger().Info().Str("type", "audit").Str("event", event)
	if rid := RequestIDFromContext(ctx); rid != "" {
		e = e.Str("request_id", rid)
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		e = e.Str("user_id", userID)
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	e.Interface("fields", copied).Send()
	return nil
}

// Record logs an auth event and counts it by outcome. err decides the outcome;
// its client code, if any, is logged.
func Record(ctx context.Context, event string, err error, fields map[string]any) {
	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
		if code := auth.CodeOf(err); code != "" {
			entry["code"] = code
		}
	}
	entry["outcome"] = outcome
	obs.RecordAuthEvent(event, outcome)
	_ = LogEvent(ctx, event, entry)
}
