package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// AuditLevel selects which bulk updates reach the audit log.
type AuditLevel int

const (
	// AuditNone disables audit logging.
	AuditNone AuditLevel = iota
	// AuditFailures logs failed executions and rejected raw values only.
	AuditFailures
	// AuditAll logs every execution.
	AuditAll
)

// AuditEvent is one executed bulk update.
type AuditEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	User         string    `json:"user,omitempty"`
	Table        string    `json:"table"`
	Rows         int       `json:"rows"` // batch rows sent in the row source
	AffectedRows int64     `json:"affected_rows"`
	SQL          string    `json:"sql"`
	ParamsHash   string    `json:"params_hash,omitempty"` // SHA256 of the bound values
	ClientIP     string    `json:"client_ip,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	Duration     int64     `json:"duration_ms"`
}

// Auditor writes an audit trail of bulk updates. Bound values are never
// logged, only their hash.
type Auditor struct {
	logger *slog.Logger
	level  AuditLevel
}

// NewAuditor creates an auditor writing to logger.
func NewAuditor(logger *slog.Logger, level AuditLevel) *Auditor {
	return &Auditor{logger: logger, level: level}
}

// LogUpdate records one execution.
func (a *Auditor) LogUpdate(ctx context.Context, table, query string, args []interface{}, rows int, affected int64, err error, duration time.Duration) {
	if a == nil || a.logger == nil || a.level == AuditNone {
		return
	}
	if err == nil && a.level != AuditAll {
		return
	}

	event := AuditEvent{
		Timestamp:    time.Now().UTC(),
		Table:        table,
		Rows:         rows,
		AffectedRows: affected,
		SQL:          query,
		ParamsHash:   hashParams(args),
		Success:      err == nil,
		Duration:     duration.Milliseconds(),
	}
	event.User, event.ClientIP, event.RequestID = GetUser(ctx), GetClientIP(ctx), GetRequestID(ctx)
	if err != nil {
		event.Error = err.Error()
	}
	a.logEvent(event)
}

// LogSecurityEvent records a rejected statement, such as a raw value that
// failed validation. It is logged at every level except AuditNone.
func (a *Auditor) LogSecurityEvent(ctx context.Context, eventType, table string, err error) {
	if a == nil || a.logger == nil || a.level == AuditNone || err == nil {
		return
	}
	a.logger.Warn("security_event",
		"event_type", eventType,
		"timestamp", time.Now().UTC(),
		"user", GetUser(ctx),
		"client_ip", GetClientIP(ctx),
		"request_id", GetRequestID(ctx),
		"table", table,
		"error", err.Error(),
	)
}

func (a *Auditor) logEvent(event AuditEvent) {
	logFunc := a.logger.Info
	if !event.Success {
		logFunc = a.logger.Warn
	}
	logFunc("audit_event",
		"timestamp", event.Timestamp,
		"user", event.User,
		"table", event.Table,
		"rows", event.Rows,
		"affected_rows", event.AffectedRows,
		"sql", event.SQL,
		"params_hash", event.ParamsHash,
		"client_ip", event.ClientIP,
		"request_id", event.RequestID,
		"success", event.Success,
		"error", event.Error,
		"duration_ms", event.Duration,
	)
}

// hashParams fingerprints bound values so repeated batches can be correlated
// without logging them.
func hashParams(params []interface{}) string {
	if len(params) == 0 {
		return ""
	}
	h := sha256.New()
	for _, param := range params {
		_, _ = fmt.Fprintf(h, "%T:%v;", param, param) // hash.Hash.Write never returns error
	}
	return hex.EncodeToString(h.Sum(nil))
}

type contextKey string

const (
	userKey      contextKey = "updatebulk:user"
	clientIPKey  contextKey = "updatebulk:client_ip"
	requestIDKey contextKey = "updatebulk:request_id"
)

// WithUser adds the acting user to the context for audit logging.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithClientIP adds the client IP to the context for audit logging.
func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, clientIPKey, clientIP)
}

// WithRequestID adds a request ID to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetUser returns the user stored by WithUser.
func GetUser(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// GetClientIP returns the client IP stored by WithClientIP.
func GetClientIP(ctx context.Context) string {
	clientIP, _ := ctx.Value(clientIPKey).(string)
	return clientIP
}

// GetRequestID returns the request ID stored by WithRequestID.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}
