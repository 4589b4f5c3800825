package logger

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Security event types
const (
	EventAPIError           = "api_error"
	EventRouterMounted      = "router_mounted"
	EventRouterMountFailed  = "router_mount_failed"
	EventLoggingInitialized = "logging_initialized"
	EventAuditRotated       = "audit_rotated"
	EventPanicRecovered     = "panic_recovered"
)

// Field names
const (
	FieldSecurityEvent = "security_event"
	FieldRequestID     = "request_id"
)

// SecurityEvent is the structured payload attached to boundary log records.
// Zero-valued optional fields are omitted.
type SecurityEvent struct {
	Type       string
	StatusCode int
	Path       string
	Method     string
	RequestID  string
	IPAddress  string
	UserAgent  string
	Extra      map[string]any
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (e SecurityEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", e.Type)
	if e.StatusCode != 0 {
		enc.AddInt("status_code", e.StatusCode)
	}
	if e.Path != "" {
		enc.AddString("path", e.Path)
	}
	if e.Method != "" {
		enc.AddString("method", e.Method)
	}
	if e.RequestID != "" {
		enc.AddString("request_id", e.RequestID)
	}
	if e.IPAddress != "" {
		enc.AddString("ip_address", e.IPAddress)
	}
	if e.UserAgent != "" {
		enc.AddString("user_agent", e.UserAgent)
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		zap.Any(k, e.Extra[k]).AddTo(enc)
	}
	return nil
}

// SecurityEventField returns the zap field carrying ev.
func SecurityEventField(ev SecurityEvent) zap.Field {
	return zap.Object(FieldSecurityEvent, ev)
}

// RequestIDField returns the correlation field used across log records.
func RequestIDField(requestID string) zap.Field {
	return zap.String(FieldRequestID, requestID)
}
