package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"whatsflow/pkg/logger"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

const (
	requestContextKey = "RequestContext"
	maxRequestIDLen   = 128
)

// Generator produces a fresh correlation id.
type Generator func() string

// DefaultGenerator generates random UUIDv4 ids.
func DefaultGenerator() string {
	return uuid.NewString()
}

// RequestContext holds per-request tracking state. RequestID is nil until
// the id is accepted from upstream or generated.
type RequestContext struct {
	RequestID *string
}

// RequestID accepts an upstream X-Request-ID header or generates a new id,
// stores it for the rest of the chain and echoes it in the response.
// Upstream ids are reused after trimming surrounding space and truncating to
// 128 bytes; values containing CR or LF are replaced with a generated id.
func RequestID(gen Generator) gin.HandlerFunc {
	if gen == nil {
		gen = DefaultGenerator
	}
	return func(c *gin.Context) {
		var requestID string
		if upstream := normalizeRequestID(c.GetHeader(HeaderRequestID)); upstream != "" {
			requestID = upstream
			setRequestID(c, requestID)
		} else {
			requestID = ResolveRequestID(c, gen)
		}

		c.Writer.Header().Set(HeaderRequestID, requestID)

		c.Next()
	}
}

// ResolveRequestID returns the id already attached to the request, or
// generates, attaches and returns a new one. Repeated calls within a request
// return the same value.
func ResolveRequestID(c *gin.Context, gen Generator) string {
	if id, ok := RequestIDFrom(c); ok {
		return id
	}
	if gen == nil {
		gen = DefaultGenerator
	}
	id := gen()
	setRequestID(c, id)
	return id
}

// RequestIDFrom returns the id attached to the request without generating one.
func RequestIDFrom(c *gin.Context) (string, bool) {
	rc := requestContext(c)
	if rc.RequestID == nil || *rc.RequestID == "" {
		return "", false
	}
	return *rc.RequestID, true
}

func requestContext(c *gin.Context) *RequestContext {
	if v, ok := c.Get(requestContextKey); ok {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}
	rc := &RequestContext{}
	c.Set(requestContextKey, rc)
	return rc
}

func setRequestID(c *gin.Context, id string) {
	requestContext(c).RequestID = &id
	if c.Request != nil {
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
	}
}

// normalizeRequestID rejects header values that could split log lines and
// caps their length.
func normalizeRequestID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.ContainsAny(v, "\r\n") {
		return ""
	}
	if len(v) > maxRequestIDLen {
		v = v[:maxRequestIDLen]
	}
	return v
}
