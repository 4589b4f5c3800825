package middleware

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsflow/pkg/apperror"
	"whatsflow/pkg/logger"
	"whatsflow/pkg/metrics"
	"whatsflow/pkg/response"
)

// ErrorMapper converts errors reaching the HTTP boundary into a security
// log record and a response envelope. It is the only place where errors are
// translated to the wire format.
type ErrorMapper struct {
	debug  bool
	log    *zap.Logger
	gen    Generator
	errOut io.Writer
}

// MapperOption configures an ErrorMapper
type MapperOption func(*ErrorMapper)

// WithGenerator overrides the correlation id generator.
func WithGenerator(gen Generator) MapperOption {
	return func(m *ErrorMapper) {
		if gen != nil {
			m.gen = gen
		}
	}
}

// WithFailureOutput sets where logging failures are reported.
func WithFailureOutput(w io.Writer) MapperOption {
	return func(m *ErrorMapper) {
		if w != nil {
			m.errOut = w
		}
	}
}

// NewErrorMapper creates an error mapper. Path and method are disclosed in
// envelopes only when debug is set.
func NewErrorMapper(debug bool, log *zap.Logger, opts ...MapperOption) *ErrorMapper {
	if log == nil {
		log = zap.NewNop()
	}
	m := &ErrorMapper{
		debug:  debug,
		log:    log,
		gen:    DefaultGenerator,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generator returns the correlation id generator used by the mapper.
func (m *ErrorMapper) Generator() Generator {
	return m.gen
}

// Handle logs err as an api_error security event and writes the envelope
// with the error's status code. The envelope is returned even when the
// response had already been written.
func (m *ErrorMapper) Handle(c *gin.Context, err error) response.ErrorEnvelope {
	appErr := apperror.From(err)
	if appErr == nil {
		appErr = apperror.Wrap(nil, apperror.MsgInternal)
	}

	requestID := ResolveRequestID(c, m.gen)
	path, method := c.Request.URL.Path, c.Request.Method

	m.report(c, appErr, requestID)

	env := response.NewErrorEnvelope(appErr.StatusCode(), appErr.Message(), requestID, m.debug, path, method)
	if c.Writer.Written() {
		c.Abort()
		return env
	}
	response.WriteError(c, env)
	return env
}

// report never lets a logging or metrics failure escape to the caller.
func (m *ErrorMapper) report(c *gin.Context, appErr *apperror.Error, requestID string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(m.errOut, "error handler: failed to record api error %s: %v\n", requestID, r)
		}
	}()

	fields := []zap.Field{
		logger.SecurityEventField(logger.SecurityEvent{
			Type:       logger.EventAPIError,
			StatusCode: appErr.StatusCode(),
			Path:       c.Request.URL.Path,
			Method:     c.Request.Method,
			RequestID:  requestID,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Extra:      eventExtra(appErr),
		}),
		logger.RequestIDField(requestID),
	}
	if cause := appErr.Unwrap(); cause != nil {
		fields = append(fields, zap.Error(cause))
	}

	m.log.Error("API error: "+appErr.Message(), fields...)
	metrics.RecordAPIError(appErr.StatusCode(), appErr.Kind().String())
}

func eventExtra(appErr *apperror.Error) map[string]any {
	extra := map[string]any{"error_kind": appErr.Kind().String()}
	if details := appErr.Details(); len(details) > 0 {
		extra["details"] = details
	}
	return extra
}

// ErrorHandler maps the last error attached to the gin context once the
// rest of the chain has run.
func ErrorHandler(m *ErrorMapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		m.Handle(c, c.Errors.Last().Err)
	}
}

// Handle adapts an error-returning handler. A returned error is attached to
// the context and the chain is aborted; ErrorHandler writes the response.
func Handle(fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			_ = c.Error(err)
			c.Abort()
		}
	}
}

// Recovery handles panics and recovers gracefully. The stack is logged, the
// client only receives a generic 500 envelope.
func Recovery(m *ErrorMapper) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		requestID := ResolveRequestID(c, m.gen)

		logger.FromContext(c.Request.Context(), m.log).Error("panic recovered",
			zap.Any("error", recovered),
			logger.SecurityEventField(logger.SecurityEvent{
				Type:      logger.EventPanicRecovered,
				Path:      c.Request.URL.Path,
				Method:    c.Request.Method,
				RequestID: requestID,
				IPAddress: c.ClientIP(),
			}),
			zap.Stack("stack"),
		)

		m.Handle(c, apperror.Wrap(fmt.Errorf("panic: %v", recovered), apperror.MsgInternal))
	})
}

// NoRoute answers unmatched paths with a not-found envelope.
func NoRoute(m *ErrorMapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.Handle(c, apperror.NewNotFound("Route not found"))
	}
}

// NoMethod answers known paths called with an unsupported method.
func NoMethod(m *ErrorMapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.Handle(c, apperror.New(http.StatusMethodNotAllowed, "Method not allowed"))
	}
}
