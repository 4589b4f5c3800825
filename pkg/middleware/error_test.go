package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"whatsflow/internal/testutil"
	"whatsflow/pkg/apperror"
	"whatsflow/pkg/logger"
)

func newErrorEngine(t *testing.T, debug bool, register func(r *gin.Engine)) (*gin.Engine, *ErrorMapper, func() []map[string]any) {
	t.Helper()

	log, logs := testutil.NewObservedLogger(zapcore.DebugLevel)
	mapper := NewErrorMapper(debug, log)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestID(mapper.Generator()), Recovery(mapper), ErrorHandler(mapper))
	r.NoRoute(NoRoute(mapper))
	r.NoMethod(NoMethod(mapper))
	register(r)

	return r, mapper, func() []map[string]any { return testutil.SecurityEvents(logs, logger.EventAPIError) }
}

func TestTypedErrorsProduceEnvelope(t *testing.T) {
	errs := []*apperror.Error{
		apperror.NewAuthentication("token missing"),
		apperror.NewAuthorization("admins only"),
		apperror.NewValidation("bad phone"),
		apperror.NewNotFound("instance missing"),
		apperror.NewRateLimit("slow down"),
		apperror.New(http.StatusConflict, "instance already connected"),
	}

	for _, appErr := range errs {
		t.Run(appErr.Kind().String(), func(t *testing.T) {
			r, _, events := newErrorEngine(t, false, func(r *gin.Engine) {
				r.GET("/api/v1/x", Handle(func(c *gin.Context) error { return appErr }))
			})

			rec := testutil.DoRequest(r, http.MethodGet, "/api/v1/x", nil, nil)
			body := testutil.DecodeJSON(t, rec)

			assert.Equal(t, appErr.StatusCode(), rec.Code)
			assert.Equal(t, float64(rec.Code), body["status_code"])
			assert.Equal(t, appErr.Message(), body["message"])
			assert.NotEmpty(t, body["request_id"])
			assert.NotContains(t, body, "path")
			assert.NotContains(t, body, "method")

			logged := events()
			require.Len(t, logged, 1)
			assert.Equal(t, body["request_id"], logged[0]["request_id"])
			assert.EqualValues(t, rec.Code, logged[0]["status_code"])
		})
	}
}

func TestDebugModeDisclosesPathAndMethod(t *testing.T) {
	r, _, _ := newErrorEngine(t, true, func(r *gin.Engine) {
		r.POST("/api/v1/messages", Handle(func(c *gin.Context) error {
			return apperror.NewValidation("bad phone")
		}))
	})

	rec := testutil.DoRequest(r, http.MethodPost, "/api/v1/messages", nil, nil)
	body := testutil.DecodeJSON(t, rec)

	assert.Equal(t, "/api/v1/messages", body["path"])
	assert.Equal(t, http.MethodPost, body["method"])
}

func TestNotFoundEndToEndInDebug(t *testing.T) {
	r, _, _ := newErrorEngine(t, true, func(r *gin.Engine) {
		r.GET("/api/v1/x", Handle(func(c *gin.Context) error {
			return apperror.NewNotFound("resource missing")
		}))
	})

	rec := testutil.DoRequest(r, http.MethodGet, "/api/v1/x", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := testutil.DecodeJSON(t, rec)
	requestID, ok := body["request_id"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(requestID)
	require.NoError(t, err)

	expected := fmt.Sprintf(`{"status_code":404,"message":"resource missing","request_id":%q,"path":"/api/v1/x","method":"GET"}`, requestID)
	assert.JSONEq(t, expected, rec.Body.String())
}

func TestUpstreamRequestIDIsReused(t *testing.T) {
	r, _, events := newErrorEngine(t, false, func(r *gin.Engine) {
		r.GET("/x", Handle(func(c *gin.Context) error { return apperror.NewNotFound("") }))
	})

	rec := testutil.DoRequest(r, http.MethodGet, "/x", nil, map[string]string{HeaderRequestID: "upstream-123"})

	assert.Equal(t, "upstream-123", testutil.DecodeJSON(t, rec)["request_id"])
	require.Len(t, events(), 1)
	assert.Equal(t, "upstream-123", events()[0]["request_id"])
}

func TestDistinctRequestIDsPerRequest(t *testing.T) {
	r, _, _ := newErrorEngine(t, false, func(r *gin.Engine) {
		r.GET("/x", Handle(func(c *gin.Context) error { return apperror.NewNotFound("") }))
	})

	first := testutil.DecodeJSON(t, testutil.DoRequest(r, http.MethodGet, "/x", nil, nil))
	second := testutil.DecodeJSON(t, testutil.DoRequest(r, http.MethodGet, "/x", nil, nil))

	assert.NotEqual(t, first["request_id"], second["request_id"])
}

func TestSecurityEventFields(t *testing.T) {
	r, _, events := newErrorEngine(t, false, func(r *gin.Engine) {
		r.DELETE("/api/v1/instances/:id", Handle(func(c *gin.Context) error {
			return apperror.NewAuthorization("not your instance")
		}))
	})

	testutil.DoRequest(r, http.MethodDelete, "/api/v1/instances/7", nil, map[string]string{"User-Agent": "whatsflow-test"})

	logged := events()
	require.Len(t, logged, 1)
	ev := logged[0]
	assert.Equal(t, logger.EventAPIError, ev["type"])
	assert.EqualValues(t, http.StatusForbidden, ev["status_code"])
	assert.Equal(t, "/api/v1/instances/7", ev["path"])
	assert.Equal(t, http.MethodDelete, ev["method"])
	assert.Equal(t, "192.0.2.1", ev["ip_address"])
	assert.Equal(t, "whatsflow-test", ev["user_agent"])
	assert.Equal(t, "authorization", ev["error_kind"])
}

func TestUnknownErrorsHideInternals(t *testing.T) {
	r, _, _ := newErrorEngine(t, false, func(r *gin.Engine) {
		r.GET("/x", Handle(func(c *gin.Context) error {
			return errors.New("dial tcp 10.0.0.5:5432: connection refused")
		}))
	})

	rec := testutil.DoRequest(r, http.MethodGet, "/x", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Equal(t, apperror.MsgInternal, testutil.DecodeJSON(t, rec)["message"])
}

func TestPanicsBecomeEnvelopes(t *testing.T) {
	r, _, events := newErrorEngine(t, true, func(r *gin.Engine) {
		r.GET("/boom", func(c *gin.Context) { panic("nil map write") })
	})

	rec := testutil.DoRequest(r, http.MethodGet, "/boom", nil, nil)
	body := testutil.DecodeJSON(t, rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperror.MsgInternal, body["message"])
	assert.NotContains(t, rec.Body.String(), "nil map write")
	assert.Len(t, events(), 1)
}

func TestNoRouteAndNoMethod(t *testing.T) {
	r, _, _ := newErrorEngine(t, false, func(r *gin.Engine) {
		r.GET("/only-get", func(c *gin.Context) { c.Status(http.StatusOK) })
	})

	missing := testutil.DoRequest(r, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.EqualValues(t, http.StatusNotFound, testutil.DecodeJSON(t, missing)["status_code"])

	wrongMethod := testutil.DoRequest(r, http.MethodPost, "/only-get", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, wrongMethod.Code)
	assert.NotEmpty(t, testutil.DecodeJSON(t, wrongMethod)["request_id"])
}

func TestValidationFromBinding(t *testing.T) {
	type sendMessage struct {
		To   string `json:"to" binding:"required"`
		Text string `json:"text" binding:"required"`
	}

	r, _, _ := newErrorEngine(t, false, func(r *gin.Engine) {
		r.POST("/messages", Handle(func(c *gin.Context) error {
			var req sendMessage
			return c.ShouldBindJSON(&req)
		}))
	})

	rec := testutil.DoRequest(r, http.MethodPost, "/messages", strings.NewReader(`{"to":"+5511"}`),
		map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperror.MsgValidation, testutil.DecodeJSON(t, rec)["message"])
}

// panicCore fails every write, standing in for a broken log sink.
type panicCore struct{ zapcore.Core }

func (panicCore) Enabled(zapcore.Level) bool { return true }
func (p panicCore) With([]zapcore.Field) zapcore.Core { return p }
func (p panicCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(e, p)
}
func (panicCore) Write(zapcore.Entry, []zapcore.Field) error { panic("disk full") }
func (panicCore) Sync() error                                { return nil }

func TestLoggingFailureStillResponds(t *testing.T) {
	failures := &bytes.Buffer{}
	mapper := NewErrorMapper(false, zap.New(panicCore{}), WithFailureOutput(failures))

	r := gin.New()
	r.Use(RequestID(nil), ErrorHandler(mapper))
	r.GET("/x", Handle(func(c *gin.Context) error { return apperror.NewNotFound("gone") }))

	var rec = testutil.DoRequest(r, http.MethodGet, "/x", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "gone", testutil.DecodeJSON(t, rec)["message"])
	assert.Contains(t, failures.String(), "disk full")
}

func TestHandleDoesNotOverwriteWrittenResponse(t *testing.T) {
	r, _, events := newErrorEngine(t, false, func(r *gin.Engine) {
		r.GET("/partial", func(c *gin.Context) {
			c.String(http.StatusAccepted, "accepted")
			_ = c.Error(apperror.NewRateLimit(""))
		})
	})

	rec := testutil.DoRequest(r, http.MethodGet, "/partial", nil, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "accepted", rec.Body.String())
	assert.Len(t, events(), 1)
}
