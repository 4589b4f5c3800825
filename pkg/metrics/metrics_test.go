package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIError(t *testing.T) {
	before := testutil.ToFloat64(APIErrorsTotal.WithLabelValues("404", "not_found"))
	RecordAPIError(http.StatusNotFound, "not_found")
	after := testutil.ToFloat64(APIErrorsTotal.WithLabelValues("404", "not_found"))
	assert.Equal(t, before+1, after)
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/instances/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	counter := HTTPRequestsTotal.WithLabelValues("/instances/:id", http.MethodGet, "204")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/instances/42", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "whatsflow_http_requests_total")
}
