package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsflow/internal/testutil"
	"whatsflow/pkg/logger"
)

type countingGenerator struct {
	value string
	calls int
}

func (g *countingGenerator) Generate() string {
	g.calls++
	return g.value
}

func TestRequestIDUsesHeader(t *testing.T) {
	gen := &countingGenerator{value: "generated"}

	var fromGin, fromCtx string
	r := gin.New()
	r.Use(RequestID(gen.Generate))
	r.GET("/x", func(c *gin.Context) {
		fromGin = ResolveRequestID(c, gen.Generate)
		fromCtx, _ = logger.RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := testutil.DoRequest(r, http.MethodGet, "/x", nil, map[string]string{HeaderRequestID: "upstream-id"})

	assert.Equal(t, "upstream-id", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "upstream-id", fromGin)
	assert.Equal(t, "upstream-id", fromCtx)
	assert.Zero(t, gen.calls)
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var seen []string
	r := gin.New()
	r.Use(RequestID(nil))
	r.GET("/x", func(c *gin.Context) {
		id, ok := RequestIDFrom(c)
		require.True(t, ok)
		seen = append(seen, id)
		c.Status(http.StatusOK)
	})

	first := testutil.DoRequest(r, http.MethodGet, "/x", nil, nil)
	second := testutil.DoRequest(r, http.MethodGet, "/x", nil, nil)

	require.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1])
	_, err := uuid.Parse(seen[0])
	assert.NoError(t, err)
	assert.Equal(t, seen[0], first.Header().Get(HeaderRequestID))
	assert.Equal(t, seen[1], second.Header().Get(HeaderRequestID))
}

func TestRequestIDRejectsUnsafeHeader(t *testing.T) {
	gen := &countingGenerator{value: "generated"}
	r := gin.New()
	r.Use(RequestID(gen.Generate))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := testutil.DoRequest(r, http.MethodGet, "/x", nil, map[string]string{HeaderRequestID: "   "})
	assert.Equal(t, "generated", req.Header().Get(HeaderRequestID))

	padded := testutil.DoRequest(r, http.MethodGet, "/x", nil, map[string]string{HeaderRequestID: "  trace-7  "})
	assert.Equal(t, "trace-7", padded.Header().Get(HeaderRequestID))

	long := strings.Repeat("b", 200)
	capped := testutil.DoRequest(r, http.MethodGet, "/x", nil, map[string]string{HeaderRequestID: long})
	assert.Equal(t, long[:maxRequestIDLen], capped.Header().Get(HeaderRequestID))

	assert.Empty(t, normalizeRequestID("a\r\nInjected: yes"))
	assert.Len(t, normalizeRequestID(strings.Repeat("a", 300)), maxRequestIDLen)
}

func TestResolveRequestIDGeneratesOncePerRequest(t *testing.T) {
	gen := &countingGenerator{value: "only-once"}

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		a := ResolveRequestID(c, gen.Generate)
		b := ResolveRequestID(c, gen.Generate)
		assert.Equal(t, a, b)
		c.Status(http.StatusOK)
	})

	testutil.DoRequest(r, http.MethodGet, "/x", nil, nil)
	assert.Equal(t, 1, gen.calls)
}
