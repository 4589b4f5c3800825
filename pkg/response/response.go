package response

import "github.com/gin-gonic/gin"

// Error envelope field names
const (
	FieldStatusCode = "status_code"
	FieldMessage    = "message"
	FieldRequestID  = "request_id"
	FieldPath       = "path"
	FieldMethod     = "method"
)

// ErrorEnvelope is the body of every error response. RequestID always
// matches the request_id logged for the same failure; Path and Method are
// only filled in debug mode.
type ErrorEnvelope struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
	Path       string `json:"path,omitempty"`
	Method     string `json:"method,omitempty"`
}

// NewErrorEnvelope builds an envelope, disclosing path and method only when
// debug is set.
func NewErrorEnvelope(status int, message, requestID string, debug bool, path, method string) ErrorEnvelope {
	env := ErrorEnvelope{
		StatusCode: status,
		Message:    message,
		RequestID:  requestID,
	}
	if debug {
		env.Path = path
		env.Method = method
	}
	return env
}

// WriteError writes env with its own status code and aborts the chain.
func WriteError(c *gin.Context, env ErrorEnvelope) {
	c.AbortWithStatusJSON(env.StatusCode, env)
}
