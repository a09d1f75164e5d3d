package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/786262170/lumina-api/internal/core/domain"
	"github.com/786262170/lumina-api/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header and runs the presented token
// through full policy verification. Every rejection answers a uniform 401
// "unauthenticated": the specific cause (expired, revoked, tampered) stays in
// logs and metrics and never reaches the caller.
func RequireAuth(verifier *usecase.TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "unauthenticated"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "unauthenticated"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "unauthenticated"))
			return
		}

		result, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrRevocationUnavailable):
				// Strict policy with the store down: not a statement about
				// this token, so no 401.
				c.AbortWithStatusJSON(http.StatusServiceUnavailable,
					newErrorResponse(c, "service unavailable"))
			case domain.IsTokenInvalid(err):
				log.Debug("rejected bearer token",
					zap.String("trace_id", GetTraceID(c)),
					zap.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "unauthenticated"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(SubjectKey, result.Claims.Subject)
		c.Set("claims", result.Claims)
		c.Set("token", token)
		c.Set("degraded", result.Degraded)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.Subject = result.Claims.Subject
		}

		c.Next()
	}
}

// GetAuthenticatedSubject retrieves the subject from context (helper for handlers)
func GetAuthenticatedSubject(c *gin.Context) (string, bool) {
	subject, exists := c.Get(SubjectKey)
	if !exists {
		return "", false
	}

	if id, ok := subject.(string); ok {
		return id, true
	}

	return "", false
}
