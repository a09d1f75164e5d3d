package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/786262170/lumina-api/internal/core/domain"
	"github.com/786262170/lumina-api/internal/infra/security"
	"github.com/786262170/lumina-api/internal/repository"
	"github.com/786262170/lumina-api/internal/transport/http/middleware"
	"github.com/786262170/lumina-api/internal/usecase"
)

// AuthHandler exposes the token lifecycle endpoints.
type AuthHandler struct {
	sessions *usecase.SessionService
	codec    *security.TokenCodec
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(sessions *usecase.SessionService, codec *security.TokenCodec) *AuthHandler {
	return &AuthHandler{sessions: sessions, codec: codec}
}

// RegisterPublicRoutes binds the endpoints that do not require a bearer token.
func (h *AuthHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.POST("/guest", h.GuestSession)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", h.Logout)
}

// RegisterProtectedRoutes binds the endpoints behind the auth middleware.
func (h *AuthHandler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("/session", h.Introspect)
	r.POST("/revoke-all", h.RevokeAll)
}

// GuestSession godoc
// @Summary Create a guest session
// @Description Generates a fresh guest subject and issues an access/refresh token pair for it.
// @Tags Authentication
// @Produce json
// @Success 201 {object} GuestSessionResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/guest [post]
func (h *AuthHandler) GuestSession(c *gin.Context) {
	subject, pair, err := h.sessions.IssueGuestSession(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to create guest session"))
		return
	}

	c.JSON(http.StatusCreated, GuestSessionResponse{
		Subject:      subject,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.codec.Lifetime(domain.TokenTypeAccess).Seconds()),
	})
}

// Refresh godoc
// @Summary Refresh an access token
// @Description Issues a new access token using a valid refresh token. The refresh token is not rotated.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body TokenRefreshRequest true "Refresh request"
// @Success 200 {object} TokenRefreshResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	accessToken, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotRefreshToken):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "not a refresh token"))
		case errors.Is(err, domain.ErrRevocationUnavailable):
			c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "service unavailable"))
		case domain.IsTokenInvalid(err):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthenticated"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to refresh token"))
		}
		return
	}

	c.JSON(http.StatusOK, TokenRefreshResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.codec.Lifetime(domain.TokenTypeAccess).Seconds()),
	})
}

// Logout godoc
// @Summary End a session
// @Description Blacklists the presented token for its remaining validity. Idempotent: invalid or expired tokens are a no-op success.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LogoutRequest false "Token to revoke; the Authorization bearer token is used when the body is absent"
// @Success 200 {object} MessageResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		// Nothing to revoke; logout stays idempotent.
		c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
		return
	}

	if err := h.sessions.EndSession(c.Request.Context(), token); err != nil {
		cases := []ErrorCase{
			{Err: repository.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "service unavailable"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to log out")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// RevokeAll godoc
// @Summary Revoke all sessions for the authenticated subject
// @Description Invalidates every token issued to the subject before this instant, including tokens never seen by this service.
// @Tags Authentication
// @Security Bearer
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body RevokeAllRequest false "Optional revocation reason"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/revoke-all [post]
func (h *AuthHandler) RevokeAll(c *gin.Context) {
	subject, ok := middleware.GetAuthenticatedSubject(c)
	if !ok || subject == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthenticated"))
		return
	}

	var req RevokeAllRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.sessions.RevokeAllSessions(c.Request.Context(), subject, req.Reason); err != nil {
		cases := []ErrorCase{
			{Err: repository.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "service unavailable"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to revoke sessions")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "all sessions revoked"})
}

// Introspect godoc
// @Summary Inspect the current session
// @Description Returns the verified claims of the presented bearer token.
// @Tags Authentication
// @Security Bearer
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} SessionIntrospectionResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) Introspect(c *gin.Context) {
	claims := getSessionClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthenticated"))
		return
	}

	tokenType, err := claims.Type()
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthenticated"))
		return
	}

	c.JSON(http.StatusOK, SessionIntrospectionResponse{
		Subject:   claims.Subject,
		TokenType: string(tokenType),
		JTI:       claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		Guest:     strings.HasPrefix(claims.Subject, "guest_"),
		Degraded:  c.GetBool("degraded"),
	})
}

func getSessionClaims(c *gin.Context) *security.SessionTokenClaims {
	value, exists := c.Get("claims")
	if !exists {
		return nil
	}

	claims, ok := value.(*security.SessionTokenClaims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
