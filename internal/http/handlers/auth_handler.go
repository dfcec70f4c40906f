// Account HTTP handlers.
//
// This file exposes the identity endpoints:
//   - POST /auth/register  (create an account)
//   - POST /auth/login     (authenticate, set refresh cookie, return access token)
//   - POST /auth/logout    (revoke the session, clear the cookie)
//   - GET  /auth/me        (resolve the current user)
//
// Login and registration failures stay deliberately vague: the service layer
// collapses unknown accounts and wrong passwords into one error, and these
// handlers pass that through unchanged.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Georgechisom/alx-polling/internal/http/middleware"
)

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON payload for authenticating.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token alongside the user. The refresh
// token travels only in the HTTP-only cookie, never in the body.
type LoginResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// Register creates a new account and returns the user resource.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	u, err := h.accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// Login authenticates the caller, installs the refresh cookie, and returns
// the access token.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	u, creds, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failFromService(c, err)
		return
	}

	middleware.SetSessionCookie(c, h.session, creds.RefreshToken)
	ok(c, http.StatusOK, LoginResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		AccessToken: creds.AccessToken,
	})
}

// Logout revokes the refresh session and clears the cookie. It succeeds even
// when no session exists; logout is idempotent.
func (h *Handlers) Logout(c *gin.Context) {
	if raw, err := c.Cookie(h.session.CookieName); err == nil && raw != "" {
		if err := h.accounts.Logout(c.Request.Context(), raw); err != nil {
			failFromService(c, err)
			return
		}
	}
	middleware.ClearSessionCookie(c, h.session)
	noContent(c)
}

// Me resolves the caller's access token (Bearer header, or the replacement
// token minted during cookie rotation) to the current user.
func (h *Handlers) Me(c *gin.Context) {
	raw := bearerToken(c.GetHeader("Authorization"))
	if raw == "" {
		if v, okv := c.Get("accessToken"); okv {
			raw, _ = v.(string)
		}
	}

	u, err := h.accounts.CurrentUser(c.Request.Context(), raw)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
