// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the identity edge of the API: Session() resolves the
// caller from an access token or refresh cookie, and Guard() enforces
// ordered per-route access rules with browser-friendly redirects.
//
// Session resolution order:
//  1. A Bearer access token in the Authorization header. Valid tokens are
//     cheap to verify and never touch the store.
//  2. The refresh cookie. A live session is rotated on the spot: the old
//     refresh token is revoked, a new cookie is set, and the caller proceeds
//     authenticated. Rotation means a stolen cookie races its owner; the
//     loser of the race is logged out.
//
// Resolution is best-effort: a request with no usable credential continues
// anonymously, and Guard() decides whether the route tolerates that. Expired
// or invalid cookies are cleared so browsers stop replaying them.
package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Georgechisom/alx-polling/internal/services"
)

// Context keys written by Session and read downstream.
const (
	// ctxUserID is the authenticated user's id; absent for anonymous callers.
	ctxUserID = "userID"
	// ctxUserEmail is the authenticated user's email.
	ctxUserEmail = "userEmail"
	// ctxAccessToken is the freshly minted access token after a cookie
	// rotation, echoed to the client in the X-Access-Token header.
	ctxAccessToken = "accessToken"
)

// accessTokenHeader carries a replacement access token to the client after
// the refresh cookie was rotated.
const accessTokenHeader = "X-Access-Token"

// legacyCookies are cookie names from earlier deployments that are cleared
// whenever the current cookie is set or reset, so stale credentials do not
// accumulate in browsers.
var legacyCookies = []string{"session", "auth_token"}

// SessionOptions configures the Session middleware.
type SessionOptions struct {
	// Accounts verifies access tokens and rotates refresh sessions.
	Accounts *services.AccountService
	// CookieName is the refresh cookie's name.
	CookieName string
	// CookieSecure marks the cookie Secure; enable when serving HTTPS.
	CookieSecure bool
	// RefreshTTL bounds the cookie's Max-Age; it matches the session TTL.
	RefreshTTL time.Duration
}

// Session returns a middleware that resolves the caller's identity and
// stores it in the Gin context under "userID" and "userEmail". Anonymous
// requests pass through untouched.
func Session(opt SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1) Bearer access token.
		if raw := bearerToken(c.GetHeader("Authorization")); raw != "" {
			if u, err := opt.Accounts.CurrentUser(c.Request.Context(), raw); err == nil {
				c.Set(ctxUserID, u.ID)
				c.Set(ctxUserEmail, u.Email)
				c.Next()
				return
			}
			// An invalid header does not consume the cookie path; the token
			// may simply have expired between requests.
		}

		// 2) Refresh cookie, rotated on use.
		if opt.CookieName != "" {
			if raw, err := c.Cookie(opt.CookieName); err == nil && raw != "" {
				u, creds, err := opt.Accounts.Refresh(c.Request.Context(), raw)
				if err == nil {
					setSessionCookie(c, opt, creds.RefreshToken)
					c.Header(accessTokenHeader, creds.AccessToken)
					c.Set(ctxAccessToken, creds.AccessToken)
					c.Set(ctxUserID, u.ID)
					c.Set(ctxUserEmail, u.Email)
					c.Next()
					return
				}
				// A dead cookie is cleared so the browser stops sending it.
				clearSessionCookie(c, opt)
			}
		}

		c.Next()
	}
}

// setSessionCookie installs the refresh cookie and clears legacy ones.
func setSessionCookie(c *gin.Context, opt SessionOptions, refresh string) {
	maxAge := int(opt.RefreshTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opt.CookieName, refresh, maxAge, "/", "", opt.CookieSecure, true)
	for _, name := range legacyCookies {
		c.SetCookie(name, "", -1, "/", "", opt.CookieSecure, true)
	}
}

// clearSessionCookie expires the refresh cookie and legacy ones.
func clearSessionCookie(c *gin.Context, opt SessionOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	if opt.CookieName != "" {
		c.SetCookie(opt.CookieName, "", -1, "/", "", opt.CookieSecure, true)
	}
	for _, name := range legacyCookies {
		c.SetCookie(name, "", -1, "/", "", opt.CookieSecure, true)
	}
}

// SetSessionCookie is used by the auth handlers after login to install the
// refresh cookie with the same attributes Session uses for rotation.
func SetSessionCookie(c *gin.Context, opt SessionOptions, refresh string) {
	setSessionCookie(c, opt, refresh)
}

// ClearSessionCookie is used by the logout handler.
func ClearSessionCookie(c *gin.Context, opt SessionOptions) {
	clearSessionCookie(c, opt)
}

// UserID returns the authenticated user's id, or "" for anonymous callers.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// Access classifies who may reach a route.
type Access int

const (
	// AccessPublic routes are reachable by everyone.
	AccessPublic Access = iota
	// AccessProtected routes require an authenticated caller.
	AccessProtected
	// AccessAnonymous routes (login, register) bounce authenticated callers
	// back to the app instead of showing a sign-in form again.
	AccessAnonymous
	// AccessAdmin routes are a subset of protected routes reserved for
	// operators. Authentication is enforced here; role checks belong to the
	// handlers mounted under the admin prefix.
	AccessAdmin
)

// Rule binds a path pattern to an access class. Patterns use Gin-style
// segments: a ":name" segment matches exactly one path segment, so
// "/polls/:id/edit" matches "/polls/42/edit" but not "/polls/42". A trailing
// "*name" segment matches the rest of the path, including nothing, so
// "/admin/*rest" covers "/admin" and everything below it.
type Rule struct {
	Pattern string
	Access  Access
}

// GuardOptions configures the Guard middleware.
type GuardOptions struct {
	// Rules are evaluated in order; the first matching pattern decides the
	// access class. Unmatched paths are public.
	Rules []Rule
	// LoginPath is where unauthenticated browsers are sent; the original
	// path rides along as ?redirect=.
	LoginPath string
	// HomePath is where authenticated callers of anonymous-only routes go.
	HomePath string
	// Cookies carries the session cookie attributes so the redirect to the
	// login page can expire current and legacy auth cookies on the way out.
	Cookies SessionOptions
}

// Guard returns a middleware enforcing opt.Rules against the request path.
//
// Unauthenticated requests to protected routes are redirected (303 See
// Other) to the login page when the client accepts HTML, with the original
// path in the redirect query parameter; API clients receive a 401 JSON
// envelope instead. Authenticated requests to anonymous-only routes are
// redirected to HomePath.
func Guard(opt GuardOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		access := matchRules(opt.Rules, c.Request.URL.Path)
		authed := UserID(c) != ""

		switch access {
		case AccessProtected, AccessAdmin:
			if !authed {
				if acceptsHTML(c) {
					// Whatever auth cookies the browser still holds did not
					// authenticate this request; expire them alongside the
					// redirect so they are not replayed at the login page.
					clearSessionCookie(c, opt.Cookies)
					target := opt.LoginPath + "?redirect=" + url.QueryEscape(c.Request.URL.Path)
					c.Redirect(http.StatusSeeOther, target)
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"request_id": c.Writer.Header().Get("X-Request-ID"),
					"code":       "unauthorized",
					"message":    "authentication required",
				})
				return
			}
		case AccessAnonymous:
			if authed {
				c.Redirect(http.StatusSeeOther, opt.HomePath)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// matchRules returns the access class of the first rule whose pattern
// matches path; unmatched paths are public.
func matchRules(rules []Rule, path string) Access {
	for _, r := range rules {
		if matchPattern(r.Pattern, path) {
			return r.Access
		}
	}
	return AccessPublic
}

// matchPattern reports whether path matches a Gin-style pattern. A ":name"
// segment matches exactly one non-empty path segment, a trailing "*name"
// segment matches zero or more remaining segments, and all other segments
// must match literally.
func matchPattern(pattern, path string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	ss := strings.Split(strings.Trim(path, "/"), "/")
	if n := len(ps) - 1; n >= 0 && strings.HasPrefix(ps[n], "*") {
		if len(ss) < n {
			return false
		}
		ps = ps[:n]
		ss = ss[:n]
	}
	if len(ps) != len(ss) {
		return false
	}
	for i, seg := range ps {
		if strings.HasPrefix(seg, ":") {
			if ss[i] == "" {
				return false
			}
			continue
		}
		if seg != ss[i] {
			return false
		}
	}
	return true
}

// acceptsHTML reports whether the client prefers an HTML response, which
// switches guard failures from JSON errors to redirects.
func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
