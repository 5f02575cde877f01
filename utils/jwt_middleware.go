package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "lipia_session"
	usernameKey       = "username"
)

// SessionMiddleware reads the session cookie and, when it is valid, puts the
// username in the context. Invalid or expired cookies are cleared.
func SessionMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(SessionCookieName)
		if err != nil || tokenString == "" {
			c.Next()
			return
		}

		username, err := ParseSessionToken(secret, tokenString)
		if err != nil {
			ClearSession(c)
			c.Next()
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}

// LoginRequired sends anonymous visitors to the login page. JSON endpoints
// under /api get a 401 instead.
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUsername(c) != "" {
			c.Next()
			return
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

func CurrentUsername(c *gin.Context) string {
	return c.GetString(usernameKey)
}

// StartSession issues the session cookie for username.
func StartSession(c *gin.Context, secret, username string, ttl time.Duration) error {
	token, err := GenerateSessionToken(secret, username, ttl)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(ttl.Seconds()), "/", "", c.Request.TLS != nil, true)
	c.Set(usernameKey, username)
	return nil
}

func ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Set(usernameKey, "")
}
