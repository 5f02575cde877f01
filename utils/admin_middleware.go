package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const AdminUser = "admin"

// AdminMiddleware guards the admin routes with HTTP basic auth. secret may be
// a bcrypt hash or a plain password, which is hashed once here.
func AdminMiddleware(secret string) (gin.HandlerFunc, error) {
	hash := []byte(secret)
	if !strings.HasPrefix(secret, "$2") {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}

	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		if !ok || user != AdminUser || !verifyPassword(hash, password) {
			c.Header("WWW-Authenticate", `Basic realm="lipia admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}, nil
}

func verifyPassword(hash []byte, provided string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(provided)) == nil
}
