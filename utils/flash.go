package utils

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookieName = "lipia_flash"
	flashKey        = "flashes"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"` // success / error / info
	Message  string `json:"message"`
}

func loadFlashes(c *gin.Context) []Flash {
	if v, ok := c.Get(flashKey); ok {
		return v.([]Flash)
	}

	var flashes []Flash
	if raw, err := c.Cookie(flashCookieName); err == nil && raw != "" {
		if data, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
			_ = json.Unmarshal(data, &flashes)
		}
	}
	c.Set(flashKey, flashes)
	return flashes
}

// AddFlash queues a message for this request's render or the next one after a redirect.
func AddFlash(c *gin.Context, category, message string) {
	flashes := append(loadFlashes(c), Flash{Category: category, Message: message})
	c.Set(flashKey, flashes)

	data, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, base64.RawURLEncoding.EncodeToString(data), 0, "/", "", c.Request.TLS != nil, true)
}

// Flashes returns the queued messages and consumes them.
func Flashes(c *gin.Context) []Flash {
	flashes := loadFlashes(c)
	if len(flashes) == 0 {
		return nil
	}
	c.Set(flashKey, []Flash{})
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	return flashes
}
