package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookie = "session_id"
	SessionHeader = "X-Session-ID"

	sessionKey = "sessionID"
)

// Session resolves the shopper's session id from the X-Session-ID header or
// the session cookie, issuing a new one when neither holds a valid id. The
// id is echoed back in both places.
func Session(maxAge time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id, _ = c.Cookie(SessionCookie)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, id, int(maxAge.Seconds()), "/", "", secure, true)
		c.Header(SessionHeader, id)
		c.Set(sessionKey, id)
		c.Next()
	}
}

func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
