package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wzyjerry/data-agent-web/internal/pkg/jwt"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"go.uber.org/zap"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "session_token"

const sessionKey = "session"

// SessionMiddleware attaches the caller's session. A missing, expired or
// forged token starts a new anonymous session.
func (h *Handler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess session.Session

		token, err := c.Cookie(CookieName)
		if err == nil && token != "" {
			claims, verr := h.signer.ValidateToken(token)
			switch {
			case verr == nil:
				sess = session.Session{
					ID:            claims.SessionID,
					UserID:        claims.UserID,
					Username:      claims.Username,
					Authenticated: claims.UserID != "",
				}
			case verr == jwt.ErrExpiredToken:
				h.log.Debug("Session token expired")
			default:
				h.log.Warn("Rejected session token", zap.Error(verr))
			}
		}

		if sess.ID == "" {
			sess = session.Anonymous(uuid.NewString())
			if err := h.issue(c, sess); err != nil {
				h.fail(c, err)
				c.Abort()
				return
			}
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// issue writes the cookie for sess.
func (h *Handler) issue(c *gin.Context, sess session.Session) error {
	token, err := h.signer.GenerateToken(sess.ID, sess.UserID, sess.Username)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(h.signer.TTL().Seconds()), "/", "", h.secure, true)
	return nil
}

func currentSession(c *gin.Context) session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(session.Session); ok {
			return sess
		}
	}
	return session.Session{}
}

// RequireUser sends anonymous sessions to the login page.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentSession(c).Authenticated {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}
