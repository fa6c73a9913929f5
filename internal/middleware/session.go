package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/consultation-service/internal/session"
)

// Заголовки идентификации вызывающего, когда JWT не настроен (внутренний трафик за шлюзом).
const (
	HeaderCallerID   = "X-Caller-Id"
	HeaderCallerRole = "X-Caller-Role"
	HeaderVetMode    = "X-Vet-Mode"
)

// Session собирает сессию вызывающего один раз на запрос и кладёт её в контекст запроса.
// С JWT-секретом доверяем только Bearer-токену, без него заголовкам X-Caller-*.
func Session(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s session.Session
		if jwtSecret != "" {
			if h := c.GetHeader("Authorization"); h != "" {
				parts := strings.SplitN(h, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
					abort(c, http.StatusUnauthorized, "invalid authorization header format")
					return
				}
				parsed, err := session.ParseToken(jwtSecret, strings.TrimSpace(parts[1]))
				if err != nil {
					abort(c, http.StatusUnauthorized, "invalid token")
					return
				}
				s = parsed
			}
		} else {
			vetMode, _ := strconv.ParseBool(c.GetHeader(HeaderVetMode))
			s = session.Session{
				UserID:  strings.TrimSpace(c.GetHeader(HeaderCallerID)),
				Role:    session.ParseRole(c.GetHeader(HeaderCallerRole)),
				VetMode: vetMode,
			}
		}
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
		c.Next()
	}
}

// RequireSession отклоняет анонимные запросы.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFrom(c).Authenticated() {
			abort(c, http.StatusUnauthorized, "caller identity required")
			return
		}
		c.Next()
	}
}

// RequireAdmin пропускает только администраторов.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFrom(c).IsAdmin() {
			abort(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

// SessionFrom возвращает сессию запроса или пустую (анонимную).
func SessionFrom(c *gin.Context) session.Session {
	s, _ := session.FromContext(c.Request.Context())
	return s
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
