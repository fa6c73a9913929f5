// Package session явно передаёт личность и роль вызывающего. Сессия
// собирается один раз на запрос (или на запуск CLI) и передаётся всем, кому
// нужно знать, кто действует.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleVet       Role = "vet"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole: неизвестные и пустые значения дают RoleUser.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleVet, RoleModerator, RoleAdmin:
		return r
	}
	return RoleUser
}

type Session struct {
	UserID string
	Role   Role
	// VetMode: ветеринар переключился в режим ответов на консультации.
	VetMode bool
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// IsResponder: может ли вызывающий отвечать официально и управлять шлюзом переписки.
func (s Session) IsResponder() bool {
	switch s.Role {
	case RoleAdmin, RoleModerator:
		return true
	case RoleVet:
		return s.VetMode
	}
	return false
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// Claims выпускает шлюз для мобильного приложения.
type Claims struct {
	jwt.RegisteredClaims
	Role    string `json:"role"`
	VetMode bool   `json:"vet_mode,omitempty"`
}

var ErrInvalidToken = errors.New("invalid token")

// SignToken выпускает HS256-токен для s. Нужен утилитам и тестам.
func SignToken(secret string, s Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:    string(s.Role),
		VetMode: s.VetMode,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken проверяет HS256-токен и возвращает описанную в нём сессию.
func ParseToken(secret, tokenString string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Session{UserID: claims.Subject, Role: ParseRole(claims.Role), VetMode: claims.VetMode}, nil
}
