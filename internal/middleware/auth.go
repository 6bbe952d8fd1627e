// Package middleware содержит HTTP middleware сервиса магазина.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/shopledger/internal/model"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

const (
	accessTokenTTL  = 10 * time.Minute
	refreshTokenTTL = time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken возвращается для неподписанного, просроченного или чужого токена.
var ErrInvalidToken = errors.New("invalid token")

// Claims описывает полезную нагрузку JWT. Subject содержит публичный идентификатор пользователя.
type Claims struct {
	Role model.Role `json:"role"`
	Type string     `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair содержит пару токенов, выдаваемую при входе.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthMiddleware выполняет проверку аутентификации пользователя по JWT в заголовке Authorization.
type AuthMiddleware struct {
	secretKey []byte
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Пустой ключ заменяется случайным: токены перестают быть действительными после перезапуска.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		now:       time.Now,
	}
}

// IssueTokens выдаёт access- и refresh-токены для пользователя.
func (a *AuthMiddleware) IssueTokens(userPublicID string, role model.Role) (TokenPair, error) {
	access, err := a.sign(userPublicID, role, tokenTypeAccess, accessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := a.sign(userPublicID, role, tokenTypeRefresh, refreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (a *AuthMiddleware) sign(subject string, role model.Role, typ string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (a *AuthMiddleware) parse(tokenStr, typ string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return a.secretKey, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshToken проверяет refresh-токен и возвращает его полезную нагрузку.
func (a *AuthMiddleware) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return a.parse(tokenStr, tokenTypeRefresh)
}

// Middleware проверяет access-токен и добавляет пользователя и его роль в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "Missing authorization token")
			return
		}

		claims, err := a.parse(strings.TrimSpace(parts[1]), tokenTypeAccess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = context.WithValue(ctx, roleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability пропускает запрос, только если роль пользователя допускает действие c.
func RequireCapability(c model.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
				return
			}
			if !role.Can(c) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext извлекает публичный идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// GetRoleFromContext извлекает роль пользователя из контекста запроса.
func GetRoleFromContext(ctx context.Context) (model.Role, bool) {
	role, ok := ctx.Value(roleKey).(model.Role)
	return role, ok
}

// WithUser возвращает контекст с пользователем, как после успешной аутентификации.
func WithUser(ctx context.Context, userPublicID string, role model.Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userPublicID)
	return context.WithValue(ctx, roleKey, role)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   true,
		"message": msg,
		"status":  status,
	})
}
