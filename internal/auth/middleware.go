package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xela07ax/fractal-gallery/internal/token"
)

// TokenVerifier — минимальный контракт для middleware; в проде это
// *Service, в тестах и метриках — обёртки над ним.
type TokenVerifier interface {
	VerifyAccess(raw string) (token.Payload, error)
}

type principalKey struct{}

// Principal достаёт клеймы проверенного токена из контекста запроса.
func Principal(ctx context.Context) (token.Payload, bool) {
	p, ok := ctx.Value(principalKey{}).(token.Payload)
	return p, ok
}

// WithPrincipal кладёт клеймы в контекст. Используется middleware
// и тестами обработчиков.
func WithPrincipal(ctx context.Context, p token.Payload) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// BearerToken выделяет токен из заголовка Authorization.
// Любое отклонение от схемы "Bearer <token>" — ошибка.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || rest == "" {
		return "", errors.New("invalid authorization scheme")
	}
	return rest, nil
}

// NewMiddleware закрывает группу маршрутов bearer-проверкой.
// Истёкший access отдаёт код token_expired — по нему клиент
// запускает ровно один refresh; остальные причины кодом invalid_token.
func NewMiddleware(v TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
				return
			}

			payload, err := v.VerifyAccess(raw)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				status, code := Classify(err)
				writeAuthError(w, status, code, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), payload)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
