package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKeyActor struct{}

// ActorClaims is the authenticated identity extracted from a bearer token.
type ActorClaims struct {
	UserID string
	Email  string
}

// GetActor retrieves the authenticated actor from the context, or nil when
// the request was not authenticated.
func GetActor(ctx context.Context) *ActorClaims {
	actor, _ := ctx.Value(contextKeyActor{}).(*ActorClaims)
	return actor
}

// withActor injects an actor; exported via WithActor for handler tests.
func WithActor(ctx context.Context, actor *ActorClaims) context.Context {
	return context.WithValue(ctx, contextKeyActor{}, actor)
}

// RequireAuth validates an HMAC-signed bearer token and places its subject
// and email claims on the context as the invocation's authenticated actor.
func RequireAuth(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			actor, err := parseActorToken(raw, secret)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func parseActorToken(raw, secret string) (*ActorClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}
	email, _ := claims["email"].(string)
	return &ActorClaims{UserID: sub, Email: email}, nil
}
