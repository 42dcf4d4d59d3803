// Package auth guards the operator endpoints with HS256 bearer tokens.
package auth

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const ctxSubject ctxKey = "sub"

// JWTCfg holds bearer-token verification settings.
type JWTCfg struct {
	// HS256Secret is the HMAC secret tokens must be signed with. Empty
	// disables verification: every request passes, with one startup
	// warning. That is the local-development mode.
	HS256Secret string
}

// Middleware validates Authorization: Bearer tokens signed with HS256 and
// stores the token subject in the request context.
func Middleware(cfg JWTCfg) func(http.Handler) http.Handler {
	if cfg.HS256Secret == "" {
		log.Warn().Msg("ADMIN_JWT_SECRET not set, operator endpoints are unauthenticated")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := ""
			if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
				tok = h[7:]
			}
			if tok == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.HS256Secret), nil
			})
			if err != nil || !t.Valid {
				log.Ctx(r.Context()).Warn().Err(err).Msg("jwt validation failed")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sub, _ := claims["sub"].(string)
			ctx := context.WithValue(r.Context(), ctxSubject, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject returns the authenticated token subject, "" when verification is
// disabled or the token carried no sub claim.
func Subject(ctx context.Context) string {
	sub, _ := ctx.Value(ctxSubject).(string)
	return sub
}
