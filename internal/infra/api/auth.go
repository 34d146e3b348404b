package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/usecase"
)

type ctxKey string

const ctxUser ctxKey = "api_user_id"

// Claims are the identity-provider token claims this service reads.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer}, nil
}

func (a *Authenticator) Parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	return claims, nil
}

// Mint signs a token for subject. Used by tests and local tooling.
func (a *Authenticator) Mint(subject, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// RequireUser authenticates the bearer token and resolves it to a local user,
// creating the user on first sign-in.
func RequireUser(auth *Authenticator, users usecase.UserUseCase, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(hdr, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, logging.With(r.Context(), logger), fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized))
				return
			}
			claims, err := auth.Parse(strings.TrimSpace(token))
			if err != nil {
				writeError(w, logging.With(r.Context(), logger), err)
				return
			}
			u, err := users.EnsureFromClaims(r.Context(), claims.Subject, claims.Email, claims.Name)
			if err != nil {
				writeError(w, logging.With(r.Context(), logger), err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUser, u.ID)
			ctx = logging.WithUserID(ctx, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxUser).(string)
	return v
}

// RequireAdminKey guards operator endpoints with a static key in X-Admin-Key.
func RequireAdminKey(key string, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				logger.Error().Msg("admin API key is not configured")
				writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
				return
			}
			got := r.Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
