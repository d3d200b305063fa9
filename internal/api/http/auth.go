package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

type contextKey string

const callerKey contextKey = "caller"

// adminRole is the role claim value that grants admin access.
const adminRole = "admin"

// authClaims is the internal claims type used for JWT parsing.
type authClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Auth verifies bearer credentials for the three API principals.
type Auth struct {
	secret      []byte
	oracleToken string
	now         func() time.Time
}

// NewAuth creates an authenticator over an HMAC signing secret and a
// dedicated oracle token.
func NewAuth(secret []byte, oracleToken string) *Auth {
	return &Auth{secret: secret, oracleToken: oracleToken, now: time.Now}
}

// WithClock overrides the validation clock, for tests.
func (a *Auth) WithClock(now func() time.Time) *Auth {
	a.now = now
	return a
}

// CallerFromContext returns the authenticated caller address.
func CallerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey).(string)
	return caller
}

// RequireCaller authenticates a caller token and stores the subject address
// in the request context.
func (a *Auth) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(r)
		if err != nil {
			apperrors.HandleError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin authenticates a token carrying the admin role claim.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(r)
		if err != nil {
			apperrors.HandleError(w, err)
			return
		}
		if claims.Role != adminRole {
			apperrors.HandleError(w, apperrors.New(apperrors.CodeUnauthorizedCaller, "admin role required"))
			return
		}
		ctx := context.WithValue(r.Context(), callerKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOracle authenticates the randomness oracle's dedicated token.
func (a *Auth) RequireOracle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || a.oracleToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(a.oracleToken)) != 1 {
			apperrors.HandleError(w, apperrors.New(apperrors.CodeUnauthorizedCaller, "oracle token required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) parse(r *http.Request) (*authClaims, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorizedCaller, "bearer token required")
	}

	var claims authClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnauthorizedCaller, "invalid bearer token", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorizedCaller, "token subject is required")
	}
	return &claims, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
