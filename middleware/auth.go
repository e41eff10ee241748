package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"firebase.google.com/go/auth"
	"github.com/gorilla/mux"

	"github.com/dcode-github/property_rentals/backend/models"
	"github.com/dcode-github/property_rentals/backend/utils"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	requestIDKey
)

var ErrUnauthenticated = errors.New("middleware: no authenticated identity")

// TokenVerifier turns a bearer token into the caller's identity. Role is
// resolved separately.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

type JWTVerifier struct {
	issuer *utils.TokenIssuer
}

func NewJWTVerifier(issuer *utils.TokenIssuer) *JWTVerifier {
	return &JWTVerifier{issuer: issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (models.Identity, error) {
	claims, err := v.issuer.ValidateJWT(token)
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{UID: claims.UserID, Email: claims.Email}, nil
}

// FirebaseVerifier accepts Firebase Auth ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (models.Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return models.Identity{}, err
	}
	email, _ := tok.Claims["email"].(string)
	return models.Identity{UID: tok.UID, Email: email}, nil
}

// AuthMiddleware requires an "Authorization: Bearer <token>" header and
// stores the verified identity in the request context.
func AuthMiddleware(verifier TokenVerifier, logger *slog.Logger) mux.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenHeader := r.Header.Get("Authorization")
			if tokenHeader == "" {
				logger.Info("Missing Authorization header", slog.String("method", r.Method), slog.String("path", r.URL.Path))
				http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			tokenParts := strings.Split(tokenHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				logger.Info("Invalid Authorization header format", slog.String("method", r.Method), slog.String("path", r.URL.Path))
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			identity, err := verifier.Verify(r.Context(), tokenParts[1])
			if err != nil {
				logger.Info("Invalid or expired token", slog.String("error", err.Error()))
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}
