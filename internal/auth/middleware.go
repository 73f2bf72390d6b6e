package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/staff-access/internal/staff"
	"github.com/frahmantamala/staff-access/internal/transport"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates staff access tokens minted by the external
// identity service. This service never issues tokens.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// Middleware authenticates the request actor: verify the bearer token, load
// the staff user's current assignments and effective permissions, and put
// an Actor into context for the authorization checks downstream.
type Middleware struct {
	*transport.BaseHandler
	verifier *TokenVerifier
	store    staff.Store
}

func NewMiddleware(verifier *TokenVerifier, store staff.Store, logger *slog.Logger) *Middleware {
	return &Middleware{
		BaseHandler: transport.NewBaseHandler(logger),
		verifier:    verifier,
		store:       store,
	}
}

func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.ExtractTokenFromHeader(r)
		if token == "" {
			m.Logger.Warn("auth middleware: missing authorization token")
			m.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.Logger.Warn("auth middleware: token validation failed", "error", err)
			m.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil {
			m.Logger.Warn("auth middleware: malformed user id in token claims", "value", claims.UserID)
			m.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := m.store.GetByID(r.Context(), userID)
		if err != nil {
			m.Logger.Warn("auth middleware: failed to load staff user", "user_id", userID, "error", err)
			m.WriteError(w, http.StatusUnauthorized, "user not found")
			return
		}
		if !user.IsActive {
			m.Logger.Warn("auth middleware: inactive staff user", "user_id", userID)
			m.WriteError(w, http.StatusUnauthorized, "user is inactive")
			return
		}

		actor := &Actor{
			ID:          user.ID,
			Email:       user.Email,
			Permissions: user.EffectivePermissions,
			Assignments: user.TeamAssignments,
		}

		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}
