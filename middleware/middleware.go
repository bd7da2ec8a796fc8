package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lifeassistant/globals"
	"lifeassistant/rdx"
	"lifeassistant/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	jwt.RegisteredClaims
}

// Auth signs and verifies access tokens.
type Auth struct {
	Secret  []byte
	Revoked rdx.Revoker
}

// IssueToken signs a token for the user valid for ttl.
func (a *Auth) IssueToken(userID, username string, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken verifies a raw token and checks it was not revoked by a logout.
func (a *Auth) ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: no user")
	}
	if a.Revoked != nil && claims.ID != "" {
		revoked, err := a.Revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("invalid token: revoked")
		}
	}
	return claims, nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") || len(h) < 8 {
		return "", false
	}
	return h[7:], true
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString, ok := BearerToken(r)
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or malformed token")
			return
		}

		claims, err := a.ParseToken(r.Context(), tokenString)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := globals.WithUser(r.Context(), claims.UserID)
		ctx = context.WithValue(ctx, globals.UsernameKey, claims.Username)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next(w, r.WithContext(ctx), ps)
	}
}

const claimsKey globals.ContextKey = "claims"

// ClaimsFrom returns the claims Authenticate stored on the request context.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}
