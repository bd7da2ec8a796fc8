package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"lifeassistant/errs"
	"lifeassistant/middleware"
	"lifeassistant/models"
	"lifeassistant/store"
	"lifeassistant/utils"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 6
)

type Handlers struct {
	Users    store.UserStore
	Auth     *middleware.Auth
	TokenTTL time.Duration
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, errs.Invalid("", "Invalid input")
	}
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		return c, errs.Invalid("", "Username and password are required")
	}
	return c, nil
}

// POST /api/auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := readCredentials(r)
	if err != nil {
		utils.RespondWithAppError(w, "register", err)
		return
	}
	if n := len([]rune(c.Username)); n < minUsernameLength || n > maxUsernameLength {
		utils.RespondWithAppError(w, "register", errs.Invalid("username", "must be %d to %d characters", minUsernameLength, maxUsernameLength))
		return
	}
	if len(c.Password) < minPasswordLength {
		utils.RespondWithAppError(w, "register", errs.Invalid("password", "must be at least %d characters", minPasswordLength))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[Auth] Failed to hash password for %s: %v", c.Username, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := models.User{
		ID:           "u" + utils.GetUUID(),
		Username:     c.Username,
		PasswordHash: string(hashed),
		CreatedAt:    time.Now(),
	}
	if err := h.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			utils.RespondWithError(w, http.StatusConflict, "User already exists")
			return
		}
		utils.RespondWithAppError(w, "register", err)
		return
	}
	log.Printf("[Auth] Registered user %s", c.Username)
	utils.RespondWithJSON(w, http.StatusCreated, user)
}

// POST /api/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := readCredentials(r)
	if err != nil {
		utils.RespondWithAppError(w, "log in", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.FindUserByUsername(ctx, c.Username)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, claims, err := h.Auth.IssueToken(user.ID, user.Username, h.TokenTTL)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	if err := h.Users.TouchLogin(ctx, user.ID, time.Now()); err != nil {
		log.Printf("[Auth] Failed to record login of %s: %v", user.ID, err)
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"userId":    user.ID,
		"username":  user.Username,
		"expiresAt": claims.ExpiresAt.Time,
	})
}

// POST /api/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.Auth.Revoked != nil && claims.ExpiresAt != nil {
		if err := h.Auth.Revoked.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			log.Printf("[Auth] Error revoking token of %s: %v", claims.UserID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to log out")
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
