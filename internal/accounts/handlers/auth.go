// Package handlers exposes the account endpoints: registration, login, and
// role administration.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/marketplace/internal/accounts/store"
	"github.com/example/marketplace/internal/accounts/tokens"
	"github.com/example/marketplace/internal/platform/api"
	"github.com/example/marketplace/internal/platform/auth"
	"github.com/example/marketplace/internal/platform/events"
	"github.com/example/marketplace/internal/platform/httpserver"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

var validate = validator.New()

func decodeJSON[T any](w http.ResponseWriter, r *http.Request, rid string, dst *T) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
		return false
	}
	return true
}

func validationDetails(err error) map[string]any {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

type registerReq struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	Location  string `json:"location" validate:"omitempty,max=150"`
}

type loginReq struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResp struct {
	User        store.User `json:"user"`
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Register creates an account and returns it with a fresh access token.
// New accounts start with the user role; provider and admin are granted later
// through role administration.
func Register(users store.UserStore, svc tokens.Service, ev *events.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req registerReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION_FAILED", "invalid registration payload", rid, validationDetails(err))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("hash password", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		user, err := users.Create(r.Context(), store.CreateUserParams{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			Location:     req.Location,
			Roles:        []string{auth.RoleUser},
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				api.Conflict(w, "USER_EXISTS", "username or email already taken", rid, nil)
				return
			}
			log.Error("create user", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		tok, exp, err := svc.NewAccessToken(user.ID, user.Roles, time.Now().UTC())
		if err != nil {
			log.Error("issue token", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		ev.Publish(events.SubjectUserRegistered, "user_registered", user.ID, map[string]any{
			"username": user.Username,
		})
		log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))

		api.WriteJSON(w, http.StatusCreated, authResp{User: user, AccessToken: tok, ExpiresAt: exp})
	}
}

// Login authenticates by username or email and returns a fresh access token.
func Login(users store.UserStore, svc tokens.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req loginReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION_FAILED", "login and password are required", rid, validationDetails(err))
			return
		}

		row, err := users.FindByLogin(r.Context(), req.Login)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.Unauthorized(w, "INVALID_CREDENTIALS", "invalid login or password", rid)
				return
			}
			log.Error("find user", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)) != nil {
			api.Unauthorized(w, "INVALID_CREDENTIALS", "invalid login or password", rid)
			return
		}

		tok, exp, err := svc.NewAccessToken(row.User.ID, row.User.Roles, time.Now().UTC())
		if err != nil {
			log.Error("issue token", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		api.WriteJSON(w, http.StatusOK, authResp{User: row.User, AccessToken: tok, ExpiresAt: exp})
	}
}
