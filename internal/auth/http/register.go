package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ripple-social/ripple/internal/auth/service"
	"github.com/ripple-social/ripple/pkg/httpx"
	"github.com/ripple-social/ripple/pkg/slogx"
)

// RegisterHandler serves POST /auth/register.
type RegisterHandler struct {
	UserService *service.UserService
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *RegisterHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}

	u, err := h.UserService.Register(ctx, req.Name, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			httpx.WriteError(w, http.StatusBadRequest, "missing_fields", "please fill all the fields")
		case errors.Is(err, service.ErrUserExists):
			httpx.WriteError(w, http.StatusConflict, "user_exists", "username or email already taken")
		default:
			log.Error("registration failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "registration failed")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, PrincipalPayload{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
	})
}
