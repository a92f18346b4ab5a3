package httphandler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/application"
)

// Signup creates an operator account.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner, err := h.auth.Signup(r.Context(), application.Signup{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "failed to sign up")
		return
	}

	h.logger.Info("owner signed up", "username", owner.Username, "owner_id", owner.ID)
	writeJSON(w, http.StatusCreated, toOwnerResponse(owner))
}

// IssueToken exchanges a username and password for a bearer token. Both the
// OAuth2 password form encoding and a JSON body are accepted.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	raw, expiresAt, err := h.auth.IssueToken(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: raw,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
}

// Me returns the authenticated owner.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toOwnerResponse(ownerFromContext(r.Context())))
}
