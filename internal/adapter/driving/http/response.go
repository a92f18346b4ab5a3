package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SignupRequest is the request body for POST /api/v1/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// TokenRequest is the JSON request body for POST /api/v1/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned from a successful token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// OwnerResponse is the JSON representation of an operator account.
type OwnerResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// RegisterHostRequest is the request body for POST /api/v1/hosts.
type RegisterHostRequest struct {
	Address     string `json:"address"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Description string `json:"description"`
}

// HostResponse is the JSON representation of a registered host. The sealed
// secret is never included.
type HostResponse struct {
	ID              int64  `json:"id"`
	Address         string `json:"address"`
	Username        string `json:"username"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	CreatedAt       string `json:"created_at"`
}

// ServiceResponse is the JSON representation of an inventory row.
type ServiceResponse struct {
	ID        int64  `json:"id"`
	HostID    int64  `json:"host_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MessageResponse carries the outcome of a start/stop request.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the JSON representation of the health check.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toOwnerResponse(o model.Owner) OwnerResponse {
	return OwnerResponse{
		ID:        o.ID,
		Username:  o.Username,
		Name:      o.Name,
		Email:     o.Email,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toHostResponse(h model.Host) HostResponse {
	return HostResponse{
		ID:              h.ID,
		Address:         h.Address,
		Username:        h.Username,
		Description:     h.Description,
		DescriptionHTML: renderMarkdown(h.Description),
		CreatedAt:       h.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toServiceResponse(s model.Service) ServiceResponse {
	return ServiceResponse{
		ID:        s.ID,
		HostID:    s.HostID,
		Name:      s.Name,
		Status:    s.Status,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toServiceResponses never returns nil so an empty inventory encodes as [].
func toServiceResponses(services []model.Service) []ServiceResponse {
	resp := make([]ServiceResponse, 0, len(services))
	for _, s := range services {
		resp = append(resp, toServiceResponse(s))
	}
	return resp
}
