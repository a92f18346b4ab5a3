package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/application"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	auth      *application.AuthService
	registry  *application.RegistryService
	inventory *application.InventoryService
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	auth *application.AuthService,
	registry *application.RegistryService,
	inventory *application.InventoryService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		auth:      auth,
		registry:  registry,
		inventory: inventory,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging, CORS, and recovery middleware. corsOrigins may be
// empty to disable cross-origin access.
func NewServeMux(h *Handler, corsOrigins []string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/signup", h.Signup)
	mux.HandleFunc("POST /api/v1/token", h.IssueToken)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.Handle("GET /api/v1/users/me", h.requireAuth(h.Me))
	mux.Handle("GET /api/v1/hosts", h.requireAuth(h.ListHosts))
	mux.Handle("POST /api/v1/hosts", h.requireAuth(h.RegisterHost))
	mux.Handle("DELETE /api/v1/hosts/{id}", h.requireAuth(h.RemoveHost))
	mux.Handle("GET /api/v1/hosts/{id}/services", h.requireAuth(h.ListServices))
	mux.Handle("GET /api/v1/hosts/{id}/services/cached", h.requireAuth(h.CachedServices))
	mux.Handle("POST /api/v1/hosts/{id}/services/{name}/start", h.requireAuth(h.StartService))
	mux.Handle("POST /api/v1/hosts/{id}/services/{name}/stop", h.requireAuth(h.StopService))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = corsMiddleware(corsOrigins, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// ListHosts returns the caller's registered hosts.
func (h *Handler) ListHosts(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	hosts, err := h.registry.ListHosts(r.Context(), owner.ID)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list hosts")
		return
	}

	resp := make([]HostResponse, 0, len(hosts))
	for _, host := range hosts {
		resp = append(resp, toHostResponse(host))
	}

	writeJSON(w, http.StatusOK, resp)
}

// RegisterHost stores a new host owned by the caller. The password is sealed
// before it is persisted and is never echoed back.
func (h *Handler) RegisterHost(w http.ResponseWriter, r *http.Request) {
	var req RegisterHostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := ownerFromContext(r.Context())
	host, err := h.registry.RegisterHost(r.Context(), owner.ID, application.HostRegistration{
		Address:     req.Address,
		Username:    req.Username,
		Password:    req.Password,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "failed to register host")
		return
	}

	h.logger.Info("host registered", "host", host.Address, "host_id", host.ID, "owner_id", owner.ID)
	writeJSON(w, http.StatusCreated, toHostResponse(host))
}

// RemoveHost deletes a host and its cached inventory.
func (h *Handler) RemoveHost(w http.ResponseWriter, r *http.Request) {
	hostID, ok := parseHostID(w, r)
	if !ok {
		return
	}

	owner := ownerFromContext(r.Context())
	if err := h.registry.RemoveHost(r.Context(), hostID, owner.ID); err != nil {
		h.writeServiceError(w, r, err, "failed to remove host")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListServices queries the host for its services and reconciles the result
// into the inventory.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	hostID, ok := parseHostID(w, r)
	if !ok {
		return
	}

	owner := ownerFromContext(r.Context())
	services, err := h.inventory.RefreshServices(r.Context(), hostID, owner.ID)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list services")
		return
	}

	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

// CachedServices returns the inventory as last reconciled, without contacting the host.
func (h *Handler) CachedServices(w http.ResponseWriter, r *http.Request) {
	hostID, ok := parseHostID(w, r)
	if !ok {
		return
	}

	owner := ownerFromContext(r.Context())
	services, err := h.inventory.CachedServices(r.Context(), hostID, owner.ID)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list cached services")
		return
	}

	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

// StartService starts a named service on the host.
func (h *Handler) StartService(w http.ResponseWriter, r *http.Request) {
	h.controlService(w, r, "start", h.inventory.StartService)
}

// StopService stops a named service on the host.
func (h *Handler) StopService(w http.ResponseWriter, r *http.Request) {
	h.controlService(w, r, "stop", h.inventory.StopService)
}

func (h *Handler) controlService(
	w http.ResponseWriter,
	r *http.Request,
	verb string,
	op func(ctx context.Context, hostID, ownerID int64, name string) (string, error),
) {
	hostID, ok := parseHostID(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")

	owner := ownerFromContext(r.Context())
	msg, err := op(r.Context(), hostID, owner.ID, name)
	if err != nil {
		var execErr *driven.RemoteExecutionError
		if errors.As(err, &execErr) {
			h.logger.Warn("service control failed",
				"op", execErr.Op,
				"host", execErr.Host,
				"service", name,
				"exit_code", execErr.ExitCode,
				"diagnostic", execErr.Diagnostic,
			)
			writeError(w, http.StatusBadGateway, "failed to "+verb+" service '"+name+"': "+execErr.Diagnostic)
			return
		}
		h.writeServiceError(w, r, err, "failed to "+verb+" service")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// parseHostID reads the {id} path segment, writing a 400 on failure.
func parseHostID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid host id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps application and port errors to HTTP responses.
// Anything unrecognized is logged and reported as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var (
		connErr *driven.ConnectionError
		execErr *driven.RemoteExecutionError
	)

	switch {
	case errors.Is(err, driven.ErrHostNotFound):
		writeError(w, http.StatusNotFound, "host not found")
	case errors.Is(err, driven.ErrHostForbidden):
		writeError(w, http.StatusForbidden, "not allowed to access this host")
	case errors.Is(err, driven.ErrDuplicateHost):
		writeError(w, http.StatusConflict, "host already registered")
	case errors.Is(err, driven.ErrOwnerExists):
		writeError(w, http.StatusConflict, "username already registered")
	case errors.Is(err, application.ErrInvalidHost),
		errors.Is(err, application.ErrInvalidSignup),
		errors.Is(err, driven.ErrInvalidServiceName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrUnauthenticated):
		writeUnauthorized(w, err.Error())
	case errors.As(err, &connErr):
		h.logger.Warn("remote host unreachable", "host", connErr.Host, "op", connErr.Op, "error", connErr.Err)
		writeError(w, http.StatusBadGateway, "could not connect to host "+connErr.Host)
	case errors.As(err, &execErr):
		h.logger.Warn("remote command failed",
			"host", execErr.Host,
			"op", execErr.Op,
			"exit_code", execErr.ExitCode,
			"diagnostic", execErr.Diagnostic,
		)
		writeError(w, http.StatusBadGateway, msg)
	default:
		h.logger.Error(msg, "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
