package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/aloks98/userreg/ratelimit"
)

// Handler serves the API with plain net/http handlers. The chi router mounts
// these directly.
type Handler struct {
	svc Service
}

// NewHandler creates a Handler for svc.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeRegister(r.Body)
	if err != nil {
		WriteError(w, err)
		return
	}

	if _, err := h.svc.Register(r.Context(), req); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, Success(MessageRegistered))
}

// Users handles GET /users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, users)
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.svc.Status())
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the JSON error response for err.
func WriteError(w http.ResponseWriter, err error) {
	status, body := ErrorResponse(err)
	WriteJSON(w, status, body)
}

// CORS applies CORSHeaders and answers preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range CORSHeaders {
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitedJSON is a ratelimit.Config.OnLimited that writes the JSON error body.
func RateLimitedJSON(w http.ResponseWriter, _ *http.Request, _ ratelimit.Result) {
	WriteJSON(w, http.StatusTooManyRequests, Failure(MessageRateLimited))
}
