package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"skymap/internal/devicecode"
	"skymap/pkg/auth"
	"skymap/pkg/logging"
)

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// tokenResponse is the payload of the token endpoint. This is the one place
// a token value crosses the API, deliberately: the endpoint is loopback-only
// and CSRF-protected.
type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        string    `json:"user,omitempty"`
	TenantID    string    `json:"tenantId"`
}

type slotRequest struct {
	Slot string `json:"slot"`
	All  bool   `json:"all,omitempty"`
}

func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": s.csrfToken})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("slot"); name != "" {
		slot, err := auth.ParseSlot(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status, err := s.service.Status(slot)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}
	writeJSON(w, http.StatusOK, s.service.StatusAll())
}

func (s *Server) handleDeviceCode(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	slot, err := auth.ParseSlot(req.Slot)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prompt, err := s.service.SignIn(r.Context(), slot)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// flowStatusResponse reports how the slot's most recent device-code flow is
// going. No token material, so no CSRF requirement.
type flowStatusResponse struct {
	Status    auth.FlowStatus `json:"status"`
	User      string          `json:"user,omitempty"`
	TenantID  string          `json:"tenantId,omitempty"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

func (s *Server) handleDeviceCodeStatus(w http.ResponseWriter, r *http.Request) {
	slot, err := auth.ParseSlot(r.URL.Query().Get("slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := s.service.Status(slot)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flowStatusResponse{
		Status:    status.FlowStatus,
		User:      status.User,
		TenantID:  status.TenantID,
		ExpiresAt: status.ExpiresAt,
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.All {
		if err := s.service.SignOutAll(); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	slot, err := auth.ParseSlot(req.Slot)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.service.SignOut(slot); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	slot, err := auth.ParseSlot(r.URL.Query().Get("slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.GetValidToken(r.Context(), slot, "")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: info.Token.Value(),
		ExpiresAt:   info.ExpiresAt,
		User:        info.User,
		TenantID:    info.TenantID,
	})
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var authRequired *auth.AuthRequiredError
	var mismatch *auth.TenantMismatchError
	var refreshErr *devicecode.RefreshError

	switch {
	case errors.As(err, &authRequired):
		writeError(w, http.StatusUnauthorized, authRequired.Error())
	case errors.As(err, &mismatch):
		writeError(w, http.StatusConflict, mismatch.Error())
	case errors.As(err, &refreshErr):
		writeError(w, http.StatusUnauthorized, "session expired, sign in again")
	case errors.Is(err, devicecode.ErrInvalidTenantConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Error("Server", err, "Request failed")
		writeError(w, http.StatusBadGateway, "authentication service error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("Server", err, "Failed to encode response")
	}
}
