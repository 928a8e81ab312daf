package api

import (
	"encoding/json"
	"net/http"

	"target-onchain-shopify-app/internal/application"
	"target-onchain-shopify-app/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AccountHandler serves the account connection card and the handshake relay
type AccountHandler struct {
	accounts *application.AccountService
	termsURL string
	logger   zerolog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *application.AccountService, termsURL string, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, termsURL: termsURL, logger: logger}
}

type accountResponse struct {
	domain.AccountLink
	State    domain.ConnectionState `json:"state"`
	TermsURL string                 `json:"termsUrl,omitempty"`
}

// Status reconciles the stored token and reports the connection
func (h *AccountHandler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link, err := h.accounts.Reconcile(r.Context(), domain.SessionFromContext(r.Context()))
		if err != nil {
			writeError(w, err, h.logger)
			return
		}

		state := domain.StateDisconnected
		if link.Connected {
			state = domain.StateConnected
		}
		writeJSON(w, http.StatusOK, accountResponse{AccountLink: *link, State: state, TermsURL: h.termsURL})
	}
}

// Disconnect unlinks the account
func (h *AccountHandler) Disconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.accounts.Disconnect(r.Context(), domain.SessionFromContext(r.Context())); err != nil {
			writeError(w, err, h.logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// StartHandshake creates a handshake and returns how to open the popup
func (h *AccountHandler) StartHandshake() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var screen domain.Screen
		if err := json.NewDecoder(r.Body).Decode(&screen); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		handshake, err := h.accounts.StartHandshake(r.Context(), domain.SessionFromContext(r.Context()), screen)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		writeJSON(w, http.StatusCreated, handshake)
	}
}

// GetHandshake returns the handshake snapshot the page polls
func (h *AccountHandler) GetHandshake() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handshake, err := h.accounts.GetHandshake(r.Context(), domain.SessionFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		writeJSON(w, http.StatusOK, handshake)
	}
}

// RelayEvent forwards a window event observed by the page
func (h *AccountHandler) RelayEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event domain.WindowEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		err := h.accounts.RelayEvent(r.Context(), domain.SessionFromContext(r.Context()), chi.URLParam(r, "id"), event)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
