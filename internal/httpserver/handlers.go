// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/sessionforge/sessionforge/internal/identity"
	"github.com/sessionforge/sessionforge/internal/observability"
)

// LoginService authenticates a user and issues a session token.
type LoginService interface {
	Login(ctx context.Context, way identity.LoginWay, input, password string) (int64, string, error)
}

// RegistrationService creates a user account and issues its first token.
type RegistrationService interface {
	Register(ctx context.Context, username, email, password, passwordConfirmation string) (*identity.RegistrationResult, error)
}

// TokenService checks and revokes session tokens.
type TokenService interface {
	Verify(ctx context.Context, userID int64, presented string) (bool, error)
	Logout(ctx context.Context, userID int64, presented string) error
}

// Handler serves the user and token endpoints.
type Handler struct {
	login    LoginService
	register RegistrationService
	tokens   TokenService
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewHandler builds a Handler. metrics may be nil.
func NewHandler(login LoginService, register RegistrationService, tokens TokenService, metrics *observability.Metrics, logger *slog.Logger) (*Handler, error) {
	if login == nil || register == nil || tokens == nil {
		return nil, oops.Errorf("login, registration and token services are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		login:    login,
		register: register,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

type loginRequest struct {
	LoginWay     string `json:"loginWay"`
	UserInput    string `json:"userInput"`
	UserPassword string `json:"userPassword"`
}

type registerRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type tokenRequest struct {
	UserID    int64  `json:"userId"`
	UserToken string `json:"userToken"`
}

type tokenData struct {
	Token string `json:"token"`
}

// handleIndex reports service identity for probes and the curious.
func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, "sessionforge", nil)
}

// handleLogin serves POST /user/login.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countLogin("malformed")
		writeError(w, r, h.logger, oops.Code("VALIDATION_BODY").Wrap(err))
		return
	}

	way, err := identity.ParseLoginWay(req.LoginWay)
	if err != nil {
		h.countLogin("malformed")
		writeError(w, r, h.logger, err)
		return
	}

	_, token, err := h.login.Login(r.Context(), way, req.UserInput, req.UserPassword)
	if err != nil {
		h.countLogin("failure")
		writeError(w, r, h.logger, err)
		return
	}

	h.countLogin("success")
	writeOK(w, "login success", tokenData{Token: token})
}

// handleRegister serves POST /user/register. A created account answers
// HTTP 201 with body code 204, the envelope existing clients expect.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countRegistration("malformed")
		writeError(w, r, h.logger, oops.Code("VALIDATION_BODY").Wrap(err))
		return
	}

	result, err := h.register.Register(r.Context(), req.Username, req.Email, req.Password, req.PasswordConfirmation)
	if err != nil {
		h.countRegistration("failure")
		writeError(w, r, h.logger, err)
		return
	}

	h.countRegistration("success")
	writeEnvelope(w, http.StatusCreated, http.StatusNoContent, "user created", tokenData{Token: result.Token})
}

// handleVerify serves POST /user/token/verify.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countTokenOp("verify", "malformed")
		writeError(w, r, h.logger, oops.Code("VALIDATION_BODY").Wrap(err))
		return
	}

	valid, err := h.tokens.Verify(r.Context(), req.UserID, req.UserToken)
	if err != nil {
		h.countTokenOp("verify", "error")
		writeError(w, r, h.logger, err)
		return
	}
	if !valid {
		h.countTokenOp("verify", "invalid")
		writeEnvelope(w, http.StatusUnauthorized, http.StatusUnauthorized, "invalid token", nil)
		return
	}

	h.countTokenOp("verify", "valid")
	writeOK(w, "token valid", nil)
}

// handleLogout serves POST /user/token/logout.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countTokenOp("logout", "malformed")
		writeError(w, r, h.logger, oops.Code("VALIDATION_BODY").Wrap(err))
		return
	}

	if err := h.tokens.Logout(r.Context(), req.UserID, req.UserToken); err != nil {
		h.countTokenOp("logout", "failure")
		writeError(w, r, h.logger, err)
		return
	}

	h.countTokenOp("logout", "success")
	writeOK(w, "logout success", nil)
}

func (h *Handler) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) countRegistration(outcome string) {
	if h.metrics != nil {
		h.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) countTokenOp(op, outcome string) {
	if h.metrics != nil {
		h.metrics.TokenOpsTotal.WithLabelValues(op, outcome).Inc()
	}
}
