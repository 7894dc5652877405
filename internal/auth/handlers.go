package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixelwanderer/server/internal/config"
)

// RoleOperator is the single role issued to authenticated operators.
const RoleOperator = "operator"

// Handlers serves the operator login endpoint. Authentication covers the
// admin/introspection surface only; tile requests are unauthenticated.
type Handlers struct {
	cfg        *config.Config
	jwtService *JWTService
	validator  *validator.Validate
	log        *zap.Logger
}

// NewHandlers creates the auth handlers instance
func NewHandlers(cfg *config.Config, jwtService *JWTService, log *zap.Logger) *Handlers {
	return &Handlers{
		cfg:        cfg,
		jwtService: jwtService,
		validator:  validator.New(),
		log:        log,
	}
}

// LoginRequest is the operator login payload
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	Token string `json:"token"`
}

// Login handles operator authentication
// POST /api/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Auth.AdminPasswordHash == "" {
		h.sendError(w, http.StatusServiceUnavailable, "LoginDisabled", "Operator login is not configured")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.sendError(w, http.StatusBadRequest, "InvalidRequest", "Password is required")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.Auth.AdminPasswordHash), []byte(req.Password)); err != nil {
		h.sendError(w, http.StatusUnauthorized, "InvalidCredentials", "Invalid password")
		return
	}

	token, err := h.jwtService.GenerateToken(RoleOperator)
	if err != nil {
		h.log.Error("failed to generate operator token", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "InternalError", "Failed to generate token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(LoginResponse{Token: token}); err != nil {
		h.log.Warn("failed to encode login response", zap.Error(err))
	}
}

// sendError sends an error response in JSON format
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errCode,
		"message": message,
	})
}
