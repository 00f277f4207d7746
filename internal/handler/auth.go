package handler

import (
	"crypto/subtle"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/strategyfactory/api/internal/config"
	"github.com/strategyfactory/api/internal/middleware"
	"github.com/strategyfactory/api/internal/model"
	"github.com/strategyfactory/api/pkg/response"
)

type AuthHandler struct {
	cfg       config.AuthConfig
	auth      *middleware.AuthMiddleware
	validator *validator.Validate
}

func NewAuthHandler(cfg config.AuthConfig, auth *middleware.AuthMiddleware, v *validator.Validate) *AuthHandler {
	return &AuthHandler{
		cfg:       cfg,
		auth:      auth,
		validator: v,
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.Password)) == 1
	if !userOK || !passOK {
		return response.Unauthorized(c, "Invalid credentials")
	}

	token, expiresAt, err := h.auth.GenerateToken(req.Username, time.Duration(h.cfg.Expiration)*time.Hour)
	if err != nil {
		return response.ServiceError(c, "Could not issue token")
	}

	return response.OK(c, model.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
