package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/model"
	"github.com/fakturnik/invoice-intake-service/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the handler's routes with the given router
func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/v1/auth/token", h.ExchangeToken)
}

// ExchangeToken exchanges the admin API key for a short-lived access token
// @Summary Exchange API key for access token
// @Description Validates the admin API key and returns a JWT for the admin endpoints
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.TokenRequest true "API key"
// @Success 200 {object} model.TokenResponse "Access token"
// @Failure 400 {object} model.ErrorResponse "Bad request"
// @Failure 401 {object} model.ErrorResponse "Invalid API key"
// @Router /v1/auth/token [post]
func (h *AuthHandler) ExchangeToken(c *gin.Context) {
	var req model.TokenRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}

	token, err := h.authService.ExchangeAPIKey(req.APIKey)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAPIKey) {
			respondUnauthorized(c, "Invalid API key")
			return
		}
		h.logger.Error("token exchange failed", zap.Error(err))
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, model.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   token.ExpiresIn,
	})
}
