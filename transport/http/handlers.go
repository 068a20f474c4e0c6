package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/warden/adapters/i18n"
	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/service"
	"github.com/nbd-wtf/go-nostr"
)

// AdminHandlers contains HTTP handlers for the admin endpoints
type AdminHandlers struct {
	authService *service.AuthService
	tables      *service.Tables
	logger      *slog.Logger
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(authService *service.AuthService, tables *service.Tables, logger *slog.Logger) *AdminHandlers {
	return &AdminHandlers{
		authService: authService,
		tables:      tables,
		logger:      logger,
	}
}

// Status reports whether the instance has an admin
func (h *AdminHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.authService.Status())
}

// Auth handles a signed login challenge
func (h *AdminHandlers) Auth(c *gin.Context) {
	var req struct {
		Event *nostr.Event `json:"event" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": i18n.KeyInvalidEvent})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), *req.Event)
	if err != nil {
		statusCode := http.StatusInternalServerError
		detail := "Authentication failed"

		// Map specific errors to appropriate status codes
		switch {
		case errors.Is(err, core.ErrInvalidChallenge):
			statusCode = http.StatusBadRequest
			detail = i18n.KeyInvalidEvent
		case errors.Is(err, core.ErrChallengeExpired):
			statusCode = http.StatusBadRequest
			detail = i18n.KeyExpiredChallenge
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			detail = i18n.KeyInvalidSignature
		case errors.Is(err, core.ErrChallengeReplay):
			statusCode = http.StatusUnauthorized
			detail = i18n.KeyReplayedChallenge
		case errors.Is(err, core.ErrNotAdmin):
			statusCode = http.StatusForbidden
			detail = i18n.KeyNotAdmin
		default:
			h.logger.Error("admin login failed", "error", err)
		}

		c.JSON(statusCode, gin.H{"detail": detail})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Session returns the admin behind the bearer token
func (h *AdminHandlers) Session(c *gin.Context) {
	admin, ok := c.Get(ctxAdmin)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Admin not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

// Logout revokes the bearer token
func (h *AdminHandlers) Logout(c *gin.Context) {
	token := c.GetString(ctxToken)

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			// Even if expired, we'll consider logout successful
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		}
		h.logger.Error("logout failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// ListRows returns one page of a table
func (h *AdminHandlers) ListRows(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid page"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "25"))
	if err != nil || pageSize < 1 || pageSize > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid page_size"})
		return
	}

	rows, err := h.tables.Page(c.Param("table"), page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrUnknownTable) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown table"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to read table"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// InsertRow stores a row, sealing its protected fields to the admin
func (h *AdminHandlers) InsertRow(c *gin.Context) {
	var req struct {
		Values    map[string]string `json:"values" binding:"required"`
		Protected []string          `json:"protected"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}

	admin := h.authService.Admin()
	if admin == nil {
		c.JSON(http.StatusConflict, gin.H{"detail": "Instance has no admin"})
		return
	}

	row, err := h.tables.Insert(c.Param("table"), req.Values, req.Protected, admin.Pubkey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"row": row})
}
