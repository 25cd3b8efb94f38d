package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quidbooks/server/internal/ingest"
	"github.com/quidbooks/server/internal/models"
	"github.com/quidbooks/server/internal/service"
	"github.com/quidbooks/server/internal/utils"
)

// Handler holds the HTTP handlers for the API
type Handler struct {
	svc service.Service
	log *utils.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, log *utils.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/health", h.Health)

	auth := api.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.Me)

	businesses := api.Group("/businesses")
	businesses.Use(AuthMiddleware(h.svc))
	businesses.POST("", h.CreateBusiness)
	businesses.GET("", h.ListBusinesses)
	businesses.GET("/:id", h.GetBusiness)
	businesses.POST("/:id/users", h.AddUserToBusiness)
	businesses.POST("/:id/transactions", h.UploadTransactions)
	businesses.GET("/:id/transactions", h.GetTransactions)
	businesses.GET("/:id/tax-export", h.TaxExport)
}

// Health is a liveness endpoint.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), TokenFromHeader(c)); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LogoutResponse{Success: true})
}

func (h *Handler) Me(c *gin.Context) {
	profile, err := h.svc.CurrentUser(c.Request.Context(), TokenFromHeader(c))
	if err != nil {
		h.renderError(c, err)
		return
	}

	// A nil profile covers both an invalid session and a session whose user
	// record has gone missing.
	if profile == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "INVALID_SESSION",
			Message: "no authenticated user",
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) CreateBusiness(c *gin.Context) {
	var req models.CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.CreateBusiness(c.Request.Context(), c.GetString("sessionToken"), req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListBusinesses(c *gin.Context) {
	businesses, err := h.svc.UserBusinesses(c.Request.Context(), c.GetString("sessionToken"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ListBusinessesResponse{
		Success:    true,
		Businesses: businesses,
	})
}

func (h *Handler) GetBusiness(c *gin.Context) {
	resp, err := h.svc.GetBusiness(c.Request.Context(), c.GetString("sessionToken"), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) AddUserToBusiness(c *gin.Context) {
	var req models.AddUserToBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.AddUserToBusiness(c.Request.Context(), c.GetString("sessionToken"), c.Param("id"), req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UploadTransactions accepts a statement either as a JSON body with a
// csv_content field or as a raw text body.
func (h *Handler) UploadTransactions(c *gin.Context) {
	statement, ok := h.readStatement(c)
	if !ok {
		return
	}

	resp, err := h.svc.UploadBankTransactions(c.Request.Context(), c.GetString("sessionToken"), c.Param("id"), statement)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetTransactions(c *gin.Context) {
	resp, err := h.svc.Transactions(
		c.Request.Context(),
		c.GetString("sessionToken"),
		c.Param("id"),
		c.Query("start_date"),
		c.Query("end_date"),
		c.Query("category"),
	)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) TaxExport(c *gin.Context) {
	resp, err := h.svc.TaxExport(c.Request.Context(), c.GetString("sessionToken"), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) readStatement(c *gin.Context) (string, bool) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req models.UploadStatementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return "", false
		}
		return req.CSVContent, true
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.badRequest(c, err)
		return "", false
	}
	return string(body), true
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "INVALID_REQUEST",
		Message: err.Error(),
	})
}

// renderError maps service error kinds onto HTTP statuses. Unknown errors
// are logged and reported as internal.
func (h *Handler) renderError(c *gin.Context, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, service.ErrUsernameExists):
		status, code = http.StatusConflict, "USERNAME_EXISTS"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, service.ErrNoActiveSession):
		status, code = http.StatusUnauthorized, "NO_ACTIVE_SESSION"
	case errors.Is(err, service.ErrInvalidSession):
		status, code = http.StatusUnauthorized, "INVALID_SESSION"
	case errors.Is(err, service.ErrSessionExpired):
		status, code = http.StatusUnauthorized, "SESSION_EXPIRED"
	case errors.Is(err, service.ErrBusinessNotFound):
		status, code = http.StatusNotFound, "BUSINESS_NOT_FOUND"
	case errors.Is(err, service.ErrAccessDenied):
		status, code = http.StatusForbidden, "ACCESS_DENIED"
	case errors.Is(err, service.ErrUserNotFound):
		status, code = http.StatusNotFound, "USER_NOT_FOUND"
	case errors.Is(err, ingest.ErrStatementTooShort):
		status, code = http.StatusBadRequest, "CSV_TOO_SHORT"
	default:
		h.log.Error("request failed: %v", err)
		status, code = http.StatusInternalServerError, "INTERNAL_ERROR"
	}

	c.JSON(status, models.ErrorResponse{
		Error:   code,
		Message: err.Error(),
	})
}
