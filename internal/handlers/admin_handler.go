package handlers

import (
	"net/http"

	"chapacerto/internal/middleware"
	"chapacerto/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	admin services.AdminService
}

func NewAdminHandler(admin services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) SetBlocked(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Blocked bool `json:"blocked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	if err := h.admin.SetBlocked(middleware.UserID(c), userID, req.Blocked); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": req.Blocked})
}

func (h *AdminHandler) SetAdmin(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Admin bool `json:"admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	if err := h.admin.SetAdmin(middleware.UserID(c), userID, req.Admin); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": req.Admin})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(middleware.UserID(c), userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListReports(c *gin.Context) {
	reports, err := h.admin.ListReports(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *AdminHandler) DismissReport(c *gin.Context) {
	reportID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DismissReport(middleware.UserID(c), reportID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) Counts(c *gin.Context) {
	counts, err := h.admin.Counts(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
