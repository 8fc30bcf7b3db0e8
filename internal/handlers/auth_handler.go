package handlers

import (
	"net/http"
	"time"

	"chapacerto/internal/middleware"
	"chapacerto/internal/models"
	"chapacerto/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService services.UserService
	jwtSecret   string
	tokenTTL    time.Duration
}

func NewAuthHandler(userService services.UserService, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{userService: userService, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	user, err := h.userService.Register(input)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := middleware.GenerateToken(user, h.jwtSecret, h.tokenTTL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	user, err := h.userService.Login(req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := middleware.GenerateToken(user, h.jwtSecret, h.tokenTTL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.userService.GetByID(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var input services.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	user, err := h.userService.UpdateProfile(middleware.UserID(c), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) SetAvailability(c *gin.Context) {
	var req struct {
		Available bool     `json:"available"`
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	var position *models.Coord
	if req.Lat != nil && req.Lng != nil {
		position = &models.Coord{Lat: *req.Lat, Lng: *req.Lng}
	}
	if err := h.userService.SetAvailability(middleware.UserID(c), req.Available, position); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": req.Available})
}
