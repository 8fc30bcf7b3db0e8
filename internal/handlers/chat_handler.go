package handlers

import (
	"io"
	"net/http"
	"strconv"

	"chapacerto/internal/middleware"
	"chapacerto/internal/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chat          services.ChatService
	notifications services.NotificationService
}

func NewChatHandler(chat services.ChatService, notifications services.NotificationService) *ChatHandler {
	return &ChatHandler{chat: chat, notifications: notifications}
}

func (h *ChatHandler) Send(c *gin.Context) {
	proposalID, ok := parseID(c, "proposal_id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	msg, err := h.chat.Send(middleware.UserID(c), proposalID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) History(c *gin.Context) {
	proposalID, ok := parseID(c, "proposal_id")
	if !ok {
		return
	}
	messages, err := h.chat.History(middleware.UserID(c), proposalID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	proposalID, ok := parseID(c, "proposal_id")
	if !ok {
		return
	}
	if err := h.chat.MarkRead(middleware.UserID(c), proposalID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	proposalID, ok := parseID(c, "proposal_id")
	if !ok {
		return
	}
	count, err := h.chat.UnreadCount(middleware.UserID(c), proposalID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// Stream pushes notifications over SSE until the client disconnects.
// Query params lat/lng/radius_km/skill scope new-order hints for workers.
func (h *ChatHandler) Stream(c *gin.Context) {
	opts := services.SubscribeOptions{Skills: c.QueryArray("skill")}
	if pos := parseCoord(c); pos != nil {
		opts.Position = pos
		opts.RadiusKm, _ = strconv.ParseFloat(c.DefaultQuery("radius_km", "0"), 64)
	}

	ch, cancel := h.notifications.Subscribe(middleware.UserID(c), opts)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
