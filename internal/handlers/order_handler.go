package handlers

import (
	"net/http"
	"strconv"

	"chapacerto/internal/middleware"
	"chapacerto/internal/models"
	"chapacerto/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	lifecycle services.LifecycleService
	matching  services.MatchingService
	contact   services.ContactService
	reviews   services.ReviewService
	chat      services.ChatService
}

func NewOrderHandler(lifecycle services.LifecycleService, matching services.MatchingService, contact services.ContactService, reviews services.ReviewService, chat services.ChatService) *OrderHandler {
	return &OrderHandler{lifecycle: lifecycle, matching: matching, contact: contact, reviews: reviews, chat: chat}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

func parseCoord(c *gin.Context) *models.Coord {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" || lngStr == "" {
		return nil
	}
	lat, err1 := strconv.ParseFloat(latStr, 64)
	lng, err2 := strconv.ParseFloat(lngStr, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &models.Coord{Lat: lat, Lng: lng}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var input services.OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	order, err := h.lifecycle.CreateOrder(middleware.UserID(c), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) Update(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	order, err := h.lifecycle.EditOrder(middleware.UserID(c), orderID, input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.lifecycle.DeleteOrder(middleware.UserID(c), orderID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.lifecycle.GetOrder(orderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":    order,
		"is_stale": h.lifecycle.IsStale(order),
	})
}

// Mine lists the contractor's own orders with the stale flag and the unread
// chat badge attached.
func (h *OrderHandler) Mine(c *gin.Context) {
	callerID := middleware.UserID(c)
	orders, err := h.lifecycle.OrdersByContractor(callerID)
	if err != nil {
		fail(c, err)
		return
	}
	type entry struct {
		models.Order
		IsStale bool  `json:"is_stale"`
		Unread  int64 `json:"unread"`
	}
	out := make([]entry, 0, len(orders))
	for i := range orders {
		unread, err := h.chat.UnreadForOrder(callerID, orders[i].ID)
		if err != nil {
			fail(c, err)
			return
		}
		out = append(out, entry{
			Order:   orders[i],
			IsStale: h.lifecycle.IsStale(&orders[i]),
			Unread:  unread,
		})
	}
	c.JSON(http.StatusOK, out)
}

// StaleOrders lists the caller's open orders flagged for attention.
func (h *OrderHandler) StaleOrders(c *gin.Context) {
	orders, err := h.lifecycle.StaleOpenOrders(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// Feed is the worker's view: open orders ranked by distance.
func (h *OrderHandler) Feed(c *gin.Context) {
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius_km", "0"), 64)
	skills := c.QueryArray("skill")
	ranked, err := h.matching.RankOrders(parseCoord(c), skills, radius)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

// Radar is the contractor's view: available workers ranked by distance.
func (h *OrderHandler) Radar(c *gin.Context) {
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius_km", "0"), 64)
	ranked, err := h.matching.RankWorkers(parseCoord(c), radius, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

func (h *OrderHandler) SubmitProposal(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.ProposalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	proposal, err := h.lifecycle.SubmitProposal(middleware.UserID(c), orderID, input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

func (h *OrderHandler) ListProposals(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	proposals, err := h.lifecycle.ProposalsByOrder(middleware.UserID(c), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

func (h *OrderHandler) MyProposals(c *gin.Context) {
	proposals, err := h.lifecycle.ProposalsByWorker(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

func (h *OrderHandler) AcceptProposal(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	proposalID, ok := parseID(c, "proposal_id")
	if !ok {
		return
	}
	order, err := h.lifecycle.AcceptProposal(middleware.UserID(c), orderID, proposalID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) RejectProposal(c *gin.Context) {
	proposalID, ok := parseID(c, "proposal_id")
	if !ok {
		return
	}
	if err := h.lifecycle.RejectProposal(middleware.UserID(c), proposalID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) WithdrawProposal(c *gin.Context) {
	proposalID, ok := parseID(c, "proposal_id")
	if !ok {
		return
	}
	if err := h.lifecycle.WithdrawProposal(middleware.UserID(c), proposalID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	order, err := h.lifecycle.CancelEngagement(middleware.UserID(c), orderID, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Finish(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.lifecycle.FinishOrder(middleware.UserID(c), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Contact reveals the counterpart's phone. Gated behind the paid fee.
func (h *OrderHandler) Contact(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	card, err := h.contact.Reveal(orderID, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *OrderHandler) Review(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Stars int `json:"stars"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	review, err := h.reviews.SubmitReview(middleware.UserID(c), orderID, req.Stars)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *OrderHandler) Report(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		AccusedID uuid.UUID `json:"accused_id"`
		Reason    string    `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	report, err := h.reviews.CreateReport(middleware.UserID(c), req.AccusedID, orderID, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}
