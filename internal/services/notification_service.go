package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chapacerto/internal/events"
	"chapacerto/internal/models"
	"chapacerto/internal/repository"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifyNewProposal      NotificationType = "new_proposal"
	NotifyProposalAccepted NotificationType = "proposal_accepted"
	NotifyNewMessage       NotificationType = "new_message"
	NotifyOrderCompleted   NotificationType = "order_completed"
	NotifyNewOrderInRadius NotificationType = "new_order_in_radius"
)

// Notification is a refresh hint pushed to a connected client. It carries
// identifiers, never payloads; the client re-fetches through the normal API.
type Notification struct {
	Type     NotificationType `json:"type"`
	OrderID  uuid.UUID        `json:"order_id,omitempty"`
	EntityID uuid.UUID        `json:"entity_id"`
	Unread   int64            `json:"unread,omitempty"`
	At       time.Time        `json:"at"`
}

// SubscribeOptions shape per-user routing. Position and RadiusKm gate
// new-order notifications for workers; both nil/zero means "everything".
type SubscribeOptions struct {
	Position *models.Coord
	RadiusKm float64
	Skills   []string
}

type NotificationService interface {
	// Run consumes the change-event bus until ctx is done. Call it once,
	// from its own goroutine.
	Run(ctx context.Context) error

	// Subscribe registers a user's delivery channel. The returned cancel
	// must be called when the client disconnects.
	Subscribe(userID uuid.UUID, opts SubscribeOptions) (<-chan Notification, func())
}

type subscriber struct {
	userID uuid.UUID
	opts   SubscribeOptions
	ch     chan Notification
}

type notificationService struct {
	bus          events.Bus
	orderRepo    repository.OrderRepository
	proposalRepo repository.ProposalRepository
	messageRepo  repository.MessageRepository
	log          *slog.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int

	// seen dedupes redelivered bus events. Redis pub/sub can hand the same
	// change to reconnecting consumers; one notification per observed
	// (entity, type, updated_at) is enough.
	seen      map[string]time.Time
	lastPrune time.Time
}

func NewNotificationService(bus events.Bus, orderRepo repository.OrderRepository, proposalRepo repository.ProposalRepository, messageRepo repository.MessageRepository, log *slog.Logger) NotificationService {
	return &notificationService{
		bus:          bus,
		orderRepo:    orderRepo,
		proposalRepo: proposalRepo,
		messageRepo:  messageRepo,
		log:          log,
		subs:         make(map[int]*subscriber),
		seen:         make(map[string]time.Time),
		lastPrune:    time.Now(),
	}
}

func (s *notificationService) Subscribe(userID uuid.UUID, opts SubscribeOptions) (<-chan Notification, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	sub := &subscriber{userID: userID, opts: opts, ch: make(chan Notification, 32)}
	s.subs[id] = sub
	// cancel only deregisters; the channel is never closed because deliver
	// may still hold a reference to it outside the lock. Abandoned channels
	// are collected once the last sender drops them.
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
	return sub.ch, cancel
}

func (s *notificationService) Run(ctx context.Context) error {
	ch, cancel, err := s.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to change bus: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(ev)
		}
	}
}

func dedupeKey(ev events.ChangeEvent, typ NotificationType) string {
	return fmt.Sprintf("%s|%s|%d", ev.EntityID, typ, ev.UpdatedAt.UnixNano())
}

func (s *notificationService) alreadySeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.Sub(s.lastPrune) > 10*time.Minute {
		for k, at := range s.seen {
			if now.Sub(at) > 10*time.Minute {
				delete(s.seen, k)
			}
		}
		s.lastPrune = now
	}
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = now
	return false
}

func (s *notificationService) handle(ev events.ChangeEvent) {
	switch ev.Table {
	case events.TableProposals:
		s.handleProposal(ev)
	case events.TableMessages:
		s.handleMessage(ev)
	case events.TableOrders:
		s.handleOrder(ev)
	}
}

func (s *notificationService) handleProposal(ev events.ChangeEvent) {
	var proposal models.Proposal
	if err := ev.DecodeNew(&proposal); err != nil {
		return
	}
	switch {
	case ev.Op == events.OpInsert:
		if s.alreadySeen(dedupeKey(ev, NotifyNewProposal)) {
			return
		}
		order, err := s.orderRepo.GetByID(proposal.OrderID)
		if err != nil {
			s.log.Warn("notification lookup failed", "table", ev.Table, "entity_id", ev.EntityID, "error", err)
			return
		}
		s.deliverTo(order.ContractorID, Notification{
			Type:     NotifyNewProposal,
			OrderID:  proposal.OrderID,
			EntityID: proposal.ID,
			At:       ev.UpdatedAt,
		})
	case ev.Op == events.OpUpdate && proposal.IsAccepted:
		if s.alreadySeen(dedupeKey(ev, NotifyProposalAccepted)) {
			return
		}
		s.deliverTo(proposal.WorkerID, Notification{
			Type:     NotifyProposalAccepted,
			OrderID:  proposal.OrderID,
			EntityID: proposal.ID,
			At:       ev.UpdatedAt,
		})
	}
}

func (s *notificationService) handleMessage(ev events.ChangeEvent) {
	if ev.Op != events.OpInsert {
		return
	}
	var msg models.Message
	if err := ev.DecodeNew(&msg); err != nil {
		return
	}
	if s.alreadySeen(dedupeKey(ev, NotifyNewMessage)) {
		return
	}
	proposal, err := s.proposalRepo.GetByID(msg.ProposalID)
	if err != nil {
		return
	}
	order, err := s.orderRepo.GetByID(proposal.OrderID)
	if err != nil {
		return
	}
	recipient := proposal.WorkerID
	if msg.SenderID == proposal.WorkerID {
		recipient = order.ContractorID
	}
	// Best effort: a zero count still tells the client to refresh.
	unread, _ := s.messageRepo.CountUnread(msg.ProposalID, recipient)
	s.deliverTo(recipient, Notification{
		Type:     NotifyNewMessage,
		OrderID:  proposal.OrderID,
		EntityID: msg.ID,
		Unread:   unread,
		At:       ev.UpdatedAt,
	})
}

func (s *notificationService) handleOrder(ev events.ChangeEvent) {
	var order models.Order
	if err := ev.DecodeNew(&order); err != nil {
		return
	}
	switch {
	case ev.Op == events.OpInsert && order.Status == string(models.OrderOpen):
		if s.alreadySeen(dedupeKey(ev, NotifyNewOrderInRadius)) {
			return
		}
		s.fanOutNewOrder(order, ev.UpdatedAt)
	case ev.Op == events.OpUpdate && order.Status == string(models.OrderCompleted):
		if s.alreadySeen(dedupeKey(ev, NotifyOrderCompleted)) {
			return
		}
		n := Notification{
			Type:     NotifyOrderCompleted,
			OrderID:  order.ID,
			EntityID: order.ID,
			At:       ev.UpdatedAt,
		}
		s.deliverTo(order.ContractorID, n)
		if order.AcceptedWorkerID != nil {
			s.deliverTo(*order.AcceptedWorkerID, n)
		}
	}
}

// fanOutNewOrder pushes the open order to every subscribed worker whose
// radius and skills match. Workers without a known position get the
// notification too; filtering by distance is opt-in.
func (s *notificationService) fanOutNewOrder(order models.Order, at time.Time) {
	n := Notification{
		Type:     NotifyNewOrderInRadius,
		OrderID:  order.ID,
		EntityID: order.ID,
		At:       at,
	}
	s.mu.Lock()
	targets := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.userID == order.ContractorID {
			continue
		}
		if !matchesRadius(sub.opts, order) || !matchesSkills(order.CargoType, sub.opts.Skills) {
			continue
		}
		targets = append(targets, sub)
	}
	s.mu.Unlock()
	for _, sub := range targets {
		deliver(sub.ch, n)
	}
}

func matchesRadius(opts SubscribeOptions, order models.Order) bool {
	if opts.Position == nil || opts.RadiusKm <= 0 {
		return true
	}
	pos := order.Position()
	if pos == nil {
		return true
	}
	return Haversine(*opts.Position, *pos) <= opts.RadiusKm
}

func (s *notificationService) deliverTo(userID uuid.UUID, n Notification) {
	s.mu.Lock()
	targets := make([]*subscriber, 0, 1)
	for _, sub := range s.subs {
		if sub.userID == userID {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()
	for _, sub := range targets {
		deliver(sub.ch, n)
	}
}

// deliver never blocks: a subscriber that stopped draining loses hints, and
// the client catches up on its next full fetch.
func deliver(ch chan Notification, n Notification) {
	select {
	case ch <- n:
	default:
	}
}
