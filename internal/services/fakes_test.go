package services

import (
	"context"
	"sync"
	"time"

	"chapacerto/internal/apperrors"
	"chapacerto/internal/models"
	"chapacerto/pkg/mercadopago"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes. The conditional updates mirror the SQL
// guards, including the atomic status flips, so race behavior can be
// exercised without a database.

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	props     *fakeProposalRepo
	settleErr error // returned by the next ApplySettlement, then cleared
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (r *fakeOrderRepo) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = string(models.OrderOpen)
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) GetByContractor(contractorID uuid.UUID) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.ContractorID == contractorID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListOpen() ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.Status == string(models.OrderOpen) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Update(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	order.UpdatedAt = time.Now()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) DeleteCascade(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
	return nil
}

func (r *fakeOrderRepo) AcceptProposal(orderID, proposalID, workerID uuid.UUID, amount float64) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if order.Status != string(models.OrderOpen) {
		return nil, apperrors.Conflict("order is no longer open")
	}
	order.Status = string(models.OrderAccepted)
	order.AcceptedWorkerID = &workerID
	order.AgreedPrice = &amount
	order.UpdatedAt = time.Now()
	if r.props != nil {
		if p, ok := r.props.proposals[proposalID]; ok {
			p.IsAccepted = true
		}
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) ResetEngagement(orderID uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	order.Status = string(models.OrderOpen)
	order.AcceptedWorkerID = nil
	order.AgreedPrice = nil
	order.UpdatedAt = time.Now()
	if r.props != nil {
		for id, p := range r.props.proposals {
			if p.OrderID == orderID && p.IsAccepted {
				delete(r.props.proposals, id)
			}
		}
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) Finish(orderID uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	order.Status = string(models.OrderCompleted)
	order.UpdatedAt = time.Now()
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) ApplySettlement(orderID uuid.UUID) (*models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settleErr != nil {
		err := r.settleErr
		r.settleErr = nil
		return nil, false, err
	}
	order, ok := r.orders[orderID]
	if !ok {
		return nil, false, gorm.ErrRecordNotFound
	}
	if order.ContactFeePaid {
		cp := *order
		return &cp, false, nil
	}
	order.ContactFeePaid = true
	if order.Status == string(models.OrderAccepted) {
		order.Status = string(models.OrderPaid)
	}
	order.UpdatedAt = time.Now()
	cp := *order
	return &cp, true, nil
}

func (r *fakeOrderRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.orders)), nil
}

type fakeProposalRepo struct {
	mu        sync.Mutex
	proposals map[uuid.UUID]*models.Proposal
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{proposals: make(map[uuid.UUID]*models.Proposal)}
}

func (r *fakeProposalRepo) Create(proposal *models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if proposal.ID == uuid.Nil {
		proposal.ID = uuid.New()
	}
	proposal.CreatedAt = time.Now()
	cp := *proposal
	r.proposals[proposal.ID] = &cp
	return nil
}

func (r *fakeProposalRepo) GetByID(id uuid.UUID) (*models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proposals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProposalRepo) GetByOrder(orderID uuid.UUID) ([]models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Proposal
	for _, p := range r.proposals {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) GetByWorker(workerID uuid.UUID) ([]models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Proposal
	for _, p := range r.proposals {
		if p.WorkerID == workerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) GetByOrderAndWorker(orderID, workerID uuid.UUID) (*models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.proposals {
		if p.OrderID == orderID && p.WorkerID == workerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProposalRepo) GetAccepted(orderID uuid.UUID) (*models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.proposals {
		if p.OrderID == orderID && p.IsAccepted {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProposalRepo) Update(proposal *models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.proposals[proposal.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *proposal
	r.proposals[proposal.ID] = &cp
	return nil
}

func (r *fakeProposalRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.proposals, id)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	message.CreatedAt = time.Now()
	cp := *message
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeMessageRepo) GetByProposal(proposalID uuid.UUID) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.ProposalID == proposalID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(proposalID, readerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ProposalID == proposalID && m.SenderID != readerID {
			m.IsRead = true
		}
	}
	return nil
}

func (r *fakeMessageRepo) CountUnread(proposalID, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.ProposalID == proposalID && m.SenderID != userID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) CountUnreadForOrders(proposalIDs []uuid.UUID, userID uuid.UUID) (int64, error) {
	var n int64
	for _, id := range proposalIDs {
		c, _ := r.CountUnread(id, userID)
		n += c
	}
	return n, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetAll() ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) GetAvailableWorkers(excludeID uuid.UUID) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if u.Role == string(models.RoleWorker) && u.Availability.IsAvailable && u.ID != excludeID && !u.IsBlocked {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) SetAvailability(id uuid.UUID, available bool, lat, lng *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	u.Availability = models.Availability{IsAvailable: available, LastLat: lat, LastLng: lng, UpdatedAt: &now}
	return nil
}

func (r *fakeUserRepo) SetBlocked(id uuid.UUID, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsBlocked = blocked
	return nil
}

func (r *fakeUserRepo) SetAdmin(id uuid.UUID, admin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsAdmin = admin
	return nil
}

func (r *fakeUserRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews []*models.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{}
}

func (r *fakeReviewRepo) Create(review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	cp := *review
	r.reviews = append(r.reviews, &cp)
	return nil
}

func (r *fakeReviewRepo) ExistsForOrderAndReviewer(orderID, reviewerID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range r.reviews {
		if rv.OrderID == orderID && rv.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeReviewRepo) AverageStars(targetID uuid.UUID) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum, n float64
	for _, rv := range r.reviews {
		if rv.TargetID == targetID {
			sum += float64(rv.Stars)
			n++
		}
	}
	if n == 0 {
		return 5, nil
	}
	return sum / n, nil
}

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*models.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[uuid.UUID]*models.Report)}
}

func (r *fakeReportRepo) Create(report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

func (r *fakeReportRepo) GetAll() ([]models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Report
	for _, rp := range r.reports {
		out = append(out, *rp)
	}
	return out, nil
}

func (r *fakeReportRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reports, id)
	return nil
}

func (r *fakeReportRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.reports)), nil
}

type fakeIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*models.PaymentIntent
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: make(map[string]*models.PaymentIntent)}
}

func (r *fakeIntentRepo) Create(intent *models.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	for _, ex := range r.intents {
		if ex.IdempotencyKey == intent.IdempotencyKey {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *intent
	r.intents[intent.IntentID] = &cp
	return nil
}

func (r *fakeIntentRepo) GetByIntentID(intentID string) (*models.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[intentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *in
	return &cp, nil
}

func (r *fakeIntentRepo) GetByIdempotencyKey(key string) (*models.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.intents {
		if in.IdempotencyKey == key {
			cp := *in
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeIntentRepo) GetSettledByOrder(orderID uuid.UUID) (*models.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.intents {
		if in.OrderID == orderID && in.Status == string(models.IntentSettled) {
			cp := *in
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeIntentRepo) MarkSettled(intentID string, settledAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[intentID]
	if !ok || in.Status != string(models.IntentPending) {
		return false, nil
	}
	in.Status = string(models.IntentSettled)
	in.SettledAt = &settledAt
	return true, nil
}

func (r *fakeIntentRepo) MarkExpired(intentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if in, ok := r.intents[intentID]; ok && in.Status == string(models.IntentPending) {
		in.Status = string(models.IntentExpired)
	}
	return nil
}

// fakeProcessor scripts Mercado Pago responses.
type fakeProcessor struct {
	mu          sync.Mutex
	nextID      int64
	status      string
	createErr   error
	getErr      error
	createCalls int
	getCalls    int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{nextID: 1000, status: "pending"}
}

func (p *fakeProcessor) CreatePayment(ctx context.Context, amount float64, description, payerEmail, idempotencyKey string, expiresAt time.Time) (*mercadopago.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.nextID++
	payment := &mercadopago.Payment{ID: p.nextID, Status: "pending"}
	payment.PointOfInteraction.TransactionData.QRCode = "00020126pixpayload"
	return payment, nil
}

func (p *fakeProcessor) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getCalls++
	if p.getErr != nil {
		return nil, p.getErr
	}
	return &mercadopago.Payment{Status: p.status}, nil
}
