package repository

import (
	"context"

	"chapacerto/internal/apperrors"
	"chapacerto/internal/events"
	"chapacerto/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uuid.UUID) (*models.Order, error)
	GetByContractor(contractorID uuid.UUID) ([]models.Order, error)
	ListOpen() ([]models.Order, error)
	Update(order *models.Order) error
	DeleteCascade(id uuid.UUID) error

	// AcceptProposal is the linearization point for the accept race: the
	// open -> accepted status flip is a single conditional UPDATE, so of N
	// concurrent accepts on one order exactly one sees RowsAffected == 1.
	AcceptProposal(orderID, proposalID, workerID uuid.UUID, amount float64) (*models.Order, error)

	// ResetEngagement returns an accepted/paid order to open and removes the
	// accepted proposal. contact_fee_paid is deliberately left untouched.
	ResetEngagement(orderID uuid.UUID) (*models.Order, error)

	// Finish moves an accepted/paid order to completed.
	Finish(orderID uuid.UUID) (*models.Order, error)

	// ApplySettlement marks the contact fee paid exactly once. The second
	// return reports whether this call did the transition; false means an
	// earlier poll already applied it and the caller must not re-emit any
	// business effects.
	ApplySettlement(orderID uuid.UUID) (*models.Order, bool, error)

	Count() (int64, error)
}

type orderRepository struct {
	db  *gorm.DB
	pub events.Publisher
}

func NewOrderRepository(db *gorm.DB, pub events.Publisher) OrderRepository {
	return &orderRepository{db: db, pub: pub}
}

func (r *orderRepository) publish(op events.Op, order *models.Order, old *models.Order) {
	if r.pub == nil || order == nil {
		return
	}
	ev := events.NewChange(events.TableOrders, op, order.ID, order.UpdatedAt, old, order)
	r.pub.Publish(context.Background(), ev)
}

func (r *orderRepository) Create(order *models.Order) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	r.publish(events.OpInsert, order, nil)
	return nil
}

func (r *orderRepository) GetByID(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByContractor(contractorID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("contractor_id = ?", contractorID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) ListOpen() ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("status = ?", models.OrderOpen).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Update(order *models.Order) error {
	if err := r.db.Save(order).Error; err != nil {
		return err
	}
	r.publish(events.OpUpdate, order, nil)
	return nil
}

func (r *orderRepository) DeleteCascade(id uuid.UUID) error {
	var order models.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			return err
		}
		var proposalIDs []uuid.UUID
		if err := tx.Model(&models.Proposal{}).Where("order_id = ?", id).Pluck("id", &proposalIDs).Error; err != nil {
			return err
		}
		if len(proposalIDs) > 0 {
			if err := tx.Where("proposal_id IN ?", proposalIDs).Delete(&models.Message{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.Proposal{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	r.publish(events.OpDelete, &order, nil)
	return nil
}

func (r *orderRepository) AcceptProposal(orderID, proposalID, workerID uuid.UUID, amount float64) (*models.Order, error) {
	var updated models.Order
	var proposal models.Proposal
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderOpen).
			Updates(map[string]interface{}{
				"status":             string(models.OrderAccepted),
				"agreed_price":       amount,
				"accepted_worker_id": workerID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("order already has an accepted proposal")
		}

		res = tx.Model(&models.Proposal{}).
			Where("id = ? AND order_id = ? AND NOT is_accepted", proposalID, orderID).
			Update("is_accepted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("proposal no longer available")
		}

		if err := tx.First(&proposal, "id = ?", proposalID).Error; err != nil {
			return err
		}
		return tx.First(&updated, "id = ?", orderID).Error
	})
	if err != nil {
		return nil, err
	}
	r.publish(events.OpUpdate, &updated, nil)
	if r.pub != nil {
		ev := events.NewChange(events.TableProposals, events.OpUpdate, proposal.ID, proposal.UpdatedAt, nil, &proposal)
		r.pub.Publish(context.Background(), ev)
	}
	return &updated, nil
}

func (r *orderRepository) ResetEngagement(orderID uuid.UUID) (*models.Order, error) {
	var updated models.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", orderID, []string{string(models.OrderAccepted), string(models.OrderPaid)}).
			Updates(map[string]interface{}{
				"status":             string(models.OrderOpen),
				"agreed_price":       nil,
				"accepted_worker_id": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("order is not engaged")
		}
		if err := tx.Where("order_id = ? AND is_accepted", orderID).Delete(&models.Proposal{}).Error; err != nil {
			return err
		}
		return tx.First(&updated, "id = ?", orderID).Error
	})
	if err != nil {
		return nil, err
	}
	r.publish(events.OpUpdate, &updated, nil)
	return &updated, nil
}

func (r *orderRepository) Finish(orderID uuid.UUID) (*models.Order, error) {
	var updated models.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", orderID, []string{string(models.OrderAccepted), string(models.OrderPaid)}).
			Update("status", string(models.OrderCompleted))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("order cannot be finished in its current state")
		}
		return tx.First(&updated, "id = ?", orderID).Error
	})
	if err != nil {
		return nil, err
	}
	r.publish(events.OpUpdate, &updated, nil)
	return &updated, nil
}

func (r *orderRepository) ApplySettlement(orderID uuid.UUID) (*models.Order, bool, error) {
	applied := false
	var updated models.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND NOT contact_fee_paid", orderID).
			Updates(map[string]interface{}{
				"contact_fee_paid": true,
				"status":           gorm.Expr("CASE WHEN status = 'accepted' THEN 'paid' ELSE status END"),
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		return tx.First(&updated, "id = ?", orderID).Error
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		r.publish(events.OpUpdate, &updated, nil)
	}
	return &updated, applied, nil
}

func (r *orderRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Count(&count).Error
	return count, err
}
