package repository

import (
	"context"

	"chapacerto/internal/events"
	"chapacerto/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProposalRepository interface {
	Create(proposal *models.Proposal) error
	GetByID(id uuid.UUID) (*models.Proposal, error)
	GetByOrder(orderID uuid.UUID) ([]models.Proposal, error)
	GetByWorker(workerID uuid.UUID) ([]models.Proposal, error)
	GetByOrderAndWorker(orderID, workerID uuid.UUID) (*models.Proposal, error)
	GetAccepted(orderID uuid.UUID) (*models.Proposal, error)
	Update(proposal *models.Proposal) error
	Delete(id uuid.UUID) error
}

type proposalRepository struct {
	db  *gorm.DB
	pub events.Publisher
}

func NewProposalRepository(db *gorm.DB, pub events.Publisher) ProposalRepository {
	return &proposalRepository{db: db, pub: pub}
}

func (r *proposalRepository) publish(op events.Op, proposal *models.Proposal) {
	if r.pub == nil || proposal == nil {
		return
	}
	ev := events.NewChange(events.TableProposals, op, proposal.ID, proposal.UpdatedAt, nil, proposal)
	r.pub.Publish(context.Background(), ev)
}

func (r *proposalRepository) Create(proposal *models.Proposal) error {
	if err := r.db.Create(proposal).Error; err != nil {
		return err
	}
	r.publish(events.OpInsert, proposal)
	return nil
}

func (r *proposalRepository) GetByID(id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.First(&proposal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) GetByOrder(orderID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.Where("order_id = ?", orderID).
		Order("is_accepted DESC, created_at ASC").
		Find(&proposals).Error
	return proposals, err
}

func (r *proposalRepository) GetByWorker(workerID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.Where("worker_id = ?", workerID).Order("created_at DESC").Find(&proposals).Error
	return proposals, err
}

func (r *proposalRepository) GetByOrderAndWorker(orderID, workerID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.First(&proposal, "order_id = ? AND worker_id = ?", orderID, workerID).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) GetAccepted(orderID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.First(&proposal, "order_id = ? AND is_accepted", orderID).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) Update(proposal *models.Proposal) error {
	if err := r.db.Save(proposal).Error; err != nil {
		return err
	}
	r.publish(events.OpUpdate, proposal)
	return nil
}

func (r *proposalRepository) Delete(id uuid.UUID) error {
	var proposal models.Proposal
	if err := r.db.First(&proposal, "id = ?", id).Error; err != nil {
		return err
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("proposal_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Proposal{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	r.publish(events.OpDelete, &proposal)
	return nil
}
