package repository

import (
	"context"

	"chapacerto/internal/events"
	"chapacerto/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(message *models.Message) error
	GetByProposal(proposalID uuid.UUID) ([]models.Message, error)
	MarkRead(proposalID, readerID uuid.UUID) error
	CountUnread(proposalID, userID uuid.UUID) (int64, error)
	CountUnreadForOrders(proposalIDs []uuid.UUID, userID uuid.UUID) (int64, error)
}

type messageRepository struct {
	db  *gorm.DB
	pub events.Publisher
}

func NewMessageRepository(db *gorm.DB, pub events.Publisher) MessageRepository {
	return &messageRepository{db: db, pub: pub}
}

func (r *messageRepository) Create(message *models.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return err
	}
	if r.pub != nil {
		ev := events.NewChange(events.TableMessages, events.OpInsert, message.ID, message.UpdatedAt, nil, message)
		r.pub.Publish(context.Background(), ev)
	}
	return nil
}

func (r *messageRepository) GetByProposal(proposalID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("proposal_id = ?", proposalID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}

// MarkRead flags every counterpart message on the proposal as read.
func (r *messageRepository) MarkRead(proposalID, readerID uuid.UUID) error {
	return r.db.Model(&models.Message{}).
		Where("proposal_id = ? AND sender_id <> ? AND NOT is_read", proposalID, readerID).
		Update("is_read", true).Error
}

func (r *messageRepository) CountUnread(proposalID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("proposal_id = ? AND sender_id <> ? AND NOT is_read", proposalID, userID).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) CountUnreadForOrders(proposalIDs []uuid.UUID, userID uuid.UUID) (int64, error) {
	if len(proposalIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("proposal_id IN ? AND sender_id <> ? AND NOT is_read", proposalIDs, userID).
		Count(&count).Error
	return count, err
}
