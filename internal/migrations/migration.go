package migrations

import (
	"log"

	"chapacerto/internal/models"

	"gorm.io/gorm"
)

// Run applies the schema. AutoMigrate covers tables and plain indexes; the
// partial unique index that enforces "at most one accepted proposal per
// order" cannot be expressed through struct tags, so it is created with raw
// SQL afterwards. The accept guard in the repository relies on this index as
// its backstop.
func Run(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.Proposal{},
		&models.Message{},
		&models.Review{},
		&models.Report{},
		&models.PaymentIntent{},
	)
	if err != nil {
		return err
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_one_accepted_proposal
		 ON proposals (order_id) WHERE is_accepted`,
		`CREATE INDEX IF NOT EXISTS ix_messages_proposal_unread
		 ON messages (proposal_id) WHERE NOT is_read`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	log.Println("Database migrations completed successfully!")
	return nil
}
