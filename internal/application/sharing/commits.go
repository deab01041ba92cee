package sharing

import (
	"context"
	"errors"
	"fmt"

	"commenergy-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrCommitNotFound = errors.New("Sharing commit not found")

// CommitRepository keeps the audit trail of bulk commits.
type CommitRepository interface {
	Create(ctx context.Context, c *domain.SharingCommit) error
	Get(ctx context.Context, communityID string, commitID uuid.UUID) (*domain.SharingCommit, error)
	Update(ctx context.Context, c *domain.SharingCommit) error
}

// GormCommitStore implements CommitRepository with GORM.
type GormCommitStore struct {
	DB *gorm.DB
}

func (s *GormCommitStore) Create(ctx context.Context, c *domain.SharingCommit) error {
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("Failed to record sharing commit: %v", err)
	}
	return nil
}

func (s *GormCommitStore) Get(ctx context.Context, communityID string, commitID uuid.UUID) (*domain.SharingCommit, error) {
	var c domain.SharingCommit
	err := s.DB.WithContext(ctx).
		Preload("Rows", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("commit_id = ? AND community_id = ?", commitID, communityID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update stores the commit counters and every row status in one transaction.
func (s *GormCommitStore) Update(ctx context.Context, c *domain.SharingCommit) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.SharingCommit{}).
			Where("commit_id = ?", c.CommitID).
			Updates(map[string]interface{}{"status": c.Status, "failed": c.Failed}).Error; err != nil {
			return fmt.Errorf("Failed to update sharing commit: %v", err)
		}
		for i := range c.Rows {
			r := &c.Rows[i]
			if err := tx.Model(&domain.SharingCommitRow{}).
				Where("row_id = ?", r.RowID).
				Updates(map[string]interface{}{"status": r.Status, "error": r.Error, "attempts": r.Attempts}).Error; err != nil {
				return fmt.Errorf("Failed to update sharing commit row: %v", err)
			}
		}
		return nil
	})
}
