package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Commit and row statuses.
const (
	CommitPending   = "pending"
	CommitSucceeded = "succeeded"
	CommitPartial   = "partial"
	CommitFailed    = "failed"

	RowPending   = "pending"
	RowSucceeded = "succeeded"
	RowFailed    = "failed"

	RowKindSharing = "sharing"
	RowKindFee     = "fee"
)

// SharingCommit records one bulk commit of a community draft.
type SharingCommit struct {
	CommitID    uuid.UUID          `gorm:"column:commit_id;type:uuid;primaryKey" json:"commit_id"`
	CommunityID string             `gorm:"column:community_id;not null;index" json:"community_id"`
	UserID      string             `gorm:"column:user_id;not null" json:"user_id"`
	Status      string             `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Total       int                `gorm:"column:total;not null" json:"total"`
	Failed      int                `gorm:"column:failed;not null" json:"failed"`
	Rows        []SharingCommitRow `gorm:"foreignKey:CommitID;references:CommitID" json:"rows"`
	CreatedAt   time.Time          `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `gorm:"column:updatedAt" json:"updatedAt"`
}

func (SharingCommit) TableName() string {
	return "SharingCommits"
}

func (c *SharingCommit) BeforeCreate(tx *gorm.DB) error {
	if c.CommitID == uuid.Nil {
		c.CommitID = uuid.New()
	}
	return nil
}

// SharingCommitRow is one upstream request of a commit.
type SharingCommitRow struct {
	RowID               uuid.UUID      `gorm:"column:row_id;type:uuid;primaryKey" json:"row_id"`
	CommitID            uuid.UUID      `gorm:"column:commit_id;type:uuid;not null;index" json:"commit_id"`
	Position            int            `gorm:"column:position;not null" json:"position"`
	CommunityContractID string         `gorm:"column:community_contract_id;not null" json:"community_contract_id"`
	Kind                string         `gorm:"column:kind;type:varchar(20);not null" json:"kind"`
	Payload             datatypes.JSON `gorm:"column:payload;type:json" json:"payload"`
	Status              string         `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Error               string         `gorm:"column:error" json:"error,omitempty"`
	Attempts            int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	CreatedAt           time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt           time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (SharingCommitRow) TableName() string {
	return "SharingCommitRows"
}

func (r *SharingCommitRow) BeforeCreate(tx *gorm.DB) error {
	if r.RowID == uuid.Nil {
		r.RowID = uuid.New()
	}
	return nil
}
