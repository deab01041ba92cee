package domain

import (
	"errors"
	"fmt"
	"time"
)

// Community is an energy community as served by the remote API.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedDate time.Time `json:"updatedDate"`
}

func (c *Community) Validate() error {
	if c.ID == "" {
		return errors.New("community id is required")
	}
	return nil
}

// CommunityContract attaches a Contract to a Community with community-specific
// fee and sharing data.
type CommunityContract struct {
	ID                     string         `json:"id"`
	CommunityID            string         `json:"communityId"`
	ContractID             string         `json:"contractId"`
	Contract               *Contract      `json:"contract,omitempty"`
	CommunityJoinDate      *time.Time     `json:"communityJoinDate"`
	CommunityFee           *float64       `json:"communityFee"`
	CommunityFeePeriodType *FeePeriodType `json:"communityFeePeriodType"`
	TermsAgreement         *string        `json:"termsAgreement"`
	Sharing                *Sharing       `json:"sharing"`
}

// Validate checks the invariants the rest of the service relies on after decoding.
func (cc *CommunityContract) Validate() error {
	if cc.ID == "" {
		return errors.New("community contract id is required")
	}
	if cc.CommunityID == "" {
		return fmt.Errorf("community contract %s: communityId is required", cc.ID)
	}
	if cc.CommunityFee != nil && *cc.CommunityFee < 0 {
		return fmt.Errorf("community contract %s: negative communityFee", cc.ID)
	}
	if cc.Contract != nil {
		if err := cc.Contract.Validate(); err != nil {
			return fmt.Errorf("community contract %s: %w", cc.ID, err)
		}
	}
	if cc.Sharing != nil {
		if err := cc.Sharing.Validate(); err != nil {
			return fmt.Errorf("community contract %s: %w", cc.ID, err)
		}
	}
	return nil
}

// IsGeneration reports whether the attached contract is a generation contract.
func (cc *CommunityContract) IsGeneration() bool {
	return cc.Contract != nil && cc.Contract.Type == ContractTypeGeneration
}

// ShareValue returns the current share, treating a missing sharing or share as 0.
func (cc *CommunityContract) ShareValue() float64 {
	if cc.Sharing == nil || cc.Sharing.Share == nil {
		return 0
	}
	return *cc.Sharing.Share
}

// Sharing is the fraction (0..1) of a generation contract's output assigned to
// a consumption community contract within one version.
type Sharing struct {
	ID                  string          `json:"id"`
	CommunityContractID string          `json:"communityContractId"`
	Share               *float64        `json:"share"`
	Version             *SharingVersion `json:"version,omitempty"`
	VersionID           string          `json:"versionId"`
	CreatedDate         time.Time       `json:"createdDate"`
	UpdatedDate         time.Time       `json:"updatedDate"`
}

func (s *Sharing) Validate() error {
	if s.Share != nil && (*s.Share < 0 || *s.Share > 1) {
		return fmt.Errorf("sharing %s: share %v out of range [0,1]", s.ID, *s.Share)
	}
	return nil
}

// SharingVersion is an immutable named snapshot of the sharings of a community.
type SharingVersion struct {
	ID                  string    `json:"id"`
	CommunityID         string    `json:"communityId"`
	Name                string    `json:"name"`
	IsProductionVersion bool      `json:"isProductionVersion"`
	Sharings            []Sharing `json:"sharings,omitempty"`
	CreatedDate         time.Time `json:"createdDate"`
	UpdatedDate         time.Time `json:"updatedDate"`
}

func (v *SharingVersion) Validate() error {
	if v.ID == "" {
		return errors.New("sharing version id is required")
	}
	for i := range v.Sharings {
		if err := v.Sharings[i].Validate(); err != nil {
			return fmt.Errorf("sharing version %s: %w", v.ID, err)
		}
	}
	return nil
}
