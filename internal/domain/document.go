package domain

import (
	"errors"
	"fmt"
	"time"
)

type Document struct {
	ID          string       `json:"id"`
	CommunityID string       `json:"communityId"`
	Name        string       `json:"name"`
	Type        DocumentType `json:"type"`
	URL         string       `json:"url"`
	Size        int64        `json:"size"`
	CreatedDate time.Time    `json:"createdDate"`
}

func (d *Document) Validate() error {
	if d.ID == "" {
		return errors.New("document id is required")
	}
	if d.Type == "" {
		return fmt.Errorf("document %s: %w", d.ID, &EnumError{Enum: "document type"})
	}
	return nil
}

type TermsAgreement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	URL         string    `json:"url"`
	CreatedDate time.Time `json:"createdDate"`
}

// AuthUser is the user returned by the remote /auth/login endpoint.
type AuthUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
