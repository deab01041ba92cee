package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Contract is an energy contract. Code holds the CUPS of a consumption point
// or the CAU of a generation installation.
type Contract struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Code             string            `json:"code"`
	Type             ContractType      `json:"type"`
	Power            float64           `json:"power"`
	State            ContractState     `json:"state,omitempty"` // empty when unknown
	Address          Address           `json:"address"`
	EnergySourceType *EnergySourceType `json:"energySourceType"`
	Provider         *Provider         `json:"provider"`
	User             *ContractUser     `json:"user"`
}

func (c *Contract) Validate() error {
	if c.ID == "" {
		return errors.New("contract id is required")
	}
	if c.Type == "" {
		return fmt.Errorf("contract %s: %w", c.ID, &EnumError{Enum: "contract type"})
	}
	if c.Power < 0 {
		return fmt.Errorf("contract %s: negative power", c.ID)
	}
	return nil
}

type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

// Full joins the non-empty address parts into one line.
func (a Address) Full() string {
	street := strings.TrimSpace(a.Street + " " + a.Number)
	parts := make([]string, 0, 5)
	for _, p := range []string{street, a.PostalCode, a.City, a.Province, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	VAT  string `json:"vat"`
}

// ContractUser is the owner of a contract.
type ContractUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	VAT    string `json:"vat"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}
