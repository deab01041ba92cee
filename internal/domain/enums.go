package domain

import (
	"encoding/json"
	"fmt"
)

// EnumError is returned when a JSON payload carries a value outside of an enum.
type EnumError struct {
	Enum  string
	Value string
}

func (e *EnumError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("missing %s", e.Enum)
	}
	return fmt.Sprintf("invalid %s %q", e.Enum, e.Value)
}

func unmarshalEnum(data []byte, enum string, allowed []string) (string, error) {
	if string(data) == "null" {
		return "", &EnumError{Enum: enum}
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%s: %w", enum, err)
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", &EnumError{Enum: enum, Value: s}
}

type ContractType string

const (
	ContractTypeConsumption ContractType = "CONSUMPTION"
	ContractTypeGeneration  ContractType = "GENERATION"
)

var contractTypes = []string{string(ContractTypeConsumption), string(ContractTypeGeneration)}

func (t *ContractType) UnmarshalJSON(data []byte) error {
	s, err := unmarshalEnum(data, "contract type", contractTypes)
	if err != nil {
		return err
	}
	*t = ContractType(s)
	return nil
}

type ContractState string

const (
	ContractStateActive   ContractState = "ACTIVE"
	ContractStateInactive ContractState = "INACTIVE"
)

var contractStates = []string{string(ContractStateActive), string(ContractStateInactive)}

// UnmarshalJSON treats null and "" as an absent state; the remote API omits
// it for contracts that were never activated.
func (s *ContractState) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		*s = ""
		return nil
	}
	v, err := unmarshalEnum(data, "contract state", contractStates)
	if err != nil {
		return err
	}
	*s = ContractState(v)
	return nil
}

// FeePeriodType is the billing period of a community fee.
type FeePeriodType string

const (
	FeePeriodMonthly      FeePeriodType = "MONTHLY"
	FeePeriodQuarterly    FeePeriodType = "QUARTERLY"
	FeePeriodSemiannually FeePeriodType = "SEMIANNUALLY"
	FeePeriodYearly       FeePeriodType = "YEARLY"
)

var feePeriodTypes = []string{
	string(FeePeriodMonthly), string(FeePeriodQuarterly),
	string(FeePeriodSemiannually), string(FeePeriodYearly),
}

func (p *FeePeriodType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "fee period type", feePeriodTypes)
	if err != nil {
		return err
	}
	*p = FeePeriodType(v)
	return nil
}

// Label is the human form used in exports ("Monthly").
func (p FeePeriodType) Label() string {
	switch p {
	case FeePeriodMonthly:
		return "Monthly"
	case FeePeriodQuarterly:
		return "Quarterly"
	case FeePeriodSemiannually:
		return "Semiannually"
	case FeePeriodYearly:
		return "Yearly"
	}
	return string(p)
}

type EnergySourceType string

const (
	EnergySourceSolar   EnergySourceType = "SOLAR"
	EnergySourceWind    EnergySourceType = "WIND"
	EnergySourceHydro   EnergySourceType = "HYDRO"
	EnergySourceBiomass EnergySourceType = "BIOMASS"
	EnergySourceOther   EnergySourceType = "OTHER"
)

var energySourceTypes = []string{
	string(EnergySourceSolar), string(EnergySourceWind), string(EnergySourceHydro),
	string(EnergySourceBiomass), string(EnergySourceOther),
}

func (e *EnergySourceType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "energy source type", energySourceTypes)
	if err != nil {
		return err
	}
	*e = EnergySourceType(v)
	return nil
}

type DocumentType string

const (
	DocumentTypeContract       DocumentType = "CONTRACT"
	DocumentTypeInvoice        DocumentType = "INVOICE"
	DocumentTypeTermsAgreement DocumentType = "TERMS_AGREEMENT"
	DocumentTypeOther          DocumentType = "OTHER"
)

var documentTypes = []string{
	string(DocumentTypeContract), string(DocumentTypeInvoice),
	string(DocumentTypeTermsAgreement), string(DocumentTypeOther),
}

func (d *DocumentType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "document type", documentTypes)
	if err != nil {
		return err
	}
	*d = DocumentType(v)
	return nil
}

// ParseDocumentType validates a document type coming from a form field.
func ParseDocumentType(s string) (DocumentType, error) {
	for _, d := range documentTypes {
		if s == d {
			return DocumentType(s), nil
		}
	}
	return "", &EnumError{Enum: "document type", Value: s}
}

// ParseFeePeriodType validates a fee period coming from a request body.
func ParseFeePeriodType(s string) (FeePeriodType, error) {
	for _, p := range feePeriodTypes {
		if s == p {
			return FeePeriodType(s), nil
		}
	}
	return "", &EnumError{Enum: "fee period type", Value: s}
}
