package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"commenergy-backend/internal/domain"
)

const notAvailable = "N/A"

var (
	ErrMultipleGenerationContracts = errors.New("TXT export requires exactly one generation contract, found more than one")
	ErrNoGenerationContract        = errors.New("TXT export requires exactly one generation contract, found none")
	ErrUnknownFormat               = errors.New("Unknown export format")
)

// Header is the first record of the CSV export.
var Header = []string{
	"Contract ID",
	"Name",
	"Code",
	"Type",
	"Power",
	"State",
	"Address",
	"Provider Name",
	"Provider VAT",
	"User Name",
	"User VAT",
	"User Email",
	"User Mobile",
	"Energy Source",
	"Community Join Date",
	"Community Fee",
	"Fee Period",
	"Community Share",
	"Sharing Version",
	"Terms Agreement",
}

// CSV renders one record per community contract. Quoting follows RFC 4180.
func CSV(rows []domain.CommunityContract) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for i := range rows {
		if err := w.Write(Record(rows[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Record maps a community contract to its CSV fields, in Header order.
func Record(cc domain.CommunityContract) []string {
	c := cc.Contract
	if c == nil {
		c = &domain.Contract{}
	}
	var provider domain.Provider
	if c.Provider != nil {
		provider = *c.Provider
	}
	var user domain.ContractUser
	if c.User != nil {
		user = *c.User
	}

	contractID := cc.ContractID
	if contractID == "" {
		contractID = c.ID
	}
	return []string{
		contractID,
		c.Name,
		c.Code,
		string(c.Type),
		strconv.FormatFloat(c.Power, 'f', -1, 64),
		string(c.State),
		c.Address.Full(),
		provider.Name,
		provider.VAT,
		user.Name,
		user.VAT,
		user.Email,
		user.Mobile,
		energySource(c.EnergySourceType),
		FormatDate(cc.CommunityJoinDate),
		FormatFee(cc.CommunityFee),
		feePeriod(cc.CommunityFeePeriodType),
		FormatShare(cc.Sharing),
		versionID(cc.Sharing),
		termsAgreement(cc.TermsAgreement),
	}
}

// FormatDate renders MM/DD/YYYY.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return notAvailable
	}
	return t.Format("01/02/2006")
}

func FormatFee(fee *float64) string {
	if fee == nil {
		return notAvailable
	}
	return fmt.Sprintf("€%.2f", *fee)
}

// FormatShare renders a 0..1 share as a percentage with two decimals.
func FormatShare(s *domain.Sharing) string {
	if s == nil || s.Share == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.2f%%", *s.Share*100)
}

func energySource(e *domain.EnergySourceType) string {
	if e == nil {
		return notAvailable
	}
	return string(*e)
}

func feePeriod(p *domain.FeePeriodType) string {
	if p == nil {
		return notAvailable
	}
	return p.Label()
}

func versionID(s *domain.Sharing) string {
	if s == nil || s.VersionID == "" {
		return notAvailable
	}
	return s.VersionID
}

func termsAgreement(t *string) string {
	if t == nil || *t == "" {
		return notAvailable
	}
	return *t
}

// CountGeneration counts generation contracts.
func CountGeneration(rows []domain.CommunityContract) int {
	n := 0
	for i := range rows {
		if rows[i].IsGeneration() {
			n++
		}
	}
	return n
}

// TXT renders the coefficient file: one "code;share" line per contract in row
// order, share with six decimals and a decimal comma (0 when unset). The
// generation contract is the denominator and must be unique.
func TXT(rows []domain.CommunityContract) ([]byte, error) {
	switch n := CountGeneration(rows); {
	case n == 0:
		return nil, ErrNoGenerationContract
	case n > 1:
		return nil, ErrMultipleGenerationContracts
	}
	var buf bytes.Buffer
	for i := range rows {
		cc := &rows[i]
		if cc.Contract == nil {
			continue
		}
		buf.WriteString(cc.Contract.Code)
		buf.WriteByte(';')
		buf.WriteString(FormatCoefficient(cc.ShareValue()))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// FormatCoefficient renders a share with six decimals and a comma separator.
func FormatCoefficient(share float64) string {
	return strings.Replace(strconv.FormatFloat(share, 'f', 6, 64), ".", ",", 1)
}
