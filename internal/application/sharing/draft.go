package sharing

import (
	"encoding/json"
	"errors"
	"time"

	"commenergy-backend/internal/domain"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrRowNotFound                = errors.New("Community contract not found in draft")
	ErrGenerationShareNotEditable = errors.New("The share of a generation contract cannot be edited")
	ErrShareOutOfRange            = errors.New("Share must be between 0 and 1")
	ErrNegativeFee                = errors.New("Community fee cannot be negative")
)

// Draft is the working copy of a community's contract list. It diverges from
// the original only through EditSharing and EditFee.
type Draft struct {
	CommunityID     string                     `json:"communityId"`
	BaseFingerprint uint64                     `json:"baseFingerprint"`
	Rows            []domain.CommunityContract `json:"rows"`
	UpdatedAt       time.Time                  `json:"updatedAt"`
}

// NewDraft seeds a draft from the original list.
func NewDraft(communityID string, original []domain.CommunityContract) *Draft {
	return &Draft{
		CommunityID:     communityID,
		BaseFingerprint: Fingerprint(original),
		Rows:            cloneRows(original),
	}
}

// Fingerprint identifies an original list so a stale draft can be detected.
func Fingerprint(rows []domain.CommunityContract) uint64 {
	b, err := json.Marshal(rows)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(b)
}

// Reset discards every edit.
func (d *Draft) Reset(original []domain.CommunityContract) {
	d.Rows = cloneRows(original)
	d.BaseFingerprint = Fingerprint(original)
}

func (d *Draft) row(ccID string) *domain.CommunityContract {
	for i := range d.Rows {
		if d.Rows[i].ID == ccID {
			return &d.Rows[i]
		}
	}
	return nil
}

// ActiveVersion is the version attached to the first row whose sharing has one.
func (d *Draft) ActiveVersion() *domain.SharingVersion {
	return activeVersion(d.Rows)
}

func activeVersion(rows []domain.CommunityContract) *domain.SharingVersion {
	for i := range rows {
		s := rows[i].Sharing
		if s == nil || s.VersionID == "" {
			continue
		}
		if s.Version != nil {
			v := *s.Version
			v.Sharings = nil
			return &v
		}
		return &domain.SharingVersion{ID: s.VersionID}
	}
	return nil
}

// EditSharing replaces the sharing of one row. An existing sharing keeps its
// id and creation date; otherwise newID provides one. The version comes from
// the active version.
func (d *Draft) EditSharing(ccID string, share float64, now time.Time, newID func() string) error {
	if share < 0 || share > 1 {
		return ErrShareOutOfRange
	}
	row := d.row(ccID)
	if row == nil {
		return ErrRowNotFound
	}
	if row.IsGeneration() {
		return ErrGenerationShareNotEditable
	}

	s := &domain.Sharing{
		CommunityContractID: row.ID,
		Share:               &share,
		UpdatedDate:         now,
	}
	if row.Sharing != nil && row.Sharing.ID != "" {
		s.ID = row.Sharing.ID
		s.CreatedDate = row.Sharing.CreatedDate
		s.VersionID = row.Sharing.VersionID
		s.Version = row.Sharing.Version
	} else {
		s.ID = newID()
		s.CreatedDate = now
	}
	if active := d.ActiveVersion(); active != nil {
		s.Version = active
		s.VersionID = active.ID
	}
	row.Sharing = s
	d.UpdatedAt = now
	return nil
}

// EditFee replaces the community fee and its period. Nil clears the field.
func (d *Draft) EditFee(ccID string, fee *float64, period *domain.FeePeriodType, now time.Time) error {
	if fee != nil && *fee < 0 {
		return ErrNegativeFee
	}
	row := d.row(ccID)
	if row == nil {
		return ErrRowNotFound
	}
	row.CommunityFee = cloneFloat(fee)
	if period != nil {
		p := *period
		row.CommunityFeePeriodType = &p
	} else {
		row.CommunityFeePeriodType = nil
	}
	d.UpdatedAt = now
	return nil
}

// Change describes how one draft row differs from the original.
type Change struct {
	Row   domain.CommunityContract
	Share bool
	Fee   bool
}

// Changes lists the rows that differ from the original, in draft order.
func (d *Draft) Changes(original []domain.CommunityContract) []Change {
	var out []Change
	for _, row := range d.Rows {
		shareChanged := Difference(original, row) != 0
		feeChanged := feeDiffers(findRow(original, row.ID), row)
		if shareChanged || feeChanged {
			out = append(out, Change{Row: row, Share: shareChanged, Fee: feeChanged})
		}
	}
	return out
}

// IsDirty reports whether the draft holds unsaved changes.
func (d *Draft) IsDirty(original []domain.CommunityContract) bool {
	if len(d.Rows) != len(original) {
		return true
	}
	for _, row := range d.Rows {
		if findRow(original, row.ID) == nil {
			return true
		}
	}
	return len(d.Changes(original)) > 0
}

// Reapply copies the edited fields of the given changes onto this draft.
// Rows that no longer exist are skipped.
func (d *Draft) Reapply(changes []Change) {
	for _, ch := range changes {
		row := d.row(ch.Row.ID)
		if row == nil {
			continue
		}
		src := cloneRow(ch.Row)
		if ch.Share {
			row.Sharing = src.Sharing
		}
		if ch.Fee {
			row.CommunityFee = src.CommunityFee
			row.CommunityFeePeriodType = src.CommunityFeePeriodType
		}
	}
}

func findRow(rows []domain.CommunityContract, id string) *domain.CommunityContract {
	for i := range rows {
		if rows[i].ID == id {
			return &rows[i]
		}
	}
	return nil
}

func feeDiffers(orig *domain.CommunityContract, row domain.CommunityContract) bool {
	if orig == nil {
		return row.CommunityFee != nil || row.CommunityFeePeriodType != nil
	}
	if (orig.CommunityFee == nil) != (row.CommunityFee == nil) {
		return true
	}
	if orig.CommunityFee != nil && round2(*orig.CommunityFee) != round2(*row.CommunityFee) {
		return true
	}
	if (orig.CommunityFeePeriodType == nil) != (row.CommunityFeePeriodType == nil) {
		return true
	}
	return orig.CommunityFeePeriodType != nil && *orig.CommunityFeePeriodType != *row.CommunityFeePeriodType
}

func cloneRows(rows []domain.CommunityContract) []domain.CommunityContract {
	out := make([]domain.CommunityContract, len(rows))
	for i := range rows {
		out[i] = cloneRow(rows[i])
	}
	return out
}

// cloneRow copies every field the draft may mutate. The contract is shared
// because the draft never edits it.
func cloneRow(r domain.CommunityContract) domain.CommunityContract {
	c := r
	c.CommunityFee = cloneFloat(r.CommunityFee)
	if r.CommunityFeePeriodType != nil {
		p := *r.CommunityFeePeriodType
		c.CommunityFeePeriodType = &p
	}
	if r.CommunityJoinDate != nil {
		t := *r.CommunityJoinDate
		c.CommunityJoinDate = &t
	}
	if r.TermsAgreement != nil {
		t := *r.TermsAgreement
		c.TermsAgreement = &t
	}
	if r.Sharing != nil {
		s := *r.Sharing
		s.Share = cloneFloat(r.Sharing.Share)
		if r.Sharing.Version != nil {
			v := *r.Sharing.Version
			s.Version = &v
		}
		c.Sharing = &s
	}
	return c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
