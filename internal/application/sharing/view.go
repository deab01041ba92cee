package sharing

import (
	"sort"

	"commenergy-backend/internal/domain"
)

// shareLimit is the maximum total share of one version (100%).
const shareLimit = 1.0

// RowView is a draft row with its diff against the original.
type RowView struct {
	domain.CommunityContract
	Difference float64 `json:"difference"`
	Changed    bool    `json:"changed"`
	Editable   bool    `json:"editable"`
}

// VersionTotal is the sum of consumption shares attached to one version.
type VersionTotal struct {
	VersionID    string  `json:"versionId"`
	Total        float64 `json:"total"`
	Percentage   float64 `json:"percentage"`
	ExceedsLimit bool    `json:"exceedsLimit"`
}

// DraftView is what the dashboard renders for the sharing table.
type DraftView struct {
	CommunityID         string                 `json:"communityId"`
	Dirty               bool                   `json:"dirty"`
	ActiveVersion       *domain.SharingVersion `json:"activeVersion"`
	GenerationContracts int                    `json:"generationContracts"`
	Totals              []VersionTotal         `json:"totals"`
	Rows                []RowView              `json:"rows"`
}

// BuildView diffs a draft against the original list.
func BuildView(d *Draft, original []domain.CommunityContract) *DraftView {
	changed := make(map[string]bool)
	for _, ch := range d.Changes(original) {
		changed[ch.Row.ID] = true
	}
	v := &DraftView{
		CommunityID:   d.CommunityID,
		Dirty:         d.IsDirty(original),
		ActiveVersion: d.ActiveVersion(),
		Rows:          make([]RowView, 0, len(d.Rows)),
	}
	for _, row := range d.Rows {
		if row.IsGeneration() {
			v.GenerationContracts++
		}
		v.Rows = append(v.Rows, RowView{
			CommunityContract: row,
			Difference:        Difference(original, row),
			Changed:           changed[row.ID],
			Editable:          !row.IsGeneration(),
		})
	}
	v.Totals = Totals(d.Rows)
	return v
}

// Totals sums consumption shares per version. Exceeding 100% is reported,
// not rejected.
func Totals(rows []domain.CommunityContract) []VersionTotal {
	sums := make(map[string]float64)
	for _, row := range rows {
		if row.IsGeneration() || row.Sharing == nil || row.Sharing.Share == nil {
			continue
		}
		sums[row.Sharing.VersionID] += *row.Sharing.Share
	}
	out := make([]VersionTotal, 0, len(sums))
	for id, total := range sums {
		pct := round2(total * 100)
		out = append(out, VersionTotal{
			VersionID:    id,
			Total:        total,
			Percentage:   pct,
			ExceedsLimit: pct > shareLimit*100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionID < out[j].VersionID })
	return out
}
